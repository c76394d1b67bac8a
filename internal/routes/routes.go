package routes

import (
	"fmt"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saeid-a/AlumniNetworkBack/internal/config"
	"github.com/saeid-a/AlumniNetworkBack/internal/handlers"
	"github.com/saeid-a/AlumniNetworkBack/internal/logger"
	"github.com/saeid-a/AlumniNetworkBack/internal/metrics"
	"github.com/saeid-a/AlumniNetworkBack/internal/middleware"
	"github.com/saeid-a/AlumniNetworkBack/internal/services"
	"github.com/saeid-a/AlumniNetworkBack/internal/store"
	chatws "github.com/saeid-a/AlumniNetworkBack/internal/websocket"
)

// Dependencies are the process-wide resources the routes are built on.
// DB is nil when the memory store driver is selected. Hub must already be
// started.
type Dependencies struct {
	DB      *pgxpool.Pool
	Hub     *chatws.Hub
	Metrics *metrics.Collector
	Log     *logger.Logger
}

func RegisterRoutes(app *fiber.App, cfg *config.Config, deps Dependencies) error {
	if deps.Hub == nil {
		return fmt.Errorf("chat hub is required")
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewCollector("alumni_network")
	}

	networkService, err := buildNetworkService(cfg, deps)
	if err != nil {
		return err
	}
	connectionHandler := handlers.NewConnectionHandler(networkService)
	messageHandler := handlers.NewMessageHandler(networkService, deps.Hub, cfg.JWTSecret)

	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(deps.Log, deps.Metrics))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Idempotency-Key, X-Request-ID",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"store":  cfg.StoreDriver,
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	if err := registerDocsRoutes(app, cfg); err != nil {
		return err
	}

	api := app.Group("/api")

	// The websocket authenticates from the query string, so it sits outside
	// the bearer-protected groups.
	api.Use("/ws", messageHandler.WebSocketAuth)
	api.Get("/ws", websocket.New(messageHandler.HandleWebSocket))

	authRequired := middleware.AuthRequired(cfg.JWTSecret)

	connections := api.Group("/connections", authRequired)
	connections.Post("/request", connectionHandler.SendRequest)
	connections.Delete("/unsend", connectionHandler.WithdrawRequest)
	connections.Put("/status", connectionHandler.RespondToRequest)
	connections.Get("/status/:email", connectionHandler.GetStatus)
	connections.Get("/pending", connectionHandler.ListPending)
	connections.Get("/sent", connectionHandler.ListSent)
	connections.Get("", connectionHandler.ListConnections)
	connections.Delete("/:email", connectionHandler.Disconnect)

	api.Get("/network", authRequired, connectionHandler.GetNetwork)

	messages := api.Group("/messages", authRequired)
	messages.Post("/send", messageHandler.SendMessage)
	messages.Get("/users", messageHandler.ListContacts)
	// Registered before the thread route so "chats" is never read as userA.
	messages.Get("/chats/:email", messageHandler.GetChatList)
	messages.Get("/:userA/:userB", messageHandler.GetThread)

	return nil
}

func buildNetworkService(cfg *config.Config, deps Dependencies) (*services.NetworkService, error) {
	guardConfig := func(name string) store.GuardConfig {
		return store.GuardConfig{
			Name:     name,
			Timeout:  cfg.StoreTimeout,
			Failures: cfg.BreakerFailures,
			Cooldown: cfg.BreakerCooldown,
		}
	}

	var (
		relationships store.RelationshipStore
		conversations store.ConversationStore
		identities    store.IdentityResolver
	)

	switch cfg.StoreDriver {
	case "postgres":
		if deps.DB == nil {
			return nil, fmt.Errorf("postgres store driver requires a database pool")
		}
		relationships = store.NewPostgresRelationshipStore(deps.DB, store.NewGuard(guardConfig("relationships"), deps.Log, deps.Metrics))
		conversations = store.NewPostgresConversationStore(deps.DB, store.NewGuard(guardConfig("conversations"), deps.Log, deps.Metrics), cfg.IdempotencyWindow)
		identities = store.NewPostgresIdentityResolver(deps.DB, store.NewGuard(guardConfig("identities"), deps.Log, deps.Metrics))
	case "memory":
		resolver := store.NewMemoryIdentityResolver()
		if cfg.SeedUsersFile != "" {
			users, err := store.LoadSeedUsers(cfg.SeedUsersFile)
			if err != nil {
				return nil, err
			}
			for _, user := range users {
				resolver.Put(user)
			}
			deps.Log.Info("seeded memory identities", "users", len(users))
		}
		relationships = store.NewMemoryRelationshipStore()
		conversations = store.NewMemoryConversationStore(cfg.IdempotencyWindow)
		identities = resolver
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}

	return services.NewNetworkService(relationships, conversations, identities, deps.Hub, deps.Metrics, deps.Log), nil
}
