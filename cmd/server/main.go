package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saeid-a/AlumniNetworkBack/internal/config"
	"github.com/saeid-a/AlumniNetworkBack/internal/database"
	"github.com/saeid-a/AlumniNetworkBack/internal/logger"
	"github.com/saeid-a/AlumniNetworkBack/internal/metrics"
	"github.com/saeid-a/AlumniNetworkBack/internal/routes"
	chatws "github.com/saeid-a/AlumniNetworkBack/internal/websocket"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLog, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer appLog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to Database
	var db *pgxpool.Pool
	if cfg.StoreDriver == "postgres" {
		db, err = database.Connect(ctx, cfg.DBUrl, appLog)
		if err != nil {
			appLog.Fatal("failed to connect to database", "error", err)
		}
		defer db.Close()
	} else {
		appLog.Warn("running with the in-memory store; state is lost on restart")
	}

	// 3. Realtime fan-out
	var bus chatws.Bus = chatws.NewLocalBus()
	if cfg.RedisAddr != "" {
		redisBus, err := chatws.NewRedisBus(cfg.RedisAddr, cfg.RedisChannel, appLog)
		if err != nil {
			appLog.Fatal("failed to connect to redis", "error", err)
		}
		bus = redisBus
	}
	defer bus.Close()

	hub := chatws.NewHub(bus, appLog)
	if err := hub.Start(ctx); err != nil {
		appLog.Fatal("failed to start chat hub", "error", err)
	}

	// 4. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:      "alumni-network",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	if err := routes.RegisterRoutes(app, cfg, routes.Dependencies{
		DB:      db,
		Hub:     hub,
		Metrics: metrics.NewCollector("alumni_network"),
		Log:     appLog,
	}); err != nil {
		appLog.Fatal("failed to register routes", "error", err)
	}

	go func() {
		<-ctx.Done()
		appLog.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			appLog.Error("shutdown failed", "error", err)
		}
	}()

	// 5. Start Server
	appLog.Info("server starting", "port", cfg.Port, "store", cfg.StoreDriver, "env", cfg.AppEnv)
	if err := app.Listen(":" + cfg.Port); err != nil {
		appLog.Fatal("server failed to start", "error", err)
	}
}
