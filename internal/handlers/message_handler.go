package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/AlumniNetworkBack/internal/apperr"
	"github.com/saeid-a/AlumniNetworkBack/internal/middleware"
	"github.com/saeid-a/AlumniNetworkBack/internal/models"
	"github.com/saeid-a/AlumniNetworkBack/internal/services"
	chatws "github.com/saeid-a/AlumniNetworkBack/internal/websocket"
	"github.com/saeid-a/AlumniNetworkBack/pkg/utils"
)

type messageApplicationService interface {
	SendMessage(ctx context.Context, actor string, input services.SendMessageInput) (*services.MessageDelivery, error)
	GetThread(ctx context.Context, actor, userA, userB string, cursor models.MessageCursor) (*services.Thread, error)
	GetChatList(ctx context.Context, actor, user string) ([]models.ChatListEntry, error)
	ListContacts(ctx context.Context, actor string, page, limit int) ([]models.UserProjection, int, error)
}

type MessageHandler struct {
	service   messageApplicationService
	hub       *chatws.Hub
	jwtSecret string
}

type sendMessageRequest struct {
	Sender         string `json:"sender" validate:"required,email"`
	Receiver       string `json:"receiver" validate:"required,email"`
	Content        string `json:"content"`
	IdempotencyKey string `json:"idempotencyKey" validate:"omitempty,max=128"`
}

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerNextSeq        = "X-Next-Seq"
	headerHasMore        = "X-Has-More"
)

func NewMessageHandler(service messageApplicationService, hub *chatws.Hub, jwtSecret string) *MessageHandler {
	return &MessageHandler{
		service:   service,
		hub:       hub,
		jwtSecret: jwtSecret,
	}
}

func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidRequest(c, "Invalid request body")
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.Get(headerIdempotencyKey)
	}
	if msg := validateRequest(req); msg != "" {
		return invalidRequest(c, msg)
	}

	delivery, err := h.service.SendMessage(c.Context(), middleware.Actor(c), services.SendMessageInput{
		Sender:         req.Sender,
		Receiver:       req.Receiver,
		Content:        req.Content,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return mapNetworkError(c, err)
	}

	status := fiber.StatusCreated
	if delivery.Duplicate {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(fiber.Map{
		"message":   "Message sent",
		"data":      delivery.Message,
		"duplicate": delivery.Duplicate,
	})
}

// GetThread returns the ordered messages between two users. With a limit the
// cursor for the next page is reported in response headers.
func (h *MessageHandler) GetThread(c *fiber.Ctx) error {
	after, err := parseNonNegativeInt64(c.Query("after"))
	if err != nil {
		return invalidRequest(c, "after must be a non-negative integer")
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit = parsePositiveInt(raw, defaultPageLimit)
		if limit > maxPageLimit {
			limit = maxPageLimit
		}
	}

	thread, err := h.service.GetThread(c.Context(), middleware.Actor(c), c.Params("userA"), c.Params("userB"), models.MessageCursor{
		AfterSeq: after,
		Limit:    limit,
	})
	if err != nil {
		return mapNetworkError(c, err)
	}

	if limit > 0 {
		c.Set(headerNextSeq, strconv.FormatInt(thread.Cursor.NextSeq, 10))
		c.Set(headerHasMore, strconv.FormatBool(thread.Cursor.HasMore))
	}
	return c.JSON(thread.Messages)
}

func (h *MessageHandler) GetChatList(c *fiber.Ctx) error {
	entries, err := h.service.GetChatList(c.Context(), middleware.Actor(c), c.Params("email"))
	if err != nil {
		return mapNetworkError(c, err)
	}
	return c.JSON(entries)
}

func (h *MessageHandler) ListContacts(c *fiber.Ctx) error {
	actor := middleware.Actor(c)
	if email := c.Query("email"); email != "" && models.NormalizeEmail(email) != models.NormalizeEmail(actor) {
		return mapNetworkError(c, apperr.ErrForbidden)
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	users, total, err := h.service.ListContacts(c.Context(), actor, page, limit)
	if err != nil {
		return mapNetworkError(c, err)
	}

	return c.JSON(fiber.Map{
		"users":      users,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *MessageHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	c.Locals(middleware.LocalEmail, claims.Email)
	c.Locals(middleware.LocalRole, claims.Role)
	return c.Next()
}

func (h *MessageHandler) HandleWebSocket(conn *websocket.Conn) {
	email, _ := conn.Locals(middleware.LocalEmail).(string)
	client := chatws.NewClient(h.hub, conn, email)

	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump(h.service)
}

func (h *MessageHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}
