package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/AlumniNetworkBack/internal/middleware"
	"github.com/saeid-a/AlumniNetworkBack/internal/models"
)

type connectionApplicationService interface {
	SendConnectionRequest(ctx context.Context, actor, from, to string) (*models.ConnectionRequest, error)
	WithdrawConnectionRequest(ctx context.Context, actor, from, to string) error
	RespondToConnectionRequest(ctx context.Context, actor, from, to string, decision models.Decision) (*models.Connection, error)
	Disconnect(ctx context.Context, actor, other string) error
	GetRelationship(ctx context.Context, actor, other string) (models.RelationshipStatus, error)
	ListConnections(ctx context.Context, actor, user string) ([]models.ConnectionView, error)
	ListPendingRequestsReceived(ctx context.Context, actor, user string) ([]models.PendingRequestView, error)
	ListPendingRequestsSent(ctx context.Context, actor, user string) ([]models.PendingRequestView, error)
	GetNetworkView(ctx context.Context, actor, user string) (*models.NetworkView, error)
}

type ConnectionHandler struct {
	service connectionApplicationService
}

type connectionPairRequest struct {
	FromEmail string `json:"fromEmail" validate:"required,email"`
	ToEmail   string `json:"toEmail" validate:"required,email"`
}

type respondRequest struct {
	FromEmail string `json:"fromEmail" validate:"required,email"`
	ToEmail   string `json:"toEmail" validate:"required,email"`
	Status    string `json:"status" validate:"required,oneof=accepted declined"`
}

func NewConnectionHandler(service connectionApplicationService) *ConnectionHandler {
	return &ConnectionHandler{service: service}
}

func (h *ConnectionHandler) SendRequest(c *fiber.Ctx) error {
	var req connectionPairRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidRequest(c, "Invalid request body")
	}
	if msg := validateRequest(req); msg != "" {
		return invalidRequest(c, msg)
	}

	request, err := h.service.SendConnectionRequest(c.Context(), middleware.Actor(c), req.FromEmail, req.ToEmail)
	if err != nil {
		return mapNetworkError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Connection request sent",
		"request": request,
	})
}

func (h *ConnectionHandler) WithdrawRequest(c *fiber.Ctx) error {
	var req connectionPairRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidRequest(c, "Invalid request body")
	}
	if msg := validateRequest(req); msg != "" {
		return invalidRequest(c, msg)
	}

	if err := h.service.WithdrawConnectionRequest(c.Context(), middleware.Actor(c), req.FromEmail, req.ToEmail); err != nil {
		return mapNetworkError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Connection request withdrawn"})
}

func (h *ConnectionHandler) RespondToRequest(c *fiber.Ctx) error {
	var req respondRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidRequest(c, "Invalid request body")
	}
	if msg := validateRequest(req); msg != "" {
		return invalidRequest(c, msg)
	}

	decision := models.Decision(req.Status)
	connection, err := h.service.RespondToConnectionRequest(c.Context(), middleware.Actor(c), req.FromEmail, req.ToEmail, decision)
	if err != nil {
		return mapNetworkError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":    "Connection request " + string(decision),
		"status":     decision,
		"connection": connection,
	})
}

func (h *ConnectionHandler) Disconnect(c *fiber.Ctx) error {
	if err := h.service.Disconnect(c.Context(), middleware.Actor(c), c.Params("email")); err != nil {
		return mapNetworkError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Connection removed"})
}

func (h *ConnectionHandler) GetStatus(c *fiber.Ctx) error {
	status, err := h.service.GetRelationship(c.Context(), middleware.Actor(c), c.Params("email"))
	if err != nil {
		return mapNetworkError(c, err)
	}
	return c.JSON(fiber.Map{"status": status})
}

func (h *ConnectionHandler) ListConnections(c *fiber.Ctx) error {
	connections, err := h.service.ListConnections(c.Context(), middleware.Actor(c), c.Query("email"))
	if err != nil {
		return mapNetworkError(c, err)
	}
	return c.JSON(fiber.Map{"connections": connections})
}

func (h *ConnectionHandler) ListPending(c *fiber.Ctx) error {
	pending, err := h.service.ListPendingRequestsReceived(c.Context(), middleware.Actor(c), c.Query("email"))
	if err != nil {
		return mapNetworkError(c, err)
	}
	return c.JSON(fiber.Map{"pending": pending})
}

func (h *ConnectionHandler) ListSent(c *fiber.Ctx) error {
	sent, err := h.service.ListPendingRequestsSent(c.Context(), middleware.Actor(c), c.Query("email"))
	if err != nil {
		return mapNetworkError(c, err)
	}
	return c.JSON(fiber.Map{"sent": sent})
}

func (h *ConnectionHandler) GetNetwork(c *fiber.Ctx) error {
	view, err := h.service.GetNetworkView(c.Context(), middleware.Actor(c), c.Query("email"))
	if err != nil {
		return mapNetworkError(c, err)
	}
	return c.JSON(view)
}
