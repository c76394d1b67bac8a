package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/AlumniNetworkBack/internal/apperr"
)

const retryAfterSeconds = "5"

func errorResponse(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{
		"error": apperr.Message(err),
		"code":  apperr.Code(err),
	})
}

func invalidRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
		"code":  apperr.Code(apperr.ErrInvalidInput),
	})
}

// mapNetworkError turns a service error into the HTTP contract. Missing
// requests and connections are client mistakes and stay 400.
func mapNetworkError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, apperr.ErrStoreUnavailable):
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
		return errorResponse(c, fiber.StatusServiceUnavailable, err)
	case errors.Is(err, apperr.ErrForbidden):
		return errorResponse(c, fiber.StatusForbidden, err)
	case errors.Is(err, apperr.ErrUserNotFound):
		return errorResponse(c, fiber.StatusNotFound, err)
	case errors.Is(err, apperr.ErrAlreadyRequested),
		errors.Is(err, apperr.ErrAlreadyConnected),
		errors.Is(err, apperr.ErrNoSuchRequest),
		errors.Is(err, apperr.ErrNotConnected):
		return errorResponse(c, fiber.StatusBadRequest, err)
	case apperr.KindOf(err) == apperr.KindValidation:
		return errorResponse(c, fiber.StatusBadRequest, err)
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process request",
			"code":  apperr.Code(err),
		})
	}
}
