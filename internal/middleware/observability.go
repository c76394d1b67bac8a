package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/saeid-a/AlumniNetworkBack/internal/logger"
	"github.com/saeid-a/AlumniNetworkBack/internal/metrics"
)

const (
	HeaderRequestID = "X-Request-ID"
	LocalRequestID  = "request_id"
)

// RequestID reuses an incoming X-Request-ID or mints one.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(LocalRequestID, id)
		c.Set(HeaderRequestID, id)
		return c.Next()
	}
}

// RequestLogger writes one structured line per request and records HTTP
// metrics under the matched route pattern.
func RequestLogger(log *logger.Logger, collector *metrics.Collector) fiber.Handler {
	log = log.With("component", "http")
	return func(c *fiber.Ctx) error {
		started := time.Now()
		err := c.Next()
		if err != nil {
			// Let the app error handler set the status before we read it.
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		elapsed := time.Since(started)
		status := c.Response().StatusCode()
		route := c.Route().Path
		collector.ObserveHTTP(c.Method(), route, status, elapsed)

		fields := []interface{}{
			"method", c.Method(),
			"path", c.Path(),
			"route", route,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", c.Locals(LocalRequestID),
		}
		if actor := Actor(c); actor != "" {
			fields = append(fields, "actor", actor)
		}
		switch {
		case status >= fiber.StatusInternalServerError:
			log.Error("request failed", fields...)
		case status >= fiber.StatusBadRequest:
			log.Warn("request rejected", fields...)
		default:
			log.Info("request completed", fields...)
		}
		return nil
	}
}
