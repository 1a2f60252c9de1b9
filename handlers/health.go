package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/database"
	"github.com/sahilchouksey/learnhub-api/utils/response"
)

// HealthHandler reports liveness and database reachability
type HealthHandler struct {
	store   database.Storage
	started time.Time
}

func NewHealthHandler(store database.Storage) *HealthHandler {
	return &HealthHandler{store: store, started: time.Now()}
}

// Ping handles GET /ping
func (h *HealthHandler) Ping(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Health handles GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	if err := h.store.HealthCheck(); err != nil {
		return response.ServiceUnavailable(c, "Database unreachable")
	}
	return response.Success(c, fiber.Map{
		"status":   "ok",
		"database": "ok",
		"uptime":   time.Since(h.started).Round(time.Second).String(),
	})
}
