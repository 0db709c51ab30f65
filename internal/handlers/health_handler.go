package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stackstart/api/internal/dto"
)

type HealthHandler struct {
	// ping reports storage health; nil for the in-memory store.
	ping func() error
}

func NewHealthHandler(ping func() error) *HealthHandler {
	return &HealthHandler{ping: ping}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if h.ping != nil {
		if err := h.ping(); err != nil {
			dbStatus = "unhealthy: " + err.Error()
		}
	}

	return c.JSON(dto.OK(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
	}))
}
