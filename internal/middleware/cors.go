package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/stackstart/api/internal/config"
)

// CORS allows credentials only when the origin list is explicit; the
// oauth flow cookies need them, but browsers reject credentials paired
// with a wildcard origin.
func CORS(cfg *config.Config) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Authorization, Accept",
		AllowMethods:     "GET, POST, PUT, DELETE, PATCH, OPTIONS",
		AllowCredentials: cfg.CORSOrigins != "*",
	})
}
