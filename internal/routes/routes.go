package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/stackstart/api/internal/handlers"
	"github.com/stackstart/api/internal/middleware"
	"github.com/stackstart/api/internal/token"
)

func Setup(
	app *fiber.App,
	tokens *token.Service,
	authHandler *handlers.AuthHandler,
	oauthHandler *handlers.OAuthHandler,
	itemHandler *handlers.ItemHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Public auth routes carry a stricter limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	// "providers" must register before the :provider param route or it
	// gets swallowed by it.
	auth.Get("/oauth/providers", oauthHandler.Providers)
	auth.Get("/oauth/:provider", oauthHandler.Authorize)
	auth.Get("/callback/:provider", oauthHandler.Callback)

	// Protected auth routes
	requireAuth := middleware.RequireAuth(tokens)
	auth.Post("/logout", requireAuth, authHandler.Logout)
	auth.Get("/me", requireAuth, authHandler.Me)
	auth.Get("/sessions", requireAuth, authHandler.ListSessions)
	auth.Delete("/sessions/:id", requireAuth, authHandler.RevokeSession)

	// Items (ownership enforced in the service after load)
	items := api.Group("/items", requireAuth)
	items.Get("/", itemHandler.List)
	items.Post("/", itemHandler.Create)
	items.Get("/:id", itemHandler.Get)
	items.Put("/:id", itemHandler.Update)
	items.Delete("/:id", itemHandler.Delete)
}
