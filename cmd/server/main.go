package main

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stackstart/api/internal/apperrors"
	"github.com/stackstart/api/internal/config"
	"github.com/stackstart/api/internal/dto"
	"github.com/stackstart/api/internal/handlers"
	"github.com/stackstart/api/internal/logging"
	"github.com/stackstart/api/internal/middleware"
	"github.com/stackstart/api/internal/repository"
	"github.com/stackstart/api/internal/repository/gormrepo"
	"github.com/stackstart/api/internal/repository/memory"
	"github.com/stackstart/api/internal/routes"
	"github.com/stackstart/api/internal/services"
	"github.com/stackstart/api/internal/token"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// Structured logging (JSON to stdout)
	logging.Setup(cfg.LogLevel)

	// Storage
	var (
		store *repository.Store
		db    *gorm.DB
	)
	switch cfg.DBDriver {
	case "postgres":
		store, db, err = gormrepo.Connect(cfg)
		if err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
	default:
		store = memory.NewStore()
		slog.Warn("using in-memory storage; data is lost on restart")
	}

	// Token service (refuses weak secrets)
	tokens, err := token.NewService(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	if err != nil {
		slog.Error("token service init failed", "error", err)
		os.Exit(1)
	}

	// Services
	authService := services.NewAuthService(store, tokens)
	oauthService := services.NewOAuthService(cfg, store, authService)
	itemService := services.NewItemService(store)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	oauthHandler := handlers.NewOAuthHandler(oauthService, cfg)
	itemHandler := handlers.NewItemHandler(itemService)

	var ping func() error
	if db != nil {
		ping = func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Ping()
		}
	}
	healthHandler := handlers.NewHealthHandler(ping)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: errorHandler(cfg),
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		return c.Next()
	})

	// Routes
	routes.Setup(app, tokens, authHandler, oauthHandler, itemHandler, healthHandler)

	// Expired-session sweep
	sweeperDone := make(chan struct{})
	services.StartSessionSweeper(store.Sessions, sweeperDone)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "storage", cfg.DBDriver)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(sweeperDone)
	sentry.Flush(2 * time.Second)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				slog.Error("database close error", "error", err)
			}
		}
	}

	slog.Info("server stopped")
}

// errorHandler translates typed errors into the response envelope. 5xx
// detail is logged server-side and suppressed for clients outside
// development.
func errorHandler(cfg *config.Config) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(dto.Fail("HTTP_ERROR", fiberErr.Message))
		}

		appErr := apperrors.From(err)
		message := appErr.Message
		if appErr.Status >= fiber.StatusInternalServerError {
			slog.Error("unhandled server error",
				"method", c.Method(), "path", c.Path(), "error", err.Error())
			if !cfg.IsDevelopment() {
				message = "Internal server error"
			}
		}
		return c.Status(appErr.Status).JSON(dto.Fail(appErr.Code, message, appErr.Details...))
	}
}
