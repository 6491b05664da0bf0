package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/saldo-app/saldo/internal/config"
	"github.com/saldo-app/saldo/internal/dataservice"
	"github.com/saldo-app/saldo/internal/middleware"
	"github.com/saldo-app/saldo/internal/relay"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	Client  dataservice.Client
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Logger  *slog.Logger
	Metrics *middleware.Metrics
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Client.Auth == nil || d.Client.Store == nil {
		return fmt.Errorf("data service client is required")
	}
	// Login throttling and signup replay need Redis outside of dev.
	if !d.Cfg.IsDev() && d.Cache == nil {
		return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(cors.New())
	app.Use(middleware.Audit(d.Logger))
	if d.Metrics != nil {
		app.Use(d.Metrics.Handler())
		app.Get("/metrics", d.Metrics.Endpoint())
	}

	// Health
	RegisterHealthRoutes(app, d)

	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDOf(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	h := relay.NewHandler(d.Client, d.Logger)

	var idempotency fiber.Handler
	if d.Cache != nil {
		idempotency = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}
	RegisterAuthRoutes(app, h, middleware.LoginRateLimit(d.Cache, d.Cfg.LoginAttempts), idempotency)

	if verifier, ok := d.Client.Auth.(dataservice.TokenVerifier); ok {
		RegisterProfileRoutes(app, h, middleware.RequireSession(verifier))
	} else {
		d.Logger.Warn("auth backend cannot verify tokens, /me disabled")
	}

	return nil
}
