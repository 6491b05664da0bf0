package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saldo-app/saldo/internal/config"
	"github.com/saldo-app/saldo/internal/infra"
	"github.com/saldo-app/saldo/internal/middleware"
	"github.com/saldo-app/saldo/internal/relay"
	"github.com/saldo-app/saldo/internal/routes"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app *fiber.App
	cfg config.Config
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, backend *infra.Backend, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          relay.ErrorHandler,
		DisableStartupMessage: !cfg.IsDev(),
	})

	deps := routes.Deps{
		Cfg:     cfg,
		Client:  backend.Client,
		DB:      backend.DB,
		Cache:   backend.Cache,
		Logger:  logger,
		Metrics: middleware.NewMetrics("saldo"),
	}
	if err := routes.Setup(app, deps); err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg}, nil
}

// App exposes the underlying Fiber application, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
