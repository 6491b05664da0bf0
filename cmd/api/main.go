package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/saldo-app/saldo/internal/config"
	"github.com/saldo-app/saldo/internal/infra"
	"github.com/saldo-app/saldo/internal/logging"
	"github.com/saldo-app/saldo/internal/server"
)

func main() {
	migrate := flag.Bool("migrate", false, "create the self-hosted schema before serving")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	backend, err := infra.OpenBackend(ctx, cfg, false, logger)
	if err != nil {
		logger.Error("open data backend", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	if *migrate {
		if backend.DB == nil {
			logger.Error("-migrate requires DATA_BACKEND=postgres")
			os.Exit(1)
		}
		if err := infra.Migrate(ctx, backend.DB); err != nil {
			logger.Error("migrate", "error", err)
			os.Exit(1)
		}
		logger.Info("schema migrated")
	}

	srv, err := server.New(cfg, backend, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
