package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/saldo-app/saldo/internal/config"
	"github.com/saldo-app/saldo/internal/infra"
	"github.com/saldo-app/saldo/internal/logging"
	"github.com/saldo-app/saldo/internal/notification"
	"github.com/saldo-app/saldo/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so they do not interleave with the screen.
	logger := logging.NewText(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := infra.OpenBackend(ctx, cfg, true, logger)
	if err != nil {
		logger.Error("open data backend", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	banner := notification.NewBanner(cfg.MessageTTL)
	notifier := notification.Fanout{banner, notification.NewLoggerNotifier(logger)}
	ctrl := tracker.New(backend.Client, notifier, tracker.Options{Currency: cfg.CurrencySymbol, Logger: logger})
	defer ctrl.Close()

	if err := tracker.NewShell(ctrl, os.Stdin, os.Stdout, banner).Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("shell", "error", err)
		os.Exit(1)
	}
}
