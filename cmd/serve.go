package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/farosearch/faro/internal/app"
	"github.com/farosearch/faro/internal/config"
)

// serve initializes the application and runs the HTTP server until
// SIGINT or SIGTERM.
func serve(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("closing application", "error", err)
		}
	}()

	slog.SetDefault(a.Logger)

	return a.Server.Run(ctx, cfg.ServerAddr)
}
