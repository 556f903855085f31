// Package app provides application initialization and dependency wiring.
//
// App is the container holding every long-lived component: configuration,
// logger, database pool, store, Gemini client, session registry, answer
// engine, and the HTTP server. Setup builds them in dependency order and
// Close releases them in reverse.
package app

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/farosearch/faro/api"
	"github.com/farosearch/faro/internal/answer"
	"github.com/farosearch/faro/internal/config"
	"github.com/farosearch/faro/internal/gemini"
	"github.com/farosearch/faro/internal/log"
	"github.com/farosearch/faro/internal/store"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	DBPool   *pgxpool.Pool
	Store    *store.Store
	Gemini   *gemini.Client
	Registry *answer.Registry
	Engine   *answer.Engine
	Server   *api.Server

	// Lifecycle management
	otelCleanup func()
	cancel      context.CancelFunc
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.cancel != nil {
		a.cancel()
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		if a.Logger != nil {
			a.Logger.Info("database pool closed")
		}
	}

	// Flush pending spans last so shutdown itself is traced.
	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}
