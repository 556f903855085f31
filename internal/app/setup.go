package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/farosearch/faro/api"
	"github.com/farosearch/faro/db"
	"github.com/farosearch/faro/internal/answer"
	"github.com/farosearch/faro/internal/config"
	"github.com/farosearch/faro/internal/gemini"
	"github.com/farosearch/faro/internal/log"
	"github.com/farosearch/faro/internal/observability"
	"github.com/farosearch/faro/internal/store"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	a := &App{Config: cfg}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				slog.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.Logger = provideLogger(cfg)
	a.otelCleanup = provideOtelShutdown(ctx, cfg, a.Logger)

	pool, err := provideDBPool(ctx, cfg, a.Logger)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool
	a.Store = store.New(pool, a.Logger)

	client, err := provideGemini(ctx, cfg, a.Logger)
	if err != nil {
		return nil, err
	}
	a.Gemini = client

	registry, err := answer.NewRegistry(client, cfg.SessionCapacity, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating session registry: %w", err)
	}
	a.Registry = registry

	engine, err := answer.New(answer.Config{
		Provider: client,
		Registry: registry,
		Logger:   a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating answer engine: %w", err)
	}
	a.Engine = engine

	a.Server = api.NewServer(api.Options{
		Engine:      engine,
		Proxy:       client,
		Store:       a.Store,
		Pool:        pool,
		Logger:      a.Logger,
		CORSOrigins: cfg.CORSOrigins,
	})

	_, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	return a, nil
}

// provideLogger builds the application logger from config.
func provideLogger(cfg *config.Config) log.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	return log.New(log.Config{Level: level, JSON: cfg.LogJSON})
}

// provideOtelShutdown sets up trace export before anything else so the
// TracerProvider is ready when components start.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	if !cfg.Tracing.Enabled {
		return func() {}
	}

	shutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Tracing.Environment,
	})
	if err != nil {
		logger.Warn("setting up tracing", "error", err)
		return func() {}
	}

	//nolint:contextcheck // Independent context: shutdown runs during teardown when parent is canceled
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and opens the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("database ready", "host", cfg.PostgresHost, "database", cfg.PostgresDBName)
	return pool, nil
}

// provideGemini builds the provider client with rate limiting and retries.
func provideGemini(ctx context.Context, cfg *config.Config, logger log.Logger) (*gemini.Client, error) {
	retry := gemini.DefaultRetryConfig()
	retry.MaxRetries = cfg.MaxRetries

	client, err := gemini.New(ctx, gemini.Config{
		APIKey:  cfg.GeminiAPIKey(),
		Model:   cfg.ModelName,
		Logger:  logger,
		Limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.RequestBurst),
		Retry:   retry,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return client, nil
}
