// Package api provides the HTTP REST API for Faro.
//
// Endpoints:
//
//	GET  /health                 - liveness probe
//	GET  /ready                  - readiness probe (pings the database)
//	POST /api/chat/stream        - streaming answer (SSE)
//	POST /api/ask                - one-shot answer proxy (JSON)
//	POST /api/auth/register      - create an account
//	POST /api/auth/login         - credential check
//	GET  /api/messages           - query history
//	PATCH /api/messages/{id}     - file a message under a workspace
//	GET  /api/workspaces         - list workspaces
//	POST /api/workspaces         - create a workspace
//	PATCH /api/workspaces/{id}   - rename a workspace
//	DELETE /api/workspaces/{id}  - delete a workspace
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (recovery, logging, CORS)
//   - health.go: health check endpoints
//   - chat.go: streaming answer endpoint (SSE)
//   - ask.go: one-shot proxy endpoint
//   - auth.go: account endpoints
//   - workspace.go: workspace and history endpoints
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/farosearch/faro/internal/answer"
	"github.com/farosearch/faro/internal/gemini"
	"github.com/farosearch/faro/internal/log"
	"github.com/farosearch/faro/internal/store"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = ":8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Streamed answers can run long, so this is generous.
	WriteTimeout = 5 * time.Minute

	// IdleTimeout is the maximum time to wait for the next request on
	// keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for Faro's REST API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	corsOrigins []string

	// Handlers
	health    *HealthHandler
	chat      *ChatHandler
	ask       *AskHandler
	auth      *AuthHandler
	workspace *WorkspaceHandler
}

// Options configures a Server.
type Options struct {
	Engine      *answer.Engine
	Proxy       *gemini.Client
	Store       *store.Store
	Pool        *pgxpool.Pool
	Logger      log.Logger
	CORSOrigins []string
}

// NewServer creates a new HTTP server with all routes registered.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{
		mux:         mux,
		logger:      logger,
		corsOrigins: opts.CORSOrigins,
		health:      NewHealthHandler(opts.Pool, logger),
		chat:        NewChatHandler(opts.Engine, opts.Store, logger),
		ask:         NewAskHandler(opts.Proxy, logger),
		auth:        NewAuthHandler(opts.Store, logger),
		workspace:   NewWorkspaceHandler(opts.Store, logger),
	}

	s.health.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)
	s.ask.RegisterRoutes(mux)
	s.auth.RegisterRoutes(mux)
	s.workspace.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → CORS → logging → handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		corsMiddleware(s.corsOrigins),
		loggingMiddleware(s.logger),
	)
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
