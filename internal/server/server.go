// ABOUTME: Wires config, the session store, metrics and the console into one HTTP server
// ABOUTME: Run serves until the context is cancelled, then shuts down gracefully

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/2389/factdesk/internal/config"
	"github.com/2389/factdesk/internal/metrics"
	"github.com/2389/factdesk/internal/store"
	"github.com/2389/factdesk/internal/webconsole"
)

// Server is the factdesk-console process: one HTTP listener serving the
// console, health checks and optionally metrics.
type Server struct {
	config     *config.Config
	store      *store.SQLiteStore
	console    *webconsole.Console
	metrics    *metrics.Metrics
	httpServer *http.Server
	logger     *slog.Logger
}

// New opens the session database and builds the console from cfg. version
// is reported to the upstream API in the User-Agent header.
func New(cfg *config.Config, version string, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(cfg.Database.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	m := metrics.New()
	console, err := webconsole.New(s, webconsole.Config{
		APIBaseURL:      cfg.API.BaseURL,
		APITimeout:      cfg.API.Timeout,
		MaxParallel:     cfg.API.MaxParallel,
		SessionDuration: cfg.Console.SessionDuration,
		IdleTimeout:     cfg.Console.IdleTimeout,
		SecureCookies:   cfg.Console.SecureCookies,
		UserAgent:       "factdesk-console/" + version,
		BaseURL:         cfg.ConsoleBaseURL(),
	}, webconsole.WithMetrics(m), webconsole.WithLogger(logger))
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("creating console: %w", err)
	}

	srv := &Server{
		config:  cfg,
		store:   s,
		console: console,
		metrics: m,
		logger:  logger.With("component", "server"),
	}

	mux := http.NewServeMux()
	console.RegisterRoutes(mux)
	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, m.Handler())
		srv.logger.Info("metrics enabled", "path", cfg.Metrics.Path)
	}
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/console/", http.StatusSeeOther)
	})

	srv.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv, nil
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run listens on server.http_addr and serves until ctx is cancelled or the
// listener fails. Returns nil on a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		_ = s.gracefulShutdown()
		return fmt.Errorf("listening on %s: %w", s.config.Server.HTTPAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := s.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown uses a fresh context since the serving one is already done.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops the listener, the console's background work and the store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))
	s.console.Close()
	errs = appendCloseError(errs, "store close", s.store.Close())

	return errors.Join(errs...)
}

func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}
