// ABOUTME: Browser console for factdesk: login, role-composed dashboard and htmx panels
// ABOUTME: Each browser session gets its own view tree backed by a SQLite session row

package webconsole

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/factdesk/internal/api"
	"github.com/2389/factdesk/internal/auth"
	"github.com/2389/factdesk/internal/dedupe"
	"github.com/2389/factdesk/internal/metrics"
	"github.com/2389/factdesk/internal/panels"
	"github.com/2389/factdesk/internal/refresh"
	"github.com/2389/factdesk/internal/session"
)

const (
	// SessionCookieName is the name of the console session cookie
	SessionCookieName = "factdesk_session"

	// CSRFCookieName is the name of the CSRF token cookie
	CSRFCookieName = "factdesk_csrf"

	// submissionTTL bounds how long a rendered form can still be submitted
	submissionTTL = time.Hour

	// maxOutstandingSubmissions caps the one-shot submission IDs held in memory
	maxOutstandingSubmissions = 10000

	cookiePath = "/console"
)

// Config holds console configuration
type Config struct {
	APIBaseURL      string
	APITimeout      time.Duration
	MaxParallel     int
	SessionDuration time.Duration
	IdleTimeout     time.Duration
	SecureCookies   bool
	// UserAgent is sent on upstream API requests when set.
	UserAgent string
	// BaseURL is the external URL of the console, used in absolute links
	BaseURL string
}

// Backend is the persistence the console needs for browser sessions.
// *store.SQLiteStore satisfies it.
type Backend interface {
	session.SlotBackend
	DeleteExpiredConsoleSessions(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// Console handles console routes and per-browser state
type Console struct {
	backend  Backend
	cfg      Config
	base     *api.Client
	registry *Registry
	guard    *dedupe.Guard
	metrics  *metrics.Metrics
	pages    *renderer
	logger   *slog.Logger
	// baseLogger is the logger handed to components that add their own
	// component attribute.
	baseLogger *slog.Logger
}

// Option configures a Console.
type Option func(*Console)

// WithMetrics records API calls, refresh bumps, live trees and duplicate
// submissions into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Console) { c.metrics = m }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Console) { c.logger = l }
}

// New creates a console. Call Close to stop its background goroutines.
func New(backend Backend, cfg Config, opts ...Option) (*Console, error) {
	c := &Console{
		backend: backend,
		cfg:     cfg,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.baseLogger = c.logger
	c.logger = c.logger.With("component", "console")

	pages, err := newRenderer()
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	c.pages = pages

	apiOpts := []api.Option{api.WithLogger(c.baseLogger)}
	if cfg.UserAgent != "" {
		apiOpts = append(apiOpts, api.WithUserAgent(cfg.UserAgent))
	}
	if cfg.APITimeout > 0 {
		apiOpts = append(apiOpts, api.WithTimeout(cfg.APITimeout))
	}
	if c.metrics != nil {
		apiOpts = append(apiOpts, api.WithObserver(c.metrics))
	}
	c.base = api.New(cfg.APIBaseURL, apiOpts...)

	regOpts := []RegistryOption{WithJanitor(c.purgeExpiredSessions)}
	if c.metrics != nil {
		regOpts = append(regOpts, WithOnChange(c.metrics.SetViewTrees))
	}
	c.registry = NewRegistry(c.newTree, cfg.IdleTimeout, c.baseLogger, regOpts...)
	c.guard = dedupe.New(submissionTTL, maxOutstandingSubmissions)

	return c, nil
}

// Close stops background work and drops every view tree.
func (c *Console) Close() {
	c.registry.Close()
	c.guard.Close()
}

// Registry exposes the view tree registry.
func (c *Console) Registry() *Registry {
	return c.registry
}

// RegisterRoutes registers all console routes on the given mux
func (c *Console) RegisterRoutes(mux *http.ServeMux) {
	// Public routes (no session required)
	mux.HandleFunc("GET /console/login", c.withTree(c.handleLoginPage))
	mux.HandleFunc("POST /console/login", c.withTree(c.handleLogin))
	mux.HandleFunc("GET /console/signup", c.withTree(c.handleSignupPage))
	mux.HandleFunc("POST /console/signup", c.withTree(c.handleSignup))
	mux.HandleFunc("GET /console/help", c.withTree(c.handleHelp))

	// Session routes
	mux.HandleFunc("GET /console/{$}", c.withTree(c.requireSession(c.handleDashboard)))
	mux.HandleFunc("GET /console", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/console/", http.StatusSeeOther)
	})
	mux.HandleFunc("POST /console/logout", c.withTree(c.handleLogout))
	mux.HandleFunc("GET /console/panels/{panel}", c.withTree(c.requireSession(c.handlePanel)))
	mux.HandleFunc("POST /console/panels/{panel}", c.withTree(c.requireSession(c.handleSubmit)))
	mux.HandleFunc("POST /console/reports/{id}/review", c.withTree(c.requireSession(c.handleReview)))
	mux.HandleFunc("GET /console/events", c.withTree(c.requireSession(c.handleEvents)))

	// Health
	mux.HandleFunc("GET /health", c.handleHealth)
	mux.HandleFunc("GET /health/ready", c.handleReady)

	c.logger.Info("console routes registered")
}

// newTree builds the view tree for a console session ID, restoring any
// session persisted for it.
func (c *Console) newTree(ctx context.Context, id string) (*viewTree, error) {
	slot := session.NewSlotStore(c.backend, id, c.cfg.SessionDuration, c.baseLogger)
	gw := auth.NewGateway(c.base, slot, c.baseLogger)
	if err := gw.Init(ctx); err != nil {
		return nil, err
	}

	t := &viewTree{
		id:      id,
		gateway: gw,
		coord:   refresh.New(),
		base:    c.base,
		fetch:   panels.FetchOptions{MaxParallel: c.cfg.MaxParallel, Logger: c.baseLogger.With("component", "panels")},
	}
	if c.metrics != nil {
		t.unsubscribe = t.coord.Subscribe(func(uint64) { c.metrics.RefreshBumped() })
	}
	t.rebind()
	return t, nil
}

func (c *Console) purgeExpiredSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	n, err := c.backend.DeleteExpiredConsoleSessions(ctx)
	if err != nil {
		c.logger.Warn("failed to purge expired console sessions", "error", err)
		return
	}
	if n > 0 {
		c.logger.Debug("purged expired console sessions", "count", n)
	}
}

// generateSecureToken generates a cryptographically secure random token
func generateSecureToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
