// ABOUTME: Auth gateway owning the login/signup state machine for one client
// ABOUTME: Seeds from and persists to a session.Store; logout never touches the network

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/2389/factdesk/internal/api"
	"github.com/2389/factdesk/internal/session"
)

// State is the gateway's authentication state.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
	StateError
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Authenticator performs the network half of login and signup.
// *api.Client satisfies it.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*api.AuthReply, error)
	Signup(ctx context.Context, req api.SignupRequest) (*api.AuthReply, error)
}

// Gateway holds the in-memory session for one client and keeps the
// durable slot in step with it. Safe for concurrent use.
type Gateway struct {
	mu      sync.RWMutex
	authn   Authenticator
	store   session.Store
	logger  *slog.Logger
	now     func() time.Time
	state   State
	sess    *session.Session
	lastErr error
}

// NewGateway creates a gateway in the Unauthenticated state. Call Init to
// seed it from the store. Pass nil logger for default.
func NewGateway(authn Authenticator, store session.Store, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		authn:  authn,
		store:  store,
		logger: logger.With("component", "auth"),
		now:    time.Now,
		state:  StateUnauthenticated,
	}
}

// Init seeds state from the store. An absent or malformed session leaves
// the gateway Unauthenticated; a session whose JWT has expired is cleared.
func (g *Gateway) Init(ctx context.Context) error {
	sess, err := g.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	if sess != nil && TokenExpired(sess.Token, g.now()) {
		g.logger.Info("stored session expired, clearing", "user_id", sess.User.ID)
		if err := g.store.Clear(ctx); err != nil {
			return fmt.Errorf("clearing expired session: %w", err)
		}
		sess = nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.sess = sess
	g.lastErr = nil
	if sess != nil {
		g.state = StateAuthenticated
	} else {
		g.state = StateUnauthenticated
	}
	return nil
}

// Login authenticates with email and password. On success the session is
// persisted and returned. Failures carry the server's reason when it sent
// one, else "login failed".
func (g *Gateway) Login(ctx context.Context, email, password string) (*session.Session, error) {
	g.begin()

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, g.fail(api.Validation("email and password are required"))
	}

	reply, err := g.authn.Login(ctx, email, password)
	if err != nil {
		return nil, g.fail(authFailure(err, "login failed"))
	}
	return g.complete(ctx, reply, "login failed")
}

// Signup creates an account with the requested role. The API decides
// whether the role is granted; the returned user's role is used as-is.
func (g *Gateway) Signup(ctx context.Context, name, email, password string, role session.Role) (*session.Session, error) {
	g.begin()

	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, g.fail(api.Validation("name, email and password are required"))
	}
	if !role.Valid() {
		return nil, g.fail(api.Validation("unknown role %q", role))
	}

	reply, err := g.authn.Signup(ctx, api.SignupRequest{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     role,
	})
	if err != nil {
		return nil, g.fail(authFailure(err, "signup failed"))
	}
	return g.complete(ctx, reply, "signup failed")
}

// Logout drops the in-memory session and clears the store.
func (g *Gateway) Logout(ctx context.Context) error {
	g.mu.Lock()
	userID := int64(0)
	if g.sess != nil {
		userID = g.sess.User.ID
	}
	g.sess = nil
	g.lastErr = nil
	g.state = StateUnauthenticated
	g.mu.Unlock()

	if err := g.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	g.logger.Info("logged out", "user_id", userID)
	return nil
}

// Teardown ends the gateway's lifecycle. It is Logout under another name
// for owners that manage lifecycles generically.
func (g *Gateway) Teardown(ctx context.Context) error {
	return g.Logout(ctx)
}

// State returns the current state.
func (g *Gateway) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Session returns a copy of the current session, or nil.
func (g *Gateway) Session() *session.Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.sess == nil {
		return nil
	}
	cp := *g.sess
	return &cp
}

// LastError returns the error from the most recent failed attempt. It is
// cleared when the next attempt starts.
func (g *Gateway) LastError() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastErr
}

func (g *Gateway) begin() {
	g.mu.Lock()
	g.state = StateAuthenticating
	g.lastErr = nil
	g.mu.Unlock()
}

func (g *Gateway) fail(err error) error {
	g.mu.Lock()
	g.state = StateError
	g.lastErr = err
	g.mu.Unlock()

	g.logger.Debug("authentication attempt failed", "error", err)
	return err
}

func (g *Gateway) complete(ctx context.Context, reply *api.AuthReply, generic string) (*session.Session, error) {
	sess := &session.Session{Token: reply.Token, User: reply.User}
	if err := sess.Validate(); err != nil {
		return nil, g.fail(&api.Error{Kind: api.KindAuthentication, Message: generic, Err: err})
	}

	if err := g.store.Save(ctx, sess); err != nil {
		return nil, g.fail(fmt.Errorf("saving session: %w", err))
	}

	g.mu.Lock()
	g.sess = sess
	g.state = StateAuthenticated
	g.lastErr = nil
	g.mu.Unlock()

	g.logger.Info("authenticated", "user_id", sess.User.ID, "role", sess.User.Role)
	cp := *sess
	return &cp, nil
}

// authFailure maps a login/signup error onto AuthenticationFailure,
// keeping the server's reason when it supplied one.
func authFailure(err error, generic string) error {
	msg := generic
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Status != 0 && apiErr.Message != "" {
		msg = apiErr.Message
	}
	return &api.Error{Kind: api.KindAuthentication, Message: msg, Err: err}
}
