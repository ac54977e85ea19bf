// ABOUTME: Session context for tracking identity through console request handlers
// ABOUTME: Provides WithSession/FromContext for propagating the session via context

package auth

import (
	"context"

	"github.com/2389/factdesk/internal/session"
)

// sessionContextKey is the key type for storing the Session in context.Context.
type sessionContextKey struct{}

// WithSession returns a new context with the session attached.
func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// FromContext retrieves the session from the context, returning nil if not present.
func FromContext(ctx context.Context) *session.Session {
	val := ctx.Value(sessionContextKey{})
	if val == nil {
		return nil
	}
	s, ok := val.(*session.Session)
	if !ok {
		return nil
	}
	return s
}

// MustFromContext retrieves the session from the context, panicking if not present.
func MustFromContext(ctx context.Context) *session.Session {
	s := FromContext(ctx)
	if s == nil {
		panic("auth: session not found in context")
	}
	return s
}
