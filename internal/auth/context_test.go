// ABOUTME: Unit tests for session context functions
// ABOUTME: Tests context propagation helpers

package auth

import (
	"context"
	"testing"

	"github.com/2389/factdesk/internal/session"
)

func TestFromContext_Present(t *testing.T) {
	s := &session.Session{User: session.User{ID: 3, Role: session.RoleReporter}}
	ctx := WithSession(context.Background(), s)

	got := FromContext(ctx)
	if got != s {
		t.Errorf("FromContext() = %v, want %v", got, s)
	}
}

func TestFromContext_Missing(t *testing.T) {
	if got := FromContext(context.Background()); got != nil {
		t.Errorf("FromContext() = %v, want nil", got)
	}
}

func TestFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), sessionContextKey{}, "not a session")
	if got := FromContext(ctx); got != nil {
		t.Errorf("FromContext() = %v, want nil", got)
	}
}

func TestMustFromContext_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustFromContext() did not panic")
		}
	}()
	MustFromContext(context.Background())
}
