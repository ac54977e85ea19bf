// ABOUTME: Session slot backed by a console session row in the SQLite store
// ABOUTME: One SlotStore per browser session ID; malformed rows read as empty

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/factdesk/internal/store"
)

// SlotBackend is the subset of the store used by SlotStore.
type SlotBackend interface {
	PutConsoleSession(ctx context.Context, cs *store.ConsoleSession) error
	GetConsoleSession(ctx context.Context, id string) (*store.ConsoleSession, error)
	DeleteConsoleSession(ctx context.Context, id string) error
}

// SlotStore binds the Store contract to one console session row.
type SlotStore struct {
	backend SlotBackend
	id      string
	ttl     time.Duration
	logger  *slog.Logger
}

// NewSlotStore creates a slot for the given console session ID. Saved
// sessions expire ttl after their last save.
func NewSlotStore(backend SlotBackend, id string, ttl time.Duration, logger *slog.Logger) *SlotStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlotStore{
		backend: backend,
		id:      id,
		ttl:     ttl,
		logger:  logger.With("component", "session"),
	}
}

// ID returns the console session ID this slot is bound to.
func (s *SlotStore) ID() string {
	return s.id
}

func (s *SlotStore) Load(ctx context.Context) (*Session, error) {
	row, err := s.backend.GetConsoleSession(ctx, s.id)
	if errors.Is(err, store.ErrConsoleSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading console session: %w", err)
	}

	sess, err := Decode(row.Payload)
	if err != nil {
		s.logger.Warn("ignoring malformed console session", "id", s.id, "error", err)
		return nil, nil
	}
	return sess, nil
}

func (s *SlotStore) Save(ctx context.Context, sess *Session) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	return s.backend.PutConsoleSession(ctx, &store.ConsoleSession{
		ID:        s.id,
		Payload:   data,
		ExpiresAt: time.Now().Add(s.ttl),
	})
}

func (s *SlotStore) Clear(ctx context.Context) error {
	return s.backend.DeleteConsoleSession(ctx, s.id)
}
