// ABOUTME: Console session slot rows: one serialized session payload per browser session ID
// ABOUTME: Expired rows read as not found and are pruned by DeleteExpiredConsoleSessions

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrConsoleSessionNotFound is returned when a slot doesn't exist or has expired.
var ErrConsoleSessionNotFound = errors.New("console session not found")

// ConsoleSession is the persisted form of one browser session slot.
// Payload is opaque to the store.
type ConsoleSession struct {
	ID        string
	Payload   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// PutConsoleSession inserts or overwrites the slot with the given ID.
// CreatedAt is preserved on overwrite.
func (s *SQLiteStore) PutConsoleSession(ctx context.Context, cs *ConsoleSession) error {
	query := `
		INSERT INTO console_sessions (id, payload, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload    = excluded.payload,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at
	`

	now := time.Now().UTC()
	createdAt := cs.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err := s.db.ExecContext(ctx, query,
		cs.ID,
		cs.Payload,
		createdAt.UTC().Format(time.RFC3339),
		now.Format(time.RFC3339),
		cs.ExpiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting console session: %w", err)
	}

	s.logger.Debug("saved console session", "id", cs.ID)
	return nil
}

// GetConsoleSession retrieves a non-expired slot.
func (s *SQLiteStore) GetConsoleSession(ctx context.Context, id string) (*ConsoleSession, error) {
	query := `
		SELECT id, payload, created_at, updated_at, expires_at
		FROM console_sessions
		WHERE id = ? AND expires_at > ?
	`

	var cs ConsoleSession
	var createdAt, updatedAt, expiresAt string
	now := time.Now().UTC().Format(time.RFC3339)

	err := s.db.QueryRowContext(ctx, query, id, now).Scan(
		&cs.ID,
		&cs.Payload,
		&createdAt,
		&updatedAt,
		&expiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConsoleSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying console session: %w", err)
	}

	if cs.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if cs.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	if cs.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt); err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}

	return &cs, nil
}

// DeleteConsoleSession removes a slot. Deleting a missing slot is not an error.
func (s *SQLiteStore) DeleteConsoleSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM console_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting console session: %w", err)
	}

	s.logger.Debug("deleted console session", "id", id)
	return nil
}

// DeleteExpiredConsoleSessions prunes expired slots and reports how many were removed.
func (s *SQLiteStore) DeleteExpiredConsoleSessions(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := s.db.ExecContext(ctx, `DELETE FROM console_sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("deleting expired console sessions: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	if n > 0 {
		s.logger.Info("pruned expired console sessions", "count", n)
	}
	return n, nil
}

// CountConsoleSessions returns the number of live slots.
func (s *SQLiteStore) CountConsoleSessions(ctx context.Context) (int, error) {
	var count int
	now := time.Now().UTC().Format(time.RFC3339)
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM console_sessions WHERE expires_at > ?`, now).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting console sessions: %w", err)
	}
	return count, nil
}
