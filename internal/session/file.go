// ABOUTME: File-backed session slot used by the factdesk-admin CLI
// ABOUTME: Writes atomically with 0600 permissions under the XDG config directory

package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// FileStore keeps the session in a single JSON file.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore creates a store at path. Pass nil logger for default.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		path:   path,
		logger: logger.With("component", "session", "path", path),
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/factdesk/session.json, falling back
// to ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "session.json"
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "factdesk", "session.json")
}

// Path returns the file location.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the session file.
func (f *FileStore) Load(_ context.Context) (*Session, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	s, err := Decode(data)
	if err != nil {
		f.logger.Warn("ignoring malformed session file", "error", err)
		return nil, nil
	}
	return s, nil
}

// Save writes the session to a temp file in the same directory and renames it into place.
func (f *FileStore) Save(_ context.Context, s *Session) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("creating temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("setting session file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing session file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replacing session file: %w", err)
	}

	f.logger.Debug("session saved", "user_id", s.User.ID)
	return nil
}

// Clear removes the session file.
func (f *FileStore) Clear(_ context.Context) error {
	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}
