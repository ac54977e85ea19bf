// ABOUTME: Optional TOML profile for factdesk-admin (API URL, session file, timeouts)
// ABOUTME: Flags override FACTDESK_API_URL, which overrides the profile, which overrides defaults

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/2389/factdesk/internal/config"
	"github.com/2389/factdesk/internal/session"
)

// Profile is the admin CLI's settings file.
type Profile struct {
	APIURL      string `toml:"api_url"`
	SessionPath string `toml:"session_path"`
	Timeout     string `toml:"timeout"`
	MaxParallel int    `toml:"max_parallel"`
	NoColor     bool   `toml:"no_color"`

	timeout time.Duration
}

// getProfilePath returns the profile path.
// Priority: FACTDESK_ADMIN_CONFIG env var > XDG_CONFIG_HOME/factdesk/admin.toml > ~/.config/factdesk/admin.toml
func getProfilePath() string {
	if envPath := os.Getenv("FACTDESK_ADMIN_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "admin.toml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "factdesk", "admin.toml")
}

// loadProfile reads the profile at path. A missing file yields defaults.
func loadProfile(path string) (*Profile, error) {
	p := &Profile{}
	if _, err := toml.DecodeFile(path, p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if p.Timeout != "" {
		d, err := time.ParseDuration(p.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", p.Timeout, err)
		}
		p.timeout = d
	}
	if p.MaxParallel < 0 {
		return nil, fmt.Errorf("max_parallel must be at least 1, got %d", p.MaxParallel)
	}
	return p, nil
}

// resolve applies environment and flag overrides and fills defaults.
func (p *Profile) resolve(apiURLFlag, sessionFlag string) {
	if env := os.Getenv("FACTDESK_API_URL"); env != "" {
		p.APIURL = env
	}
	if apiURLFlag != "" {
		p.APIURL = apiURLFlag
	}
	if p.APIURL == "" {
		p.APIURL = config.DefaultAPIBaseURL
	}

	if sessionFlag != "" {
		p.SessionPath = sessionFlag
	}
	if p.SessionPath == "" {
		p.SessionPath = session.DefaultPath()
	}

	if p.timeout == 0 {
		p.timeout = config.DefaultAPITimeout
	}
	if p.MaxParallel == 0 {
		p.MaxParallel = config.DefaultMaxParallel
	}
}
