// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, defaults and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "console.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8090"

api:
  base_url: "https://api.example.org/"
  timeout: "5s"
  max_parallel: 8

database:
  path: "./console.db"

console:
  base_url: "https://desk.example.org"
  session_duration: "24h"
  idle_timeout: "10m"
  secure_cookies: true

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
  path: "/internal/metrics"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8090" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:8090")
	}
	if cfg.API.BaseURL != "https://api.example.org" {
		t.Errorf("API.BaseURL = %q, want trailing slash trimmed", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("API.Timeout = %v, want %v", cfg.API.Timeout, 5*time.Second)
	}
	if cfg.API.MaxParallel != 8 {
		t.Errorf("API.MaxParallel = %d, want 8", cfg.API.MaxParallel)
	}
	if cfg.Database.Path != "./console.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./console.db")
	}
	if cfg.Console.SessionDuration != 24*time.Hour {
		t.Errorf("Console.SessionDuration = %v, want %v", cfg.Console.SessionDuration, 24*time.Hour)
	}
	if cfg.Console.IdleTimeout != 10*time.Minute {
		t.Errorf("Console.IdleTimeout = %v, want %v", cfg.Console.IdleTimeout, 10*time.Minute)
	}
	if !cfg.Console.SecureCookies {
		t.Error("Console.SecureCookies = false, want true")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want debug/json", cfg.Logging)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/internal/metrics" {
		t.Errorf("Metrics = %+v, want enabled at /internal/metrics", cfg.Metrics)
	}
	if got := cfg.ConsoleBaseURL(); got != "https://desk.example.org" {
		t.Errorf("ConsoleBaseURL() = %q, want %q", got, "https://desk.example.org")
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, `
database:
  path: "./console.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != DefaultHTTPAddr {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, DefaultHTTPAddr)
	}
	if cfg.API.BaseURL != DefaultAPIBaseURL {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, DefaultAPIBaseURL)
	}
	if cfg.API.Timeout != 15*time.Second {
		t.Errorf("API.Timeout = %v, want 15s", cfg.API.Timeout)
	}
	if cfg.API.MaxParallel != DefaultMaxParallel {
		t.Errorf("API.MaxParallel = %d, want %d", cfg.API.MaxParallel, DefaultMaxParallel)
	}
	if cfg.Console.IdleTimeout != DefaultIdleTimeout {
		t.Errorf("Console.IdleTimeout = %v, want %v", cfg.Console.IdleTimeout, DefaultIdleTimeout)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want info/text", cfg.Logging)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want false by default")
	}
	if got := cfg.ConsoleBaseURL(); got != "http://localhost:8090" {
		t.Errorf("ConsoleBaseURL() = %q, want %q", got, "http://localhost:8090")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_FACTDESK_API", "https://upstream.example.org")
	t.Setenv("TEST_FACTDESK_DB", "/var/lib/factdesk/console.db")

	configPath := writeConfig(t, `
api:
  base_url: "${TEST_FACTDESK_API}"
database:
  path: "${TEST_FACTDESK_DB}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != "https://upstream.example.org" {
		t.Errorf("API.BaseURL = %q, want expanded value", cfg.API.BaseURL)
	}
	if cfg.Database.Path != "/var/lib/factdesk/console.db" {
		t.Errorf("Database.Path = %q, want expanded value", cfg.Database.Path)
	}
}

func TestLoad_EnvVarExpansion_UnsetVar(t *testing.T) {
	configPath := writeConfig(t, `
database:
  path: "${DEFINITELY_UNSET_FACTDESK_VAR}"
`)

	_, err := Load(configPath)
	if err == nil || !strings.Contains(err.Error(), "database.path is required") {
		t.Errorf("Load() error = %v, want database.path is required", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/console.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr "missing colon"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, `
api:
  timeout: "soon"
database:
  path: "./console.db"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for invalid duration, got nil")
	}
	if !strings.Contains(err.Error(), "api.timeout") {
		t.Errorf("Load() error = %q, want it to name api.timeout", err.Error())
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name          string
		configContent string
		wantErrSubstr string
	}{
		{
			name: "missing database path",
			configContent: `
database:
  path: ""
`,
			wantErrSubstr: "database.path is required",
		},
		{
			name: "non-http api url",
			configContent: `
api:
  base_url: "ftp://files.example.org"
database:
  path: "./console.db"
`,
			wantErrSubstr: "api.base_url must be an http(s) URL",
		},
		{
			name: "negative parallelism",
			configContent: `
api:
  max_parallel: -2
database:
  path: "./console.db"
`,
			wantErrSubstr: "api.max_parallel must be at least 1",
		},
		{
			name: "unknown log level",
			configContent: `
database:
  path: "./console.db"
logging:
  level: "chatty"
`,
			wantErrSubstr: "logging.level",
		},
		{
			name: "relative metrics path",
			configContent: `
database:
  path: "./console.db"
metrics:
  enabled: true
  path: "metrics"
`,
			wantErrSubstr: "metrics.path must start with /",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.configContent))
			if err == nil {
				t.Errorf("Load() expected error containing %q, got nil", tt.wantErrSubstr)
				return
			}
			if !strings.Contains(err.Error(), tt.wantErrSubstr) {
				t.Errorf("Load() error = %q, want error containing %q", err.Error(), tt.wantErrSubstr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("FOO", "bar")
	t.Setenv("BAZ", "qux")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"single env var", "${FOO}", "bar"},
		{"env var with surrounding text", "prefix-${FOO}-suffix", "prefix-bar-suffix"},
		{"multiple env vars", "${FOO}/${BAZ}", "bar/qux"},
		{"no env vars", "no-vars-here", "no-vars-here"},
		{"unset env var", "${UNSET_VAR}", ""},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandEnvVars(tt.input)
			if result != tt.expected {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("FACTDESK_CONFIG", "/etc/factdesk.yaml")
	if got := DefaultPath(); got != "/etc/factdesk.yaml" {
		t.Errorf("DefaultPath() = %q, want FACTDESK_CONFIG", got)
	}

	t.Setenv("FACTDESK_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := DefaultPath(); got != filepath.Join("/tmp/xdg", "factdesk", "console.yaml") {
		t.Errorf("DefaultPath() = %q, want XDG location", got)
	}
}

func TestStarter_RoundTrips(t *testing.T) {
	cfg, err := Parse([]byte(Starter(":8090", "http://localhost:5000", "./console.db")))
	if err != nil {
		t.Fatalf("Parse(Starter()) error = %v", err)
	}
	if cfg.Server.HTTPAddr != ":8090" {
		t.Errorf("Server.HTTPAddr = %q, want :8090", cfg.Server.HTTPAddr)
	}
	if cfg.Console.SessionDuration != 168*time.Hour {
		t.Errorf("Console.SessionDuration = %v, want 168h", cfg.Console.SessionDuration)
	}
	if !cfg.Metrics.Enabled {
		t.Error("starter config should enable metrics")
	}
	if got := cfg.ConsoleBaseURL(); got != "http://localhost:8090" {
		t.Errorf("ConsoleBaseURL() = %q, want http://localhost:8090", got)
	}
}
