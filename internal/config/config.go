// ABOUTME: Configuration loading and parsing for factdesk-console
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when a section leaves a value unset.
const (
	DefaultHTTPAddr        = "localhost:8090"
	DefaultAPIBaseURL      = "http://localhost:5000"
	DefaultAPITimeout      = 15 * time.Second
	DefaultMaxParallel     = 4
	DefaultSessionDuration = 7 * 24 * time.Hour
	DefaultIdleTimeout     = 30 * time.Minute
	DefaultMetricsPath     = "/metrics"
)

// Config represents the complete factdesk-console configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	Console  ConsoleConfig  `yaml:"console"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// APIConfig describes the upstream fact-checking API
type APIConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"-"`
	MaxParallel int           `yaml:"max_parallel"`

	// Raw string values for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ConsoleConfig holds web console configuration
type ConsoleConfig struct {
	// BaseURL is the external URL of the console, used for absolute links.
	// If not set, it's derived from server.http_addr
	BaseURL         string        `yaml:"base_url"`
	SessionDuration time.Duration `yaml:"-"`
	IdleTimeout     time.Duration `yaml:"-"`
	SecureCookies   bool          `yaml:"secure_cookies"`

	// Raw string values for YAML unmarshaling
	SessionDurationRaw string `yaml:"session_duration"`
	IdleTimeoutRaw     string `yaml:"idle_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultPath returns the config path: $FACTDESK_CONFIG if set, otherwise
// $XDG_CONFIG_HOME/factdesk/console.yaml (falling back to ~/.config).
func DefaultPath() string {
	if p := os.Getenv("FACTDESK_CONFIG"); p != "" {
		return p
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "console.yaml"
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "factdesk", "console.yaml")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes configuration from YAML bytes, applying the same expansion,
// defaults and validation as Load.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultAPIBaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxParallel == 0 {
		c.API.MaxParallel = DefaultMaxParallel
	}
	if c.Console.SessionDuration == 0 {
		c.Console.SessionDuration = DefaultSessionDuration
	}
	if c.Console.IdleTimeout == 0 {
		c.Console.IdleTimeout = DefaultIdleTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.API.MaxParallel < 1 {
		return fmt.Errorf("api.max_parallel must be at least 1")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Console.IdleTimeout < 0 || c.Console.SessionDuration < 0 {
		return fmt.Errorf("console durations must be positive")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	return nil
}

// ConsoleBaseURL returns console.base_url, or one derived from the listen address.
func (c *Config) ConsoleBaseURL() string {
	if c.Console.BaseURL != "" {
		return strings.TrimRight(c.Console.BaseURL, "/")
	}
	addr := c.Server.HTTPAddr
	if strings.HasPrefix(addr, ":") || strings.HasPrefix(addr, "0.0.0.0:") {
		addr = "localhost" + addr[strings.LastIndex(addr, ":"):]
	}
	scheme := "http"
	if c.Console.SecureCookies {
		scheme = "https"
	}
	return scheme + "://" + addr
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"api.timeout", cfg.API.TimeoutRaw, &cfg.API.Timeout},
		{"console.session_duration", cfg.Console.SessionDurationRaw, &cfg.Console.SessionDuration},
		{"console.idle_timeout", cfg.Console.IdleTimeoutRaw, &cfg.Console.IdleTimeout},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

// Starter returns a commented starter configuration file.
func Starter(httpAddr, apiBaseURL, dbPath string) string {
	var b strings.Builder
	b.WriteString("# Generated by factdesk-console init\n\n")
	fmt.Fprintf(&b, "server:\n  http_addr: %q\n\n", httpAddr)
	fmt.Fprintf(&b, "api:\n  base_url: %q\n  timeout: \"15s\"\n  max_parallel: %d\n\n", apiBaseURL, DefaultMaxParallel)
	fmt.Fprintf(&b, "database:\n  path: %q\n\n", dbPath)
	b.WriteString("console:\n")
	b.WriteString("  # base_url: \"https://factdesk.example.org\"\n")
	b.WriteString("  session_duration: \"168h\"\n")
	b.WriteString("  idle_timeout: \"30m\"\n")
	b.WriteString("  secure_cookies: false\n\n")
	b.WriteString("logging:\n  level: \"info\"\n  format: \"text\"\n\n")
	b.WriteString("metrics:\n  enabled: true\n  path: \"/metrics\"\n")
	return b.String()
}
