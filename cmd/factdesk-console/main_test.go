// ABOUTME: Tests for factdesk-console commands: init, logger setup and health

package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/factdesk/internal/config"
)

func TestInitWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "factdesk", "console.yaml")
	answers := strings.Join([]string{"", "127.0.0.1:9999", "http://api.internal:5000", "/tmp/sessions.db"}, "\n") + "\n"

	var out bytes.Buffer
	require.NoError(t, runInit(strings.NewReader(answers), &out, path))
	assert.Contains(t, out.String(), "Config written to "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.HTTPAddr)
	assert.Equal(t, "http://api.internal:5000", cfg.API.BaseURL)
	assert.Equal(t, "/tmp/sessions.db", cfg.Database.Path)
}

func TestInitKeepsExistingFileUnlessConfirmed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.yaml")
	require.NoError(t, os.WriteFile(path, []byte("keep"), 0o644))

	var out bytes.Buffer
	require.NoError(t, runInit(strings.NewReader("\nno\n"), &out, path))
	assert.Contains(t, out.String(), "Aborted.")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}

func TestLoggerFormats(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	newLogger(config.LoggingConfig{Level: "info", Format: "json"}, &buf).
		With("component", "console").Info("hello", "n", 1)
	assert.Contains(t, buf.String(), `"component":"console"`)
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	logger := newLogger(config.LoggingConfig{Level: "warn", Format: "text"}, &buf)
	logger.Info("quiet")
	logger.With("component", "registry").Warn("loud", "trees", 3)
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "WRN loud component=registry trees=3")
}

func TestHealthCommand(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health/ready", r.URL.Path)
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"api":"ok","database":"ok"}`))
	}))
	defer upstream.Close()

	path := filepath.Join(t.TempDir(), "console.yaml")
	addr := strings.TrimPrefix(upstream.URL, "http://")
	require.NoError(t, os.WriteFile(path, []byte(config.Starter(addr, "http://localhost:5000", "/tmp/x.db")), 0o644))

	var out bytes.Buffer
	require.NoError(t, runHealth(context.Background(), &out, path))
	assert.Equal(t, "healthy\n", out.String())

	status.Store(http.StatusServiceUnavailable)
	err := runHealth(context.Background(), &out, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
