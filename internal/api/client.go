// ABOUTME: HTTP client for the fake-news REST API
// ABOUTME: Maps transport and status failures onto the api.Error taxonomy

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Version is reported in the User-Agent header. Set at build time.
var Version = "dev"

// DefaultTimeout bounds every request when no timeout is configured.
const DefaultTimeout = 15 * time.Second

// maxBodySize caps how much of a response body is read.
const maxBodySize = 4 << 20

// Observer receives one call per completed request. Route is the path
// template, never the concrete path, so labels stay low-cardinality.
type Observer interface {
	ObserveRequest(method, route, outcome string, elapsed time.Duration)
}

// Client talks to the REST API. It is safe for concurrent use; WithToken
// returns a copy bound to a bearer token.
type Client struct {
	baseURL   string
	http      *http.Client
	token     string
	userAgent string
	logger    *slog.Logger
	observer  Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l.With("component", "api")
		}
	}
}

// WithObserver registers a request observer (metrics).
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		http:      &http.Client{Timeout: DefaultTimeout},
		userAgent: "factdesk/" + Version,
		logger:    slog.Default().With("component", "api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a copy that authenticates with the given bearer token.
// An empty token yields an anonymous copy.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do performs one request. route is the path template used for errors and
// metrics; path is the concrete path. A nil out discards the body and a
// *[]byte out receives it undecoded.
func (c *Client) do(ctx context.Context, method, route, path string, body, out any) error {
	op := method + " " + route
	start := time.Now()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindValidation, Op: op, Message: "could not encode request", Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Kind: KindNetwork, Op: op, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(method, route, "network_error", start)
		c.logger.Debug("request failed", "op", op, "error", err)
		return &Error{Kind: KindNetwork, Op: op, Message: "could not reach the server", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		c.observe(method, route, "network_error", start)
		return &Error{Kind: KindNetwork, Op: op, Status: resp.StatusCode, Message: "could not read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.observe(method, route, fmt.Sprintf("http_%dxx", resp.StatusCode/100), start)
		return statusError(op, resp.StatusCode, data)
	}

	if raw, ok := out.(*[]byte); ok {
		*raw = data
	} else if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			c.observe(method, route, "decode_error", start)
			return &Error{Kind: KindServer, Op: op, Status: resp.StatusCode, Message: "unexpected response from server", Err: err}
		}
	}

	c.observe(method, route, "ok", start)
	c.logger.Debug("request completed", "op", op, "status", resp.StatusCode, "elapsed", time.Since(start))
	return nil
}

func (c *Client) observe(method, route, outcome string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(method, route, outcome, time.Since(start))
	}
}

// statusError builds the error for a non-2xx response, preferring the
// server's {error} text, then {message}.
func statusError(op string, status int, body []byte) *Error {
	kind := KindServer
	if status == http.StatusUnauthorized {
		kind = KindAuthentication
	}

	var reply errorReply
	msg := ""
	if json.Unmarshal(body, &reply) == nil {
		msg = firstString(reply.Error, reply.Message)
	}
	return &Error{
		Kind:    kind,
		Op:      op,
		Status:  status,
		Message: msg,
		Err:     fmt.Errorf("server returned status %d", status),
	}
}

// IsStatus reports whether err carries the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}
