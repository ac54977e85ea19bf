// ABOUTME: Error taxonomy for calls to the fake-news REST API
// ABOUTME: Kinds match via errors.Is against the exported sentinels

package api

import (
	"errors"
	"fmt"
)

// Kind classifies a failure surfaced to a panel.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindValidation
	KindAuthentication
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network failure"
	case KindValidation:
		return "validation failure"
	case KindAuthentication:
		return "authentication failed"
	case KindServer:
		return "server error"
	default:
		return "unknown failure"
	}
}

// Sentinels for errors.Is matching on Kind.
var (
	ErrNetworkFailure       = &Error{Kind: KindNetwork}
	ErrValidationFailure    = &Error{Kind: KindValidation}
	ErrAuthenticationFailed = &Error{Kind: KindAuthentication}
	ErrServerError          = &Error{Kind: KindServer}
)

// Error is returned by every Client method and by client-side input checks.
type Error struct {
	Kind    Kind
	Op      string // route template, e.g. "POST /api/sources"
	Status  int    // HTTP status, 0 when no response was received
	Message string // server-supplied or client-side reason
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op == "" {
		return msg
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (%d)", e.Op, msg, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Kind, so sentinels compare by kind only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Validation builds a client-side ValidationFailure with the given reason.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Reason returns the text a panel should show for err: the server or
// client-side message when present, else the error string.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if apiErr.Err != nil {
			return apiErr.Err.Error()
		}
		return apiErr.Kind.String()
	}
	return err.Error()
}

// KindOf reports the Kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}
