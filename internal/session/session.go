// ABOUTME: Session, user, and role types shared by the console and the CLI
// ABOUTME: Defines the Store contract for the durable session slot and payload decoding

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed marks a persisted payload that cannot be turned into a Session.
// Stores never return it from Load; they report the slot as empty instead.
var ErrMalformed = errors.New("malformed session payload")

// Role is the account role assigned by the external service.
type Role string

const (
	RoleUser        Role = "user"
	RoleReporter    Role = "reporter"
	RoleFactChecker Role = "fact-checker"
	RoleAdmin       Role = "admin"
)

// ValidRoles lists every role in display order.
var ValidRoles = []Role{
	RoleUser,
	RoleReporter,
	RoleFactChecker,
	RoleAdmin,
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// ParseRole converts a string into a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// User is the account the session belongs to.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Session is an authenticated identity plus the optional bearer token issued by the API.
type Session struct {
	Token string `json:"token,omitempty"`
	User  User   `json:"user"`
}

// Validate checks the invariants every stored or freshly issued session must satisfy.
func (s *Session) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil session", ErrMalformed)
	}
	if s.User.ID <= 0 {
		return fmt.Errorf("%w: missing user id", ErrMalformed)
	}
	if !s.User.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrMalformed, s.User.Role)
	}
	return nil
}

// Encode serializes a session for storage.
func Encode(s *Session) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// Decode parses a stored payload. Anything that isn't a valid session
// yields an error wrapping ErrMalformed.
func Decode(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Store is a durable key-value slot holding at most one Session.
//
// Load returns (nil, nil) when the slot is empty or holds a malformed
// payload. Save overwrites any prior value. Clear empties the slot and is
// not an error when the slot is already empty.
type Store interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}
