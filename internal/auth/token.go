// ABOUTME: Bearer token inspection for stored sessions
// ABOUTME: Reads the JWT exp claim without verifying; the API remains the authority

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrOpaqueToken = errors.New("token is not a JWT")
	ErrNoExpiry    = errors.New("token has no exp claim")
)

// TokenExpiry returns the exp claim of a JWT bearer token. The signature is
// not checked.
func TokenExpiry(token string) (time.Time, error) {
	if token == "" {
		return time.Time{}, ErrOpaqueToken
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrOpaqueToken, err)
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("reading exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

// TokenExpired reports whether token is a JWT whose exp is at or before now.
// Opaque tokens and JWTs without exp never expire client-side.
func TokenExpired(token string, now time.Time) bool {
	exp, err := TokenExpiry(token)
	if err != nil {
		return false
	}
	return !now.Before(exp)
}
