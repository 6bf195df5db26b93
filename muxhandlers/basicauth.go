package muxhandlers

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"

	"github.com/vitalvas/yoke/mux"
	"golang.org/x/crypto/bcrypt"
)

// UserKey is the context store key holding the authenticated user name.
const UserKey = "user"

var (
	// ErrNoAuthSource is returned when BasicAuthConfig has no way to check
	// credentials.
	ErrNoAuthSource = errors.New("basic auth: at least one of ValidateFunc, Credentials or HashedCredentials must be set")

	// ErrInvalidHash is returned when a HashedCredentials entry is not a
	// bcrypt hash.
	ErrInvalidHash = errors.New("basic auth: invalid bcrypt hash")
)

// dummyHash is compared against for unknown users so the response time does
// not reveal whether a user exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("yoke"), bcrypt.MinCost)

// BasicAuthConfig configures the Basic Auth middleware behaviour.
//
// See https://www.rfc-editor.org/rfc/rfc7617
type BasicAuthConfig struct {
	// Realm is the authentication realm sent in the WWW-Authenticate header.
	// Defaults to "Restricted" when empty.
	Realm string

	// ValidateFunc is called to validate credentials dynamically.
	// Takes priority over the static credential maps.
	ValidateFunc func(username, password string) bool

	// Credentials is a static map of username -> plain text password.
	// Compared using SHA-256 hashed constant-time comparison.
	Credentials map[string]string

	// HashedCredentials is a static map of username -> bcrypt hash. Checked
	// after Credentials.
	HashedCredentials map[string]string
}

// BasicAuthMiddleware returns a handler that implements HTTP Basic
// Authentication per RFC 7617. Missing or invalid credentials fail the
// request with 401 and a WWW-Authenticate challenge; on success the user
// name is stored under UserKey.
//
// It returns ErrNoAuthSource if no credential source is configured and
// ErrInvalidHash if a hashed credential cannot be parsed.
func BasicAuthMiddleware(cfg BasicAuthConfig) (mux.Handler, error) {
	if cfg.ValidateFunc == nil && len(cfg.Credentials) == 0 && len(cfg.HashedCredentials) == 0 {
		return nil, ErrNoAuthSource
	}

	for user, hash := range cfg.HashedCredentials {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("%w for user %q: %w", ErrInvalidHash, user, err)
		}
	}

	realm := cfg.Realm
	if realm == "" {
		realm = "Restricted"
	}
	wwwAuthenticate := fmt.Sprintf("Basic realm=%q", realm)

	check := func(username, password string) bool {
		if cfg.ValidateFunc != nil {
			return cfg.ValidateFunc(username, password)
		}

		if expected, ok := cfg.Credentials[username]; ok {
			return constantTimeEqual(password, expected)
		}

		hash, ok := cfg.HashedCredentials[username]
		if !ok {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return false
		}
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}

	return mux.HandlerFunc(func(c *mux.Context, next mux.Next) {
		username, password, ok := c.Request().BasicAuth()
		if !ok || !check(username, password) {
			c.Header().Set("WWW-Authenticate", wwwAuthenticate)
			next(mux.Status(http.StatusUnauthorized))
			return
		}

		c.Set(UserKey, username)
		next(nil)
	}), nil
}

// constantTimeEqual compares two strings in constant time by first hashing
// them with SHA-256, which also hides length differences.
func constantTimeEqual(a, b string) bool {
	aHash := sha256.Sum256([]byte(a))
	bHash := sha256.Sum256([]byte(b))

	return subtle.ConstantTimeCompare(aHash[:], bHash[:]) == 1
}
