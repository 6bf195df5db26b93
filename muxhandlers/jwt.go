package muxhandlers

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/vitalvas/yoke/mux"
)

// JWTKey is the context store key holding the verified jwt.Token.
const JWTKey = "jwt"

// ErrNoJWTKey is returned when JWTConfig has neither Key nor KeySet.
var ErrNoJWTKey = errors.New("jwt: Key or KeySet is required")

// Authentication failure messages.
const (
	msgNoAuthorization = "No Authorization header was found"
	msgBadFormat       = "Format is Authorization: Bearer [token]"
	msgInvalidToken    = "Invalid Token!"
)

// JWTConfig configures the JWT bearer authentication middleware.
type JWTConfig struct {
	// Key verifies token signatures with Algorithm.
	Key any

	// Algorithm is the signature algorithm used with Key. Defaults to HS256.
	Algorithm jwa.SignatureAlgorithm

	// KeySet verifies tokens by their kid header. Takes precedence over Key.
	KeySet jwk.Set

	// Skew is the clock skew tolerated for exp, nbf and iat.
	Skew time.Duration

	// SkipPaths lists request paths that do not require a token.
	SkipPaths []string

	// Validate runs extra checks on a verified token. A non-nil error
	// rejects the request with 401.
	Validate func(c *mux.Context, token jwt.Token) error
}

// JWTMiddleware returns a handler that requires a valid signed JWT in the
// Authorization: Bearer header. The parsed token is stored under JWTKey.
// CORS preflight requests asking to send Authorization pass through
// unauthenticated.
//
// It returns ErrNoJWTKey if neither Key nor KeySet is configured.
func JWTMiddleware(cfg JWTConfig) (mux.Handler, error) {
	var keyOpt jwt.ParseOption
	switch {
	case cfg.KeySet != nil:
		keyOpt = jwt.WithKeySet(cfg.KeySet)
	case cfg.Key != nil:
		alg := cfg.Algorithm
		if alg == "" {
			alg = jwa.HS256
		}
		keyOpt = jwt.WithKey(alg, cfg.Key)
	default:
		return nil, ErrNoJWTKey
	}

	opts := []jwt.ParseOption{keyOpt, jwt.WithValidate(true)}
	if cfg.Skew > 0 {
		opts = append(opts, jwt.WithAcceptableSkew(cfg.Skew))
	}

	skip := slices.Clone(cfg.SkipPaths)

	return mux.HandlerFunc(func(c *mux.Context, next mux.Next) {
		r := c.Request()

		if c.Method() == http.MethodOptions && requestsAuthorization(r) {
			next(nil)
			return
		}
		if slices.Contains(skip, c.Path()) {
			next(nil)
			return
		}

		authorization := r.Header.Get("Authorization")
		if authorization == "" {
			next(mux.NewFailure(http.StatusUnauthorized, msgNoAuthorization, nil))
			return
		}

		scheme, raw, ok := strings.Cut(authorization, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" || strings.Contains(raw, " ") {
			next(mux.NewFailure(http.StatusUnauthorized, msgBadFormat, nil))
			return
		}

		token, err := jwt.ParseString(raw, opts...)
		if err != nil {
			next(mux.NewFailure(http.StatusUnauthorized, msgInvalidToken, err))
			return
		}

		if cfg.Validate != nil {
			if err := cfg.Validate(c, token); err != nil {
				next(mux.NewFailure(http.StatusUnauthorized, msgInvalidToken, err))
				return
			}
		}

		c.Set(JWTKey, token)
		next(nil)
	}), nil
}

func requestsAuthorization(r *http.Request) bool {
	for h := range strings.SplitSeq(r.Header.Get("Access-Control-Request-Headers"), ",") {
		if strings.EqualFold(strings.TrimSpace(h), "authorization") {
			return true
		}
	}
	return false
}
