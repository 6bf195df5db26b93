package muxhandlers

import (
	"errors"
	"net/http"

	"github.com/vitalvas/yoke/mux"
)

// ErrInvalidMaxSize is returned when RequestSizeLimitConfig.MaxBytes is not
// greater than zero.
var ErrInvalidMaxSize = errors.New("request size limit: max size must be greater than zero")

// RequestSizeLimitConfig configures the Request Size Limit middleware behaviour.
type RequestSizeLimitConfig struct {
	// MaxBytes is the maximum allowed request body size in bytes.
	// Must be greater than zero.
	MaxBytes int64
}

// RequestSizeLimitMiddleware returns a handler that limits the size of
// incoming request bodies. A declared Content-Length above the limit fails
// the request with 413 Request Entity Too Large right away; otherwise the
// body is wrapped with http.MaxBytesReader so reading past the limit
// returns an *http.MaxBytesError, which RequestTooLarge turns into a 413
// failure.
//
// It returns ErrInvalidMaxSize if MaxBytes is not greater than zero.
func RequestSizeLimitMiddleware(cfg RequestSizeLimitConfig) (mux.Handler, error) {
	if cfg.MaxBytes <= 0 {
		return nil, ErrInvalidMaxSize
	}

	maxBytes := cfg.MaxBytes

	return mux.HandlerFunc(func(c *mux.Context, next mux.Next) {
		r := c.Request()
		if r.ContentLength > maxBytes {
			next(mux.Status(http.StatusRequestEntityTooLarge))
			return
		}

		if r.Body != nil && r.Body != http.NoBody {
			r.Body = http.MaxBytesReader(c.Writer(), r.Body, maxBytes)
		}

		next(nil)
	}), nil
}

// RequestTooLarge converts a body read error caused by the size limit into
// a 413 failure. Other errors are returned unchanged.
func RequestTooLarge(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return mux.NewFailure(http.StatusRequestEntityTooLarge, "", err)
	}
	return err
}
