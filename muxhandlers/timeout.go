package muxhandlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/vitalvas/yoke/mux"
	"go.uber.org/zap"
)

// ErrInvalidTimeout is returned when TimeoutConfig.Duration is not greater
// than zero.
var ErrInvalidTimeout = errors.New("timeout: duration must be greater than zero")

// TimeoutConfig configures the Timeout middleware behaviour.
type TimeoutConfig struct {
	// Duration is the maximum time allowed for the request to be answered.
	// Must be greater than zero.
	Duration time.Duration

	// StatusCode is the status sent on timeout. Defaults to 503.
	StatusCode int

	// Message is the response body sent on timeout. Defaults to the
	// reason phrase of StatusCode.
	Message string
}

// TimeoutMiddleware returns a handler that bounds the time until the
// response is written. The request context gets the deadline, and when it
// passes without a response the handler answers with StatusCode from its
// own goroutine. Later writes by the slow handler fail with
// mux.ErrAlreadyResponded.
//
// It returns ErrInvalidTimeout if Duration is not greater than zero.
func TimeoutMiddleware(cfg TimeoutConfig) (mux.Handler, error) {
	if cfg.Duration <= 0 {
		return nil, ErrInvalidTimeout
	}

	status := cfg.StatusCode
	if status == 0 {
		status = http.StatusServiceUnavailable
	}

	message := cfg.Message
	if message == "" {
		message = http.StatusText(status)
	}

	duration := cfg.Duration

	return mux.HandlerFunc(func(c *mux.Context, next mux.Next) {
		r := c.Request()
		ctx, cancel := context.WithTimeout(r.Context(), duration)
		c.SetRequest(r.WithContext(ctx))

		stop := context.AfterFunc(ctx, func() {
			if !errors.Is(ctx.Err(), context.DeadlineExceeded) || c.Responded() {
				return
			}

			c.Logger().Warn("request timed out",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Duration("timeout", duration),
			)
			_ = c.String(status, message)
		})

		c.OnEnd(func() {
			stop()
			cancel()
		})

		next(nil)
	}), nil
}
