package muxhandlers

import (
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/vitalvas/yoke/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrTooBusy is the cause of the failure sent for shed requests.
var ErrTooBusy = errors.New("server is too busy")

// ErrInvalidTooBusyConfig is returned when TooBusyConfig sets neither a rate
// nor an in-flight limit, or sets a negative one.
var ErrInvalidTooBusyConfig = errors.New("too busy: Rate or MaxInFlight must be greater than zero")

const defaultTooBusyMessage = "Server is too busy. Please, try again later."

// TooBusyConfig configures the load shedding middleware.
type TooBusyConfig struct {
	// Rate is the sustained number of requests per second admitted.
	// Zero disables the rate check.
	Rate float64

	// Burst is the number of requests admitted above Rate at once.
	// Defaults to 1.
	Burst int

	// MaxInFlight caps the number of requests being served. Zero disables
	// the check.
	MaxInFlight int64

	// RetryAfter, when positive, is sent in seconds as Retry-After.
	RetryAfter int

	// Message is the failure message. Defaults to "Server is too busy.
	// Please, try again later."
	Message string
}

// TooBusyMiddleware returns a handler that sheds load with 503 Service
// Unavailable once the request rate or the number of requests in flight
// exceeds the configured limits.
func TooBusyMiddleware(cfg TooBusyConfig) (mux.Handler, error) {
	if cfg.Rate < 0 || cfg.MaxInFlight < 0 || (cfg.Rate == 0 && cfg.MaxInFlight == 0) {
		return nil, ErrInvalidTooBusyConfig
	}

	var limiter *rate.Limiter
	if cfg.Rate > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	}

	message := cfg.Message
	if message == "" {
		message = defaultTooBusyMessage
	}

	var inFlight atomic.Int64

	shed := func(c *mux.Context, next mux.Next, reason string) {
		if cfg.RetryAfter > 0 {
			c.Header().Set("Retry-After", strconv.Itoa(cfg.RetryAfter))
		}
		c.Logger().Debug("request shed",
			zap.String("reason", reason),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
		)
		next(mux.NewFailure(http.StatusServiceUnavailable, message, ErrTooBusy))
	}

	return mux.HandlerFunc(func(c *mux.Context, next mux.Next) {
		if limiter != nil && !limiter.Allow() {
			shed(c, next, "rate")
			return
		}

		if cfg.MaxInFlight > 0 {
			if inFlight.Add(1) > cfg.MaxInFlight {
				inFlight.Add(-1)
				shed(c, next, "in_flight")
				return
			}
			c.OnDone(func() { inFlight.Add(-1) })
		}

		next(nil)
	}), nil
}
