package muxhandlers

import (
	"net/http"
	"slices"
	"time"

	"github.com/vitalvas/yoke/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig configures the access log middleware.
type LoggerConfig struct {
	// Logger receives the access log entries. Defaults to the pipeline
	// logger.
	Logger *zap.Logger

	// Immediate logs when the request arrives instead of when the
	// response is finished. Status, size and duration are not known then.
	Immediate bool

	// SkipPaths lists request paths that are not logged, e.g. health checks.
	SkipPaths []string
}

// LoggerMiddleware returns a handler writing one structured log entry per
// request. Entries are logged at Info, 4xx responses at Warn and 5xx
// responses at Error.
func LoggerMiddleware(cfg LoggerConfig) mux.Handler {
	skip := slices.Clone(cfg.SkipPaths)

	return mux.HandlerFunc(func(c *mux.Context, next mux.Next) {
		if slices.Contains(skip, c.Path()) {
			next(nil)
			return
		}

		logger := cfg.Logger
		if logger == nil {
			logger = c.Logger()
		}

		r := c.Request()
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("query", r.URL.RawQuery),
			zap.String("proto", r.Proto),
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("user_agent", r.UserAgent()),
			zap.String("referer", r.Referer()),
		}
		if id, ok := c.Get(RequestIDKey); ok {
			fields = append(fields, zap.Any("request_id", id))
		}

		if cfg.Immediate {
			fields = append(fields, zap.Int64("content_length", r.ContentLength))
			logger.Info("http request", fields...)
			next(nil)
			return
		}

		c.OnEnd(func() {
			status := c.Status()
			fields := append(fields,
				zap.Int("status", status),
				zap.Int("size", c.Writer().Size()),
				zap.Duration("duration", time.Since(c.Started())),
			)
			logger.Log(statusLevel(status), "http request", fields...)
		})

		next(nil)
	})
}

func statusLevel(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
