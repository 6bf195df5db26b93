package muxhandlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/yoke/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		handler   mux.Handler
		wantLevel zapcore.Level
		wantCode  int64
	}{
		{"success at info", ok("hello"), zapcore.InfoLevel, http.StatusOK},
		{"client error at warn", failing(mux.Status(http.StatusNotFound)), zapcore.WarnLevel, http.StatusNotFound},
		{"server error at error", failing(mux.Status(http.StatusBadGateway)), zapcore.ErrorLevel, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)

			p := mux.NewPipeline().Use(
				RequestIDMiddleware(RequestIDConfig{GenerateFunc: func(*http.Request) string { return "rid" }}),
				LoggerMiddleware(LoggerConfig{Logger: zap.New(core)}),
				tt.handler,
			)

			req := httptest.NewRequest(http.MethodGet, "/path?q=1", nil)
			req.Header.Set("User-Agent", "test-agent")
			do(p, req)

			entries := logs.FilterMessage("http request").All()
			require.Len(t, entries, 1)

			e := entries[0]
			assert.Equal(t, tt.wantLevel, e.Level)

			fields := e.ContextMap()
			assert.Equal(t, http.MethodGet, fields["method"])
			assert.Equal(t, "/path", fields["path"])
			assert.Equal(t, "q=1", fields["query"])
			assert.Equal(t, "test-agent", fields["user_agent"])
			assert.Equal(t, "rid", fields["request_id"])
			assert.Equal(t, tt.wantCode, fields["status"])
			assert.Contains(t, fields, "duration")
			assert.Contains(t, fields, "size")
		})
	}

	t.Run("pipeline logger by default", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		p := mux.NewPipeline(mux.WithLogger(zap.New(core))).Use(LoggerMiddleware(LoggerConfig{}), ok("x"))

		do(p, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, 1, logs.FilterMessage("http request").Len())
	})

	t.Run("immediate", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		p := mux.NewPipeline().Use(LoggerMiddleware(LoggerConfig{Logger: zap.New(core), Immediate: true}), ok("x"))

		do(p, httptest.NewRequest(http.MethodPost, "/", nil))

		entries := logs.FilterMessage("http request").All()
		require.Len(t, entries, 1)
		assert.NotContains(t, entries[0].ContextMap(), "status")
		assert.Contains(t, entries[0].ContextMap(), "content_length")
	})

	t.Run("skip paths", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		p := mux.NewPipeline().Use(LoggerMiddleware(LoggerConfig{Logger: zap.New(core), SkipPaths: []string{"/healthz"}}), ok("x"))

		do(p, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		do(p, httptest.NewRequest(http.MethodGet, "/other", nil))

		entries := logs.FilterMessage("http request").All()
		require.Len(t, entries, 1)
		assert.Equal(t, "/other", entries[0].ContextMap()["path"])
	})
}

func TestStatusLevel(t *testing.T) {
	assert.Equal(t, zapcore.InfoLevel, statusLevel(http.StatusOK))
	assert.Equal(t, zapcore.InfoLevel, statusLevel(http.StatusFound))
	assert.Equal(t, zapcore.WarnLevel, statusLevel(http.StatusUnauthorized))
	assert.Equal(t, zapcore.ErrorLevel, statusLevel(http.StatusServiceUnavailable))
}
