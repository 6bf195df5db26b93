package muxhandlers

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/yoke/mux"
)

// readBody answers with the request body, or fails the request when the
// body cannot be read.
func readBody() mux.Handler {
	return mux.HandlerFunc(func(c *mux.Context, next mux.Next) {
		b, err := io.ReadAll(c.Request().Body)
		if err != nil {
			next(RequestTooLarge(err))
			return
		}
		_ = c.String(http.StatusOK, string(b))
	})
}

func TestRequestSizeLimitMiddleware(t *testing.T) {
	t.Run("config validation", func(t *testing.T) {
		tests := []struct {
			name    string
			config  RequestSizeLimitConfig
			wantErr error
		}{
			{"zero max bytes", RequestSizeLimitConfig{MaxBytes: 0}, ErrInvalidMaxSize},
			{"negative max bytes", RequestSizeLimitConfig{MaxBytes: -1}, ErrInvalidMaxSize},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := RequestSizeLimitMiddleware(tt.config)
				assert.ErrorIs(t, err, tt.wantErr)
			})
		}

		_, err := RequestSizeLimitMiddleware(RequestSizeLimitConfig{MaxBytes: 1024})
		assert.NoError(t, err)
	})

	tests := []struct {
		name     string
		maxBytes int64
		body     string
		chunked  bool
		wantCode int
		wantBody string
	}{
		{"body within limit", 1024, "hello", false, http.StatusOK, "hello"},
		{"body exactly at limit", 5, "hello", false, http.StatusOK, "hello"},
		{"declared length exceeds limit", 3, "hello world", false, http.StatusRequestEntityTooLarge, "Request Entity Too Large"},
		{"streamed body exceeds limit", 3, "hello world", true, http.StatusRequestEntityTooLarge, "Request Entity Too Large"},
		{"empty body", 1024, "", false, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw, err := RequestSizeLimitMiddleware(RequestSizeLimitConfig{MaxBytes: tt.maxBytes})
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(tt.body))
			if tt.chunked {
				req.ContentLength = -1
			}
			w := do(mux.NewPipeline().Use(mw, readBody()), req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}

	t.Run("GET without body passes through", func(t *testing.T) {
		mw, err := RequestSizeLimitMiddleware(RequestSizeLimitConfig{MaxBytes: 1})
		require.NoError(t, err)

		w := do(chain(mw), httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequestTooLarge(t *testing.T) {
	f := mux.AsFailure(RequestTooLarge(&http.MaxBytesError{Limit: 3}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, f.Status)

	other := errors.New("boom")
	assert.Equal(t, other, RequestTooLarge(other))
	assert.NoError(t, RequestTooLarge(nil))
}

func BenchmarkRequestSizeLimitMiddleware(b *testing.B) {
	mw, err := RequestSizeLimitMiddleware(RequestSizeLimitConfig{MaxBytes: 1024})
	if err != nil {
		b.Fatal(err)
	}
	p := mux.NewPipeline().Use(mw, readBody())

	body := strings.NewReader("hello")

	for b.Loop() {
		body.Reset("hello")
		do(p, httptest.NewRequest(http.MethodPost, "/test", body))
	}
}
