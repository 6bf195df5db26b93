package muxhandlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/yoke/mux"
)

// typed answers 200 with the given Content-Type.
func typed(contentType string) mux.Handler {
	return mux.Terminal(func(c *mux.Context) {
		_ = c.Respond(http.StatusOK, contentType, []byte("body"))
	})
}

func TestCacheControlMiddleware(t *testing.T) {
	t.Run("empty rules returns error", func(t *testing.T) {
		_, err := CacheControlMiddleware(CacheControlConfig{})
		require.ErrorIs(t, err, ErrNoCacheControlRules)
	})

	t.Run("rule matching", func(t *testing.T) {
		tests := []struct {
			name        string
			contentType string
			config      CacheControlConfig
			wantCC      string
			wantExpires time.Duration
			noExpires   bool
		}{
			{
				name:        "exact match",
				contentType: "application/json",
				config:      CacheControlConfig{Rules: []CacheControlRule{{ContentType: "application/json", Value: "no-cache"}}},
				wantCC:      "no-cache",
			},
			{
				name:        "prefix match",
				contentType: "image/png",
				config:      CacheControlConfig{Rules: []CacheControlRule{{ContentType: "image/", Value: "public, max-age=86400", Expires: 24 * time.Hour}}},
				wantCC:      "public, max-age=86400",
				wantExpires: 24 * time.Hour,
			},
			{
				name:        "first matching rule wins",
				contentType: "image/png",
				config: CacheControlConfig{Rules: []CacheControlRule{
					{ContentType: "image/png", Value: "max-age=60", Expires: -1},
					{ContentType: "image/", Value: "max-age=3600", Expires: -1},
				}},
				wantCC:    "max-age=60",
				noExpires: true,
			},
			{
				name:        "default for unmatched type",
				contentType: "text/plain",
				config: CacheControlConfig{
					Rules:        []CacheControlRule{{ContentType: "image/", Value: "public"}},
					DefaultValue: "no-store",
				},
				wantCC: "no-store",
			},
			{
				name:        "no default sets nothing",
				contentType: "text/plain",
				config: CacheControlConfig{
					Rules:          []CacheControlRule{{ContentType: "image/", Value: "public", Expires: -1}},
					DefaultExpires: -1,
				},
				noExpires: true,
			},
			{
				name:        "case insensitive with parameters",
				contentType: "Application/JSON; charset=utf-8",
				config:      CacheControlConfig{Rules: []CacheControlRule{{ContentType: "application/json", Value: "no-cache", Expires: -1}}},
				wantCC:      "no-cache",
				noExpires:   true,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				mw, err := CacheControlMiddleware(tt.config)
				require.NoError(t, err)

				before := time.Now().UTC()
				w := do(mux.NewPipeline().Use(mw, typed(tt.contentType)), httptest.NewRequest(http.MethodGet, "/", nil))

				assert.Equal(t, http.StatusOK, w.Code)
				assert.Equal(t, tt.wantCC, w.Header().Get("Cache-Control"))
				if tt.noExpires {
					assert.Empty(t, w.Header().Get("Expires"))
					return
				}
				assertExpiresInRange(t, w.Header().Get("Expires"), before, tt.wantExpires)
			})
		}
	})

	t.Run("handler set headers are kept", func(t *testing.T) {
		mw, err := CacheControlMiddleware(CacheControlConfig{
			Rules: []CacheControlRule{{ContentType: "application/json", Value: "no-cache"}},
		})
		require.NoError(t, err)

		p := mux.NewPipeline().Use(mw, mux.Terminal(func(c *mux.Context) {
			c.Header().Set("Cache-Control", "private")
			c.Header().Set("Expires", "Thu, 01 Jan 2026 00:00:00 GMT")
			_ = c.JSON(http.StatusOK, map[string]string{})
		}))

		w := do(p, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "private", w.Header().Get("Cache-Control"))
		assert.Equal(t, "Thu, 01 Jan 2026 00:00:00 GMT", w.Header().Get("Expires"))
	})

	t.Run("raw writes", func(t *testing.T) {
		mw, err := CacheControlMiddleware(CacheControlConfig{
			Rules: []CacheControlRule{{ContentType: "text/html", Value: "no-store", Expires: -1}},
		})
		require.NoError(t, err)

		p := mux.NewPipeline().Use(mw, mux.Terminal(func(c *mux.Context) {
			c.Header().Set("Content-Type", "text/html")
			_, _ = c.Writer().Write([]byte("<h1>hello</h1>"))
			c.End()
		}))

		w := do(p, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	})

	t.Run("error responses", func(t *testing.T) {
		mw, err := CacheControlMiddleware(CacheControlConfig{
			Rules:        []CacheControlRule{{ContentType: "image/", Value: "public"}},
			DefaultValue: "no-store",
		})
		require.NoError(t, err)

		w := do(mux.NewPipeline().Use(mw), httptest.NewRequest(http.MethodGet, "/missing", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	})
}

// assertExpiresInRange checks that the Expires header falls within
// [before+offset, before+offset+2s].
func assertExpiresInRange(t *testing.T, value string, before time.Time, offset time.Duration) {
	t.Helper()

	require.NotEmpty(t, value)
	got, err := http.ParseTime(value)
	require.NoError(t, err)

	lower := before.Add(offset).Truncate(time.Second)
	upper := lower.Add(2 * time.Second)
	assert.False(t, got.Before(lower), "expires %s before %s", got, lower)
	assert.False(t, got.After(upper), "expires %s after %s", got, upper)
}
