package muxhandlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerMiddleware(t *testing.T) {
	osHostname, err := os.Hostname()
	require.NoError(t, err)

	tests := []struct {
		name   string
		env    map[string]string
		config ServerConfig
		want   string
	}{
		{
			name: "default os hostname",
			want: osHostname,
		},
		{
			name:   "custom hostname",
			config: ServerConfig{Hostname: "web-01"},
			want:   "web-01",
		},
		{
			name:   "hostname from environment variable",
			env:    map[string]string{"TEST_POD_NAME": "pod-abc-123"},
			config: ServerConfig{HostnameEnv: []string{"TEST_POD_NAME"}},
			want:   "pod-abc-123",
		},
		{
			name:   "env list first non-empty wins",
			env:    map[string]string{"TEST_UNSET_VAR": "", "TEST_POD_NAME_2": "pod-xyz-789"},
			config: ServerConfig{HostnameEnv: []string{"TEST_UNSET_VAR", "TEST_POD_NAME_2"}},
			want:   "pod-xyz-789",
		},
		{
			name:   "all empty envs fall back to os hostname",
			env:    map[string]string{"TEST_EMPTY_A": "", "TEST_EMPTY_B": ""},
			config: ServerConfig{HostnameEnv: []string{"TEST_EMPTY_A", "TEST_EMPTY_B"}},
			want:   osHostname,
		},
		{
			name:   "Hostname field takes priority over env",
			env:    map[string]string{"TEST_POD_NAME_PRIO": "from-env"},
			config: ServerConfig{Hostname: "from-field", HostnameEnv: []string{"TEST_POD_NAME_PRIO"}},
			want:   "from-field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			mw, err := ServerMiddleware(tt.config)
			require.NoError(t, err)

			w := do(chain(mw), httptest.NewRequest(http.MethodGet, "/test", nil))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Header().Get("X-Server-Hostname"))
			assert.Empty(t, w.Header().Get("Server"))
		})
	}

	t.Run("server header", func(t *testing.T) {
		mw, err := ServerMiddleware(ServerConfig{Hostname: "web-01", Server: "yoke"})
		require.NoError(t, err)

		w := do(chain(mw), httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, "yoke", w.Header().Get("Server"))
	})

	t.Run("header set on every response", func(t *testing.T) {
		mw, err := ServerMiddleware(ServerConfig{Hostname: "web-01"})
		require.NoError(t, err)
		p := chain(mw)

		for range 3 {
			w := do(p, httptest.NewRequest(http.MethodGet, "/test", nil))
			assert.Equal(t, "web-01", w.Header().Get("X-Server-Hostname"))
		}
	})
}
