package muxhandlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentTypeCheckMiddleware(t *testing.T) {
	t.Run("config validation", func(t *testing.T) {
		_, err := ContentTypeCheckMiddleware(ContentTypeCheckConfig{})
		assert.ErrorIs(t, err, ErrNoAllowedTypes)

		_, err = ContentTypeCheckMiddleware(ContentTypeCheckConfig{AllowedTypes: []string{"application/json"}})
		assert.NoError(t, err)
	})

	tests := []struct {
		name        string
		config      ContentTypeCheckConfig
		method      string
		contentType string
		wantCode    int
	}{
		{
			name:        "matching type passes through",
			config:      ContentTypeCheckConfig{AllowedTypes: []string{"application/json"}},
			method:      http.MethodPost,
			contentType: "application/json",
			wantCode:    http.StatusOK,
		},
		{
			name:        "parameters are ignored",
			config:      ContentTypeCheckConfig{AllowedTypes: []string{"application/json"}},
			method:      http.MethodPut,
			contentType: "application/json; charset=utf-8",
			wantCode:    http.StatusOK,
		},
		{
			name:        "case insensitive",
			config:      ContentTypeCheckConfig{AllowedTypes: []string{"Application/JSON"}},
			method:      http.MethodPatch,
			contentType: "application/json",
			wantCode:    http.StatusOK,
		},
		{
			name:        "non-matching type",
			config:      ContentTypeCheckConfig{AllowedTypes: []string{"application/json"}},
			method:      http.MethodPost,
			contentType: "text/plain",
			wantCode:    http.StatusUnsupportedMediaType,
		},
		{
			name:     "missing type on checked method",
			config:   ContentTypeCheckConfig{AllowedTypes: []string{"application/json"}},
			method:   http.MethodPost,
			wantCode: http.StatusUnsupportedMediaType,
		},
		{
			name:        "malformed type",
			config:      ContentTypeCheckConfig{AllowedTypes: []string{"application/json"}},
			method:      http.MethodPost,
			contentType: "application/json; =",
			wantCode:    http.StatusUnsupportedMediaType,
		},
		{
			name:     "GET skips check",
			config:   ContentTypeCheckConfig{AllowedTypes: []string{"application/json"}},
			method:   http.MethodGet,
			wantCode: http.StatusOK,
		},
		{
			name: "custom methods skip POST",
			config: ContentTypeCheckConfig{
				AllowedTypes: []string{"application/json"},
				Methods:      []string{http.MethodDelete},
			},
			method:   http.MethodPost,
			wantCode: http.StatusOK,
		},
		{
			name: "custom methods check DELETE",
			config: ContentTypeCheckConfig{
				AllowedTypes: []string{"application/json"},
				Methods:      []string{http.MethodDelete},
			},
			method:   http.MethodDelete,
			wantCode: http.StatusUnsupportedMediaType,
		},
		{
			name:        "second of multiple types",
			config:      ContentTypeCheckConfig{AllowedTypes: []string{"application/json", "application/xml"}},
			method:      http.MethodPost,
			contentType: "application/xml",
			wantCode:    http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw, err := ContentTypeCheckMiddleware(tt.config)
			require.NoError(t, err)

			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := do(chain(mw), req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusUnsupportedMediaType {
				assert.Equal(t, "Unsupported Media Type", w.Body.String())
			}
		})
	}
}
