package muxhandlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/yoke/mux"
	"github.com/vitalvas/yoke/view"
)

func failing(err error) mux.Handler {
	return mux.HandlerFunc(func(_ *mux.Context, next mux.Next) {
		next(err)
	})
}

func TestErrorHandler(t *testing.T) {
	errDB := errors.New("connection refused")

	tests := []struct {
		name      string
		config    ErrorHandlerConfig
		err       error
		accept    string
		preset    string
		wantCode  int
		wantType  string
		wantBody  string
		wantParts []string
	}{
		{
			name:     "plain text fallback",
			err:      mux.Status(http.StatusForbidden),
			wantCode: http.StatusForbidden,
			wantType: "text/plain; charset=utf-8",
			wantBody: "Error 403: Forbidden",
		},
		{
			name:     "unknown accept falls back to text",
			err:      mux.Status(http.StatusForbidden),
			accept:   "image/png",
			wantCode: http.StatusForbidden,
			wantType: "text/plain; charset=utf-8",
			wantBody: "Error 403: Forbidden",
		},
		{
			name:     "json by accept",
			err:      mux.NewFailure(http.StatusConflict, "already exists", nil),
			accept:   "application/json",
			wantCode: http.StatusConflict,
			wantType: "application/json; charset=utf-8",
			wantBody: `{"error":{"code":409,"message":"already exists"}}`,
		},
		{
			name:     "accept quality order",
			err:      mux.Status(http.StatusNotFound),
			accept:   "text/plain;q=0.5, application/json",
			wantCode: http.StatusNotFound,
			wantType: "application/json; charset=utf-8",
			wantBody: `{"error":{"code":404,"message":"Not Found"}}`,
		},
		{
			name:     "response content type wins",
			err:      mux.Status(http.StatusBadRequest),
			accept:   "text/html",
			preset:   "application/json",
			wantCode: http.StatusBadRequest,
			wantType: "application/json; charset=utf-8",
			wantBody: `{"error":{"code":400,"message":"Bad Request"}}`,
		},
		{
			name:      "html page",
			err:       mux.NewFailure(http.StatusTeapot, "<short & stout>", nil),
			accept:    "text/html,application/xhtml+xml",
			wantCode:  http.StatusTeapot,
			wantType:  "text/html; charset=utf-8",
			wantParts: []string{"<title>Yoke</title>", "<em>418</em>", "&lt;short &amp; stout&gt;"},
		},
		{
			name:     "plain error is internal",
			err:      errDB,
			wantCode: http.StatusInternalServerError,
			wantType: "text/plain; charset=utf-8",
			wantBody: "Error 500: Internal Server Error",
		},
		{
			name:     "full stack in text",
			config:   ErrorHandlerConfig{FullStack: true},
			err:      mux.NewFailure(http.StatusBadGateway, "", fmt.Errorf("query: %w", errDB)),
			wantCode: http.StatusBadGateway,
			wantType: "text/plain; charset=utf-8",
			wantBody: "Error 502: Bad Gateway: query: connection refused" +
				"\n\tat *fmt.wrapError: query: connection refused" +
				"\n\tat *errors.errorString: connection refused",
		},
		{
			name:      "full stack in html",
			config:    ErrorHandlerConfig{FullStack: true},
			err:       mux.NewFailure(http.StatusBadGateway, "", errDB),
			accept:    "text/html",
			wantCode:  http.StatusBadGateway,
			wantType:  "text/html; charset=utf-8",
			wantParts: []string{`<ul id="stacktrace">`, "<li>*errors.errorString: connection refused</li>"},
		},
		{
			name: "custom template",
			config: ErrorHandlerConfig{
				Template: view.MustCompile("custom", "<%= title %>/<%= code %>/<%= message %>"),
			},
			err:      mux.Status(http.StatusNotFound),
			accept:   "text/html",
			wantCode: http.StatusNotFound,
			wantType: "text/html; charset=utf-8",
			wantBody: "Yoke/404/Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mux.NewPipeline().
				Use(mux.HandlerFunc(func(c *mux.Context, next mux.Next) {
					if tt.preset != "" {
						c.Header().Set("Content-Type", tt.preset)
					}
					next(nil)
				}), failing(tt.err)).
				OnError(ErrorHandler(tt.config))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			w := do(p, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantType, w.Header().Get("Content-Type"))
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
			for _, part := range tt.wantParts {
				assert.Contains(t, w.Body.String(), part)
			}
		})
	}

	t.Run("json stack", func(t *testing.T) {
		p := mux.NewPipeline().
			Use(failing(mux.NewFailure(http.StatusInternalServerError, "", errDB))).
			OnError(ErrorHandler(ErrorHandlerConfig{FullStack: true}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept", "application/json")
		w := do(p, req)

		var body errorBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 500, body.Error.Code)
		assert.Equal(t, []string{"*errors.errorString: connection refused"}, body.Stack)
	})

	t.Run("title from globals and store", func(t *testing.T) {
		p := mux.NewPipeline().Set("title", "Shop").
			Use(failing(mux.Status(http.StatusNotFound))).
			OnError(ErrorHandler(ErrorHandlerConfig{}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept", "text/html")
		assert.Contains(t, do(p, req).Body.String(), "<title>Shop</title>")

		p = mux.NewPipeline().
			Use(mux.HandlerFunc(func(c *mux.Context, next mux.Next) {
				c.Set("title", "Admin")
				next(mux.Status(http.StatusNotFound))
			})).
			OnError(ErrorHandler(ErrorHandlerConfig{}))

		assert.Contains(t, do(p, req).Body.String(), "<title>Admin</title>")
	})

	t.Run("unclaimed request", func(t *testing.T) {
		p := mux.NewPipeline().OnError(ErrorHandler(ErrorHandlerConfig{}))

		w := do(p, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Error 404: Not Found", w.Body.String())
	})
}

func TestAcceptedTypes(t *testing.T) {
	tests := []struct {
		header string
		want   []string
	}{
		{"", []string{}},
		{"text/html", []string{"text/html"}},
		{"text/plain;q=0.2, application/json, text/html;q=0.8", []string{"application/json", "text/html", "text/plain"}},
		{"a/b;q=0, c/d", []string{"c/d"}},
		{"a/b;level=1;q=0.5, c/d;q=0.5", []string{"a/b", "c/d"}},
		{"a/b;q=bogus", []string{"a/b"}},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, acceptedTypes(tt.header))
		})
	}
}
