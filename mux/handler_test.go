package mux

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromHTTP(t *testing.T) {
	t.Run("writes response", func(t *testing.T) {
		h := FromHTTP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, r.URL.Path)
		}))

		w := serve(NewPipeline().Use(h), http.MethodGet, "/std")
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "/std", w.Body.String())
	})

	t.Run("empty handler answers 200", func(t *testing.T) {
		h := FromHTTP(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

		w := serve(NewPipeline().Use(h), http.MethodGet, "/")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("mounted under router", func(t *testing.T) {
		r := NewRouter()
		r.Get("/health", FromHTTP(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "ok")
		})))

		w := serve(NewPipeline().Use(r), http.MethodGet, "/health")
		assert.Equal(t, "ok", w.Body.String())
	})
}

func TestErrorHandlerFunc(t *testing.T) {
	var got *Failure
	h := ErrorHandlerFunc(func(_ *Context, f *Failure, _ Next) {
		got = f
	})

	f := Status(http.StatusTeapot)
	h.HandleError(nil, f, nil)
	assert.Same(t, f, got)
}
