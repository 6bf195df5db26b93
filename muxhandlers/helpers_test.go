package muxhandlers

import (
	"net/http"
	"net/http/httptest"

	"github.com/vitalvas/yoke/mux"
)

// ok answers 200 with body.
func ok(body string) mux.Handler {
	return mux.Terminal(func(c *mux.Context) {
		_ = c.String(http.StatusOK, body)
	})
}

// chain builds a pipeline running handlers, then answering "ok".
func chain(handlers ...mux.Handler) *mux.Pipeline {
	return mux.NewPipeline().Use(handlers...).Use(ok("ok"))
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}
