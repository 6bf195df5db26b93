package main

import (
	"io"
	"net/http"

	"github.com/vitalvas/yoke/mux"
	"github.com/vitalvas/yoke/muxhandlers"
)

// demoRouter returns the routes served by "yoke serve". ext is the view
// extension used for the index page.
func demoRouter(ext string) *mux.Router {
	r := mux.NewRouter()
	r.AutoOptions = true

	if err := r.ParamPattern("id", "int"); err != nil {
		panic(err)
	}

	r.Get("/", mux.HandlerFunc(func(c *mux.Context, next mux.Next) {
		if err := c.Render("index."+ext, map[string]any{"path": c.Path()}); err != nil {
			next(err)
		}
	})).Name("index")

	r.Get("/healthz", mux.Terminal(func(c *mux.Context) {
		_ = c.String(http.StatusOK, "ok")
	})).Name("health")

	r.Get("/hello/:name", mux.Terminal(func(c *mux.Context) {
		_ = c.String(http.StatusOK, "Hello, "+c.Param("name")+"!")
	})).Name("hello")

	r.Get("/users/:id", mux.Terminal(func(c *mux.Context) {
		_ = c.JSON(http.StatusOK, map[string]any{
			"id":   c.Param("id"),
			"user": c.Values()[muxhandlers.UserKey],
		})
	})).Name("user")

	r.Post("/echo", mux.HandlerFunc(func(c *mux.Context, next mux.Next) {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			next(muxhandlers.RequestTooLarge(err))
			return
		}
		ct := c.Request().Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}
		_ = c.Respond(http.StatusOK, ct, body)
	})).Name("echo")

	r.Put("/users/:id", mux.Terminal(func(c *mux.Context) {
		_ = c.Respond(http.StatusNoContent, "", nil)
	}))

	return r
}
