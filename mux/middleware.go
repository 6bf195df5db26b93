package mux

import (
	"net/http"
	"strings"
)

// MiddlewareFunc is a net/http style middleware.
type MiddlewareFunc func(http.Handler) http.Handler

// Middleware adapts a net/http style middleware into a pipeline Handler.
// Calling the wrapped handler continues the pipeline with the (possibly
// replaced) request; writing a response without calling it ends the walk.
func Middleware(mw MiddlewareFunc) Handler {
	return HandlerFunc(func(c *Context, next Next) {
		var continued bool
		inner := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			continued = true
			c.SetRequest(r)
			next(nil)
		})
		mw(inner).ServeHTTP(c.Writer(), c.Request())

		if !continued && c.Written() {
			c.End()
		}
	})
}

// CORSMethodMiddleware sets the Access-Control-Allow-Methods response header
// (Fetch Standard, CORS protocol) to every method the router has a route for
// on the request path.
func CORSMethodMiddleware(r *Router) Handler {
	return HandlerFunc(func(c *Context, next Next) {
		if methods := r.AllowedMethods(c.RoutePath()); len(methods) > 0 {
			c.Header().Set("Access-Control-Allow-Methods", strings.Join(methods, ","))
		}
		next(nil)
	})
}
