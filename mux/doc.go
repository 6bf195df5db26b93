// Package mux implements a continuation-style HTTP request pipeline and a
// path-pattern router that plugs into it.
//
// # Pipeline
//
// A Pipeline is an ordered list of handlers, each optionally scoped to a
// path prefix. Every handler receives the request Context and a Next
// continuation:
//
//	p := mux.NewPipeline(mux.WithLogger(logger))
//	p.Use(mux.HandlerFunc(func(c *mux.Context, next mux.Next) {
//	    c.Set("user", "anonymous")
//	    next(nil)
//	}))
//	p.Mount("/api", router)
//	http.ListenAndServe(":8080", p)
//
// A handler does exactly one of the following:
//
//   - calls next(nil) to continue with the next entry whose prefix matches;
//   - calls next(err) to fail the request, skipping ordinary entries until
//     the next error-handling entry;
//   - writes a response and returns without calling next.
//
// Calling the same next twice panics with ErrNextCalledTwice, unless the
// request already responded, in which case late calls are ignored. Writing a
// second response returns ErrAlreadyResponded.
//
// Prefixes match whole path segments: "/api" mounts "/api" and "/api/users"
// but not "/apix".
//
// # Failures
//
// Any error passed to next is converted with AsFailure into a *Failure
// carrying an HTTP status:
//
//	next(mux.Status(http.StatusUnauthorized))
//	next(mux.NewFailure(http.StatusConflict, "already exists", err))
//	next(err) // 500 with err as cause
//
// Error-handling entries are registered with UseError and MountError. An
// error handler may answer the request, pass the failure on with next(err),
// or recover with next(nil), which resumes ordinary entries. When the chain
// ends with a failure in flight, the final responder set with OnError runs,
// falling back to a plain text response. When the chain ends without any
// entry answering, the request fails with 404 and ErrNotClaimed as cause.
//
// A panic inside a handler is recovered and becomes a 500 failure whose
// cause is a *HandlerPanic.
//
// # Asynchronous handlers
//
// next may be called from another goroutine after the handler returned.
// ServeHTTP blocks until the response is finished or the client goes away.
// Handlers answering through Respond, JSON, XML, String, HTML or Render
// finish the response implicitly; handlers writing to Context.Writer must
// call Context.End.
//
// # Router
//
// A Router is a Handler that matches method and path against routes in
// registration order:
//
//	r := mux.NewRouter()
//	r.Get("/users/:id", mux.Terminal(func(c *mux.Context) {
//	    c.String(http.StatusOK, c.Param("id"))
//	}))
//	r.Get("/static/*path", staticHandler)
//
// Patterns consist of literal segments, ":name" captures matching one
// non-empty segment, and an optional trailing wildcard ("*" or "*name")
// matching the rest of the path. A single trailing slash is ignored. Invalid
// patterns are reported as *PatternError by Register; the verb helpers
// panic with it.
//
// RegisterRegexp matches the whole path against a regular expression.
// Unnamed groups are captured as param0, param1 and so on:
//
//	r.RegisterRegexp(http.MethodGet, `/archive/(\d{4})/(?P<slug>[a-z-]+)`, h)
//
// When no route matches, the router calls next(nil) so later pipeline
// entries get their turn, or runs the handlers given to NoMatch. A router
// mounted under a prefix matches paths relative to that prefix.
//
// # Parameter validators
//
// Validators are registered per parameter name and apply to every route of
// the router capturing that name:
//
//	r.ParamPattern("id", "int")
//	r.ParamPattern("userId", "[1-9][0-9]")
//	r.ParamFunc("slug", func(v string) bool { return len(v) < 64 })
//
// A rejected value fails the request with a *ValidationError (400) before
// any route handler runs. ParamPattern accepts these macros besides regular
// expressions:
//
//	uuid     - RFC 4122 UUID (e.g. 550e8400-e29b-41d4-a716-446655440000)
//	int      - unsigned integer (e.g. 42)
//	float    - decimal number (e.g. 3.14, 42, .5)
//	slug     - URL-safe slug (e.g. my-post-title)
//	alpha    - alphabetic characters (e.g. hello)
//	alphanum - alphanumeric characters (e.g. abc123)
//	date     - ISO 8601 date (e.g. 2024-01-15)
//	hex      - hexadecimal string (e.g. deadBEEF)
//	domain   - domain name per RFC 1123 (e.g. example.com, sub.example.co.uk)
//
// # Templates
//
// Engines are registered by file extension and used by Context.Render:
//
//	p.Engine(".html", views)
//	c.Render("index.html", map[string]any{"name": "Ada"})
//
// The template sees the pipeline globals (Pipeline.Set), the request store
// (Context.Set) and the data passed to Render.
package mux
