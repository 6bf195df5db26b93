package mux

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrRegexpURL is returned by Route.URL for regular expression routes.
var ErrRegexpURL = errors.New("mux: cannot build a URL for a regexp route")

// Route binds a method and a path pattern to an ordered list of handlers.
// Routes are created by Router.Register, Router.RegisterRegexp and the verb
// helpers.
type Route struct {
	router   *Router
	method   string
	pattern  *pattern
	handlers []Handler
	name     string
}

// Method returns the HTTP method the route answers.
func (r *Route) Method() string {
	return r.method
}

// Pattern returns the pattern the route was registered with.
func (r *Route) Pattern() string {
	return r.pattern.raw
}

// IsRegexp reports whether the route was registered with RegisterRegexp.
func (r *Route) IsRegexp() bool {
	return r.pattern.re != nil
}

// ParamNames returns the capture names in declaration order.
func (r *Route) ParamNames() []string {
	names := make([]string, len(r.pattern.names))
	copy(names, r.pattern.names)
	return names
}

// Handlers returns the number of handlers bound to the route.
func (r *Route) Handlers() int {
	return len(r.handlers)
}

// Name sets a name for the route, used to look it up with Router.GetRoute.
// Names are unique per router; a later route with the same name wins.
func (r *Route) Name(name string) *Route {
	if r.name != "" {
		delete(r.router.named, r.name)
	}
	r.name = name
	r.router.named[name] = r
	return r
}

// GetName returns the name of the route, if any.
func (r *Route) GetName() string {
	return r.name
}

// URL builds a URL path for the route from key/value pairs. Every capture of
// the pattern must be given; values are path-escaped, except for wildcard
// remainders which may contain separators. Regular expression routes cannot
// be reversed and return ErrRegexpURL.
//
//	r.Get("/users/:id", h).Name("user")
//	u, err := r.GetRoute("user").URL("id", "42") // "/users/42"
func (r *Route) URL(pairs ...string) (*url.URL, error) {
	if r.pattern.re != nil {
		return nil, ErrRegexpURL
	}

	values, err := mapFromPairs(pairs...)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, seg := range r.pattern.segments {
		b.WriteByte('/')

		switch seg.kind {
		case segmentLiteral:
			b.WriteString(seg.value)
		case segmentParam:
			v, ok := values[seg.value]
			if !ok || v == "" {
				return nil, fmt.Errorf("mux: missing route parameter %q", seg.value)
			}
			b.WriteString(url.PathEscape(v))
		case segmentWildcard:
			b.WriteString(strings.TrimPrefix(values[seg.value], "/"))
		}
	}

	path := b.String()
	if path == "" {
		path = "/"
	}
	return url.Parse(path)
}

// match reports whether the route accepts the path.
func (r *Route) match(path string) (Params, bool) {
	return r.pattern.match(path)
}
