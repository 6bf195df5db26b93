package mux

import (
	"errors"
	"net/http"
	"strings"
)

// MethodAll registers a route for every method in Methods.
const MethodAll = "ALL"

// Methods lists the HTTP methods a Router accepts, in the order used by
// AllowedMethods.
var Methods = []string{
	http.MethodGet,
	http.MethodPut,
	http.MethodPost,
	http.MethodDelete,
	http.MethodOptions,
	http.MethodHead,
	http.MethodTrace,
	http.MethodConnect,
	http.MethodPatch,
}

// ErrNoHandlers is returned when a route is registered without handlers.
var ErrNoHandlers = errors.New("mux: route has no handlers")

// Router matches the method and path of a request against registered
// routes. It is a Handler, so it is mounted into a Pipeline like any other
// middleware; a request no route accepts falls through to the next entry
// unless NoMatch handlers are set.
//
//	r := mux.NewRouter()
//	r.ParamPattern("id", "int")
//	r.Get("/users/:id", mux.Terminal(showUser))
//	p.Mount("/api", r)
//
// Routes are checked in registration order and the first match wins.
// Routes must be registered before the router serves requests.
type Router struct {
	// AutoOptions answers OPTIONS requests for paths without an explicit
	// OPTIONS route with the list of allowed methods.
	AutoOptions bool

	routes  map[string][]*Route
	order   []*Route
	params  map[string][]Handler
	named   map[string]*Route
	noMatch []Handler
}

// NewRouter returns a new router instance.
func NewRouter() *Router {
	return &Router{
		routes: make(map[string][]*Route),
		params: make(map[string][]Handler),
		named:  make(map[string]*Route),
	}
}

// Register adds a route for method and pattern at the end of the routing
// table. method is one of Methods or MethodAll. Registering the same method
// and pattern again adds another route, which an earlier match shadows.
func (r *Router) Register(method, pattern string, handlers ...Handler) (*Route, error) {
	return r.register(method, pattern, compilePattern, handlers)
}

// RegisterRegexp adds a route whose whole path must match the regular
// expression expr. Named groups are captured under their names, unnamed
// groups as param0, param1 and so on by group position.
//
//	r.RegisterRegexp(http.MethodGet, `/files/(\d+)\.(json|xml)`, h)
//	// GET /files/7.xml: param0 = "7", param1 = "xml"
func (r *Router) RegisterRegexp(method, expr string, handlers ...Handler) (*Route, error) {
	return r.register(method, expr, compileRegexpPattern, handlers)
}

func (r *Router) register(method, raw string, compile func(string) (*pattern, error), handlers []Handler) (*Route, error) {
	method = strings.ToUpper(method)
	if method != MethodAll && !isKnownMethod(method) {
		return nil, &PatternError{Pattern: raw, Reason: "unknown method " + quote(method)}
	}

	compiled, err := compile(raw)
	if err != nil {
		return nil, err
	}
	if len(handlers) == 0 {
		return nil, ErrNoHandlers
	}

	route := &Route{
		router:   r,
		method:   method,
		pattern:  compiled,
		handlers: handlers,
	}
	r.order = append(r.order, route)

	if method == MethodAll {
		for _, m := range Methods {
			r.routes[m] = append(r.routes[m], route)
		}
		return route, nil
	}
	r.routes[method] = append(r.routes[method], route)

	return route, nil
}

func (r *Router) mustRegister(method, pattern string, handlers []Handler) *Route {
	route, err := r.Register(method, pattern, handlers...)
	if err != nil {
		panic(err)
	}
	return route
}

// Get registers a GET route. It panics on an invalid pattern.
func (r *Router) Get(pattern string, handlers ...Handler) *Route {
	return r.mustRegister(http.MethodGet, pattern, handlers)
}

// Put registers a PUT route. It panics on an invalid pattern.
func (r *Router) Put(pattern string, handlers ...Handler) *Route {
	return r.mustRegister(http.MethodPut, pattern, handlers)
}

// Post registers a POST route. It panics on an invalid pattern.
func (r *Router) Post(pattern string, handlers ...Handler) *Route {
	return r.mustRegister(http.MethodPost, pattern, handlers)
}

// Delete registers a DELETE route. It panics on an invalid pattern.
func (r *Router) Delete(pattern string, handlers ...Handler) *Route {
	return r.mustRegister(http.MethodDelete, pattern, handlers)
}

// Options registers an OPTIONS route. It panics on an invalid pattern.
func (r *Router) Options(pattern string, handlers ...Handler) *Route {
	return r.mustRegister(http.MethodOptions, pattern, handlers)
}

// Head registers a HEAD route. It panics on an invalid pattern.
func (r *Router) Head(pattern string, handlers ...Handler) *Route {
	return r.mustRegister(http.MethodHead, pattern, handlers)
}

// Trace registers a TRACE route. It panics on an invalid pattern.
func (r *Router) Trace(pattern string, handlers ...Handler) *Route {
	return r.mustRegister(http.MethodTrace, pattern, handlers)
}

// Connect registers a CONNECT route. It panics on an invalid pattern.
func (r *Router) Connect(pattern string, handlers ...Handler) *Route {
	return r.mustRegister(http.MethodConnect, pattern, handlers)
}

// Patch registers a PATCH route. It panics on an invalid pattern.
func (r *Router) Patch(pattern string, handlers ...Handler) *Route {
	return r.mustRegister(http.MethodPatch, pattern, handlers)
}

// All registers a route for every method. It panics on an invalid pattern.
func (r *Router) All(pattern string, handlers ...Handler) *Route {
	return r.mustRegister(MethodAll, pattern, handlers)
}

// Param installs a handler that runs before the route handlers of every
// route capturing a parameter called name, whichever route it was declared
// for. The handler reads the value with Context.Param and calls next to
// accept it or next(err) to reject the request.
func (r *Router) Param(name string, h Handler) *Router {
	r.params[name] = append(r.params[name], h)
	return r
}

// ParamFunc installs a validator for the named parameter. A value the
// predicate rejects fails the request with a *ValidationError (400).
func (r *Router) ParamFunc(name string, valid func(value string) bool) *Router {
	return r.Param(name, HandlerFunc(func(c *Context, next Next) {
		value := c.Param(name)
		if !valid(value) {
			next(&ValidationError{Param: name, Value: value})
			return
		}
		next(nil)
	}))
}

// ParamPattern installs a validator from a regular expression or macro
// name (uuid, int, float, slug, alpha, alphanum, date, hex, domain). The
// expression must match the whole value.
//
//	r.ParamPattern("userId", "[1-9][0-9]") // "10" passes, "1" is rejected
func (r *Router) ParamPattern(name, pattern string) error {
	m, err := matcherFor(pattern)
	if err != nil {
		return &PatternError{Pattern: pattern, Reason: err.Error()}
	}

	r.ParamFunc(name, m.MatchString)
	return nil
}

// NoMatch sets handlers that run when no route accepts the request, in
// place of falling through to the next pipeline entry. Calling next from
// the last of them continues the pipeline.
func (r *Router) NoMatch(handlers ...Handler) *Router {
	r.noMatch = handlers
	return r
}

// Match returns the first route registered for method that accepts path,
// along with the captured parameters. It returns ErrNoRouteMatch when no
// route matches.
func (r *Router) Match(method, path string) (*Route, Params, error) {
	for _, route := range r.routes[method] {
		if params, ok := route.match(path); ok {
			return route, params, nil
		}
	}
	return nil, nil, ErrNoRouteMatch
}

// AllowedMethods returns the methods having a route that accepts path.
func (r *Router) AllowedMethods(path string) []string {
	var methods []string
	for _, m := range Methods {
		if _, _, err := r.Match(m, path); err == nil {
			methods = append(methods, m)
		}
	}
	return methods
}

// Routes returns the registered routes in registration order.
func (r *Router) Routes() []*Route {
	routes := make([]*Route, len(r.order))
	copy(routes, r.order)
	return routes
}

// GetRoute returns the route registered under name, or nil.
func (r *Router) GetRoute(name string) *Route {
	return r.named[name]
}

// WalkFunc is called for each route visited by Walk.
type WalkFunc func(route *Route) error

// Walk calls fn for every route in registration order. An error returned
// by fn stops the walk and is returned.
func (r *Router) Walk(fn WalkFunc) error {
	for _, route := range r.order {
		if err := fn(route); err != nil {
			return err
		}
	}
	return nil
}

// Handle routes the request. It implements Handler.
func (r *Router) Handle(c *Context, next Next) {
	method := c.Method()
	path := c.RoutePath()

	route, params, err := r.Match(method, path)
	if err != nil {
		if r.AutoOptions && method == http.MethodOptions {
			if allowed := r.AllowedMethods(path); len(allowed) > 0 {
				allow := strings.Join(allowed, ", ")
				c.Header().Set("Allow", allow)
				_ = c.String(http.StatusOK, allow)
				return
			}
		}
		if len(r.noMatch) > 0 {
			s := &sequence{c: c, handlers: r.noMatch, done: next, idx: -1}
			s.resume(nil)
			return
		}
		next(nil)
		return
	}

	c.addParams(params)

	var chain []Handler
	for _, p := range params {
		chain = append(chain, r.params[p.Key]...)
	}
	chain = append(chain, route.handlers...)

	s := &sequence{c: c, handlers: chain, done: next, idx: -1}
	s.resume(nil)
}

// sequence runs the parameter handlers and route handlers of a matched
// route. Leaving the sequence, by error or by the last handler calling
// next, continues the enclosing pipeline.
type sequence struct {
	c        *Context
	handlers []Handler
	done     Next
	idx      int
	t        trampoline
}

func (s *sequence) resume(err error) {
	if err != nil {
		s.done(err)
		return
	}
	if !s.t.enter() {
		return
	}

	for {
		s.idx++
		if s.idx >= len(s.handlers) {
			s.t.release()
			s.done(nil)
			return
		}

		h := s.handlers[s.idx]
		s.c.call(func(next Next) {
			h.Handle(s.c, next)
		}, s.resume)

		if !s.t.again() {
			return
		}
	}
}

func isKnownMethod(method string) bool {
	for _, m := range Methods {
		if m == method {
			return true
		}
	}
	return false
}
