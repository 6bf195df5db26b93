package mux

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// State is the lifecycle stage of a request flowing through a Pipeline.
type State int32

const (
	StatePending State = iota
	StateRunning
	StateCompleted
	StateErrored
	StateResponded
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	case StateResponded:
		return "responded"
	default:
		return "unknown"
	}
}

// Param is a single captured route parameter.
type Param struct {
	Key   string
	Value string
}

// Params holds the captured route parameters in declaration order.
type Params []Param

// Get returns the value of the named parameter. When nested routers capture
// the same name, the innermost capture wins.
func (ps Params) Get(name string) (string, bool) {
	for i := len(ps) - 1; i >= 0; i-- {
		if ps[i].Key == name {
			return ps[i].Value, true
		}
	}
	return "", false
}

// ByName returns the value of the named parameter or an empty string.
func (ps Params) ByName(name string) string {
	v, _ := ps.Get(name)
	return v
}

// Map returns the parameters as a map.
func (ps Params) Map() map[string]string {
	if len(ps) == 0 {
		return nil
	}
	m := make(map[string]string, len(ps))
	for _, p := range ps {
		m[p.Key] = p.Value
	}
	return m
}

// Context carries one request through the pipeline. It is created per
// request and never shared between requests.
type Context struct {
	pipeline *Pipeline
	req      *http.Request
	w        *responseWriter
	start    time.Time

	state atomic.Int32

	mu     sync.RWMutex
	method string
	path   string
	mount  string
	params Params
	store  map[string]any
	onEnd  []func()
	onDone []func()

	done     chan struct{}
	doneOnce sync.Once
}

func newContext(p *Pipeline, w http.ResponseWriter, r *http.Request) *Context {
	c := &Context{
		pipeline: p,
		req:      r,
		start:    time.Now(),
		method:   r.Method,
		path:     cleanPath(r.URL.Path),
		done:     make(chan struct{}),
	}
	c.w = &responseWriter{
		ResponseWriter: w,
		onWrite:        func() { c.state.Store(int32(StateResponded)) },
	}
	return c
}

// Request returns the underlying HTTP request.
func (c *Context) Request() *http.Request {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.req
}

// SetRequest replaces the request seen by later handlers, typically with a
// copy carrying a derived context. The path and method used for routing are
// not affected.
func (c *Context) SetRequest(r *http.Request) {
	if r == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.req = r
}

// Context returns the request's context.Context.
func (c *Context) Context() context.Context {
	return c.Request().Context()
}

// Logger returns the pipeline logger.
func (c *Context) Logger() *zap.Logger {
	return c.pipeline.logger
}

// Started returns the time the request entered the pipeline.
func (c *Context) Started() time.Time {
	return c.start
}

// Method returns the effective request method. It starts as the request
// method and may be replaced with SetMethod before routing.
func (c *Context) Method() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.method
}

// SetMethod overrides the method used for routing.
func (c *Context) SetMethod(method string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.method = strings.ToUpper(method)
}

// Path returns the cleaned request path.
func (c *Context) Path() string {
	return c.path
}

// MountPath returns the prefix of the pipeline entry currently running.
func (c *Context) MountPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.mount
}

// RoutePath returns the request path relative to the current mount prefix.
func (c *Context) RoutePath() string {
	c.mu.RLock()
	mount := strings.TrimSuffix(c.mount, "/")
	c.mu.RUnlock()

	if mount == "" {
		return c.path
	}
	rest := strings.TrimPrefix(c.path, mount)
	if rest == "" {
		return "/"
	}
	return rest
}

func (c *Context) setMount(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mount = prefix
}

// Params returns a copy of the captured route parameters.
func (c *Context) Params() Params {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.params) == 0 {
		return nil
	}
	out := make(Params, len(c.params))
	copy(out, c.params)
	return out
}

// Param returns the value of a captured route parameter.
func (c *Context) Param(name string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.params.ByName(name)
}

func (c *Context) addParams(ps Params) {
	if len(ps) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.params = append(c.params, ps...)
}

// Set stores a value in the request-scoped store. A nil value removes the
// key. Values set after the response was written are ignored.
func (c *Context) Set(key string, value any) {
	if c.Responded() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if value == nil {
		delete(c.store, key)
		return
	}
	if c.store == nil {
		c.store = make(map[string]any)
	}
	c.store[key] = value
}

// Get returns a value from the request-scoped store.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.store[key]
	return v, ok
}

// Values returns a copy of the request-scoped store.
func (c *Context) Values() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]any, len(c.store))
	for k, v := range c.store {
		out[k] = v
	}
	return out
}

// Global returns a pipeline global set with Pipeline.Set.
func (c *Context) Global(key string) (any, bool) {
	return c.pipeline.Global(key)
}

// State returns the current lifecycle state.
func (c *Context) State() State {
	return State(c.state.Load())
}

// Responded reports whether a response has been written.
func (c *Context) Responded() bool {
	return c.State() == StateResponded
}

// setState moves the request to s unless it already responded.
func (c *Context) setState(s State) {
	for {
		cur := c.state.Load()
		if State(cur) == StateResponded {
			return
		}
		if c.state.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}

// Header returns the response header map.
func (c *Context) Header() http.Header {
	return c.w.Header()
}

// Writer returns the response sink. Handlers writing through it directly
// must call End once the response is complete.
func (c *Context) Writer() ResponseWriter {
	return c.w
}

// Written reports whether the status line has been sent.
func (c *Context) Written() bool {
	return c.w.Written()
}

// Status returns the response status, 200 if nothing was written yet.
func (c *Context) Status() int {
	return c.w.Status()
}

// BeforeWrite registers fn to run right before the status line is sent.
// Hooks may modify headers and inspect the response but must not write.
func (c *Context) BeforeWrite(fn func(status int)) {
	c.w.addBefore(fn)
}

// TransformBody registers fn to rewrite the body of responses sent with
// Respond and its helpers. Transforms run in registration order, before the
// BeforeWrite hooks. Bodies written through Writer are not transformed.
func (c *Context) TransformBody(fn BodyTransform) {
	c.w.addTransform(fn)
}

// OnEnd registers fn to run once the response is finished.
func (c *Context) OnEnd(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onEnd = append(c.onEnd, fn)
}

// Done is closed once the response is finished or the client went away.
func (c *Context) Done() <-chan struct{} {
	return c.done
}

// OnDone registers fn to run once Done is closed. Unlike OnEnd it also runs
// when the request is abandoned. If Done is already closed, fn runs
// immediately.
func (c *Context) OnDone(fn func()) {
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		fn()
		return
	default:
	}
	c.onDone = append(c.onDone, fn)
	c.mu.Unlock()
}

func (c *Context) closeDone() {
	c.mu.Lock()
	close(c.done)
	hooks := c.onDone
	c.onDone = nil
	c.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// Respond writes a complete response. It returns ErrAlreadyResponded if a
// response was already started; the second attempt is logged.
func (c *Context) Respond(status int, contentType string, body []byte) error {
	err := c.w.respond(status, contentType, body)
	if errors.Is(err, ErrAlreadyResponded) {
		c.Logger().Warn("response already written",
			zap.String("method", c.Method()),
			zap.String("path", c.path),
			zap.Int("status", status),
		)
		return err
	}
	c.finish()
	return err
}

// End finishes the response. If nothing was written, an empty 200 response
// is sent. Calling End more than once is harmless.
func (c *Context) End() {
	c.w.close()
	c.finish()
}

func (c *Context) finish() {
	c.doneOnce.Do(func() {
		c.state.Store(int32(StateResponded))

		c.mu.RLock()
		hooks := c.onEnd
		c.mu.RUnlock()

		for _, fn := range hooks {
			fn()
		}
		c.closeDone()
	})
}

// abandon closes the sink without writing, used when the client is gone.
func (c *Context) abandon() {
	c.w.abandon()
	c.doneOnce.Do(c.closeDone)
}
