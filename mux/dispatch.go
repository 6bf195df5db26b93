package mux

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// trampoline serialises the steps of a walk. A continuation invoked while
// the walk is already running on the current (or another) goroutine only
// records that another step is due, so synchronous next() calls never grow
// the stack.
type trampoline struct {
	mu      sync.Mutex
	running bool
	pending bool
}

// enter reports whether the caller became the runner and must drive the loop.
func (t *trampoline) enter() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		t.pending = true
		return false
	}
	t.running = true
	return true
}

// again reports whether a continuation arrived during the last step. When
// none did, the runner role is released.
func (t *trampoline) again() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending {
		t.pending = false
		return true
	}
	t.running = false
	return false
}

// release gives up the runner role at the end of a walk.
func (t *trampoline) release() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.running = false
	t.pending = false
}

// once returns a continuation that forwards to resume at most once. A
// second call panics with ErrNextCalledTwice unless the request already
// responded; calls after the response are ignored.
func (c *Context) once(resume func(error)) (Next, *atomic.Bool) {
	called := new(atomic.Bool)

	return func(err error) {
		if !called.CompareAndSwap(false, true) {
			if c.Responded() {
				return
			}
			panic(ErrNextCalledTwice)
		}
		if c.Responded() {
			return
		}
		resume(err)
	}, called
}

// call runs one handler step with a fresh continuation. Panics are turned
// into 500 failures carrying a *HandlerPanic.
func (c *Context) call(step func(next Next), resume func(error)) {
	next, called := c.once(resume)
	defer c.recoverStep(next, called)

	step(next)
}

func (c *Context) recoverStep(next Next, called *atomic.Bool) {
	v := recover()
	if v == nil {
		return
	}
	if v == http.ErrAbortHandler {
		panic(v)
	}

	if err, ok := v.(error); ok && errors.Is(err, ErrNextCalledTwice) {
		c.Logger().Error("continuation invoked more than once",
			zap.String("method", c.Method()),
			zap.String("path", c.path),
			zap.Stack("stack"),
		)
		return
	}

	c.Logger().Error("handler panic",
		zap.Any("panic", v),
		zap.String("method", c.Method()),
		zap.String("path", c.path),
		zap.Stack("stack"),
	)

	if called.Load() || c.Responded() {
		return
	}
	next(NewFailure(http.StatusInternalServerError, "", &HandlerPanic{Value: v}))
}

// dispatch walks the pipeline entries for one request.
type dispatch struct {
	p *Pipeline
	c *Context
	t trampoline

	mu      sync.Mutex
	idx     int
	failure *Failure
}

func newDispatch(p *Pipeline, c *Context) *dispatch {
	return &dispatch{p: p, c: c, idx: -1}
}

// resume is the target of every pipeline-level continuation.
func (d *dispatch) resume(err error) {
	f := AsFailure(err)

	d.mu.Lock()
	d.failure = f
	d.mu.Unlock()

	if f != nil {
		d.c.setState(StateErrored)
	} else {
		d.c.setState(StateRunning)
	}

	if !d.t.enter() {
		return
	}
	d.run()
}

func (d *dispatch) run() {
	for {
		e, f, ok := d.advance()
		if !ok {
			d.t.release()
			d.finish(f)
			return
		}

		d.c.call(func(next Next) {
			if f != nil {
				e.errorHandler.HandleError(d.c, f, next)
				return
			}
			e.handler.Handle(d.c, next)
		}, d.resume)

		if !d.t.again() {
			return
		}
	}
}

// advance selects the next entry eligible for the current path and failure
// state.
func (d *dispatch) advance() (entry, *Failure, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for d.idx+1 < len(d.p.entries) {
		d.idx++
		e := d.p.entries[d.idx]

		if (d.failure != nil) != (e.errorHandler != nil) {
			continue
		}
		if !matchPrefix(e.prefix, d.c.path) {
			continue
		}

		d.c.setMount(e.prefix)
		return e, d.failure, true
	}

	return entry{}, d.failure, false
}

// finish handles the end of the chain: a failure in flight goes to the
// final responder, otherwise nobody claimed the request.
func (d *dispatch) finish(f *Failure) {
	c := d.c
	if c.Written() {
		return
	}

	if f == nil {
		c.setState(StateCompleted)
		f = NewFailure(http.StatusNotFound, "", ErrNotClaimed)
	}
	c.setMount("")

	d.p.logFailure(c, f)

	if d.p.final != nil {
		c.call(func(next Next) {
			d.p.final.HandleError(c, f, next)
		}, func(err error) {
			writeFailure(c, AsFailure(err), f)
		})
	}

	if !c.Written() {
		writeFailure(c, nil, f)
		return
	}
	c.End()
}

// writeFailure writes the plain text fallback response for a failure.
func writeFailure(c *Context, f, fallback *Failure) {
	if f == nil {
		f = fallback
	}
	if c.Written() {
		return
	}
	_ = c.String(f.Status, f.Message)
}

// matchPrefix reports whether prefix mounts path. Prefixes match on whole
// segments, so "/api" mounts "/api" and "/api/users" but not "/apix".
func matchPrefix(prefix, path string) bool {
	if prefix == "" || prefix == "/" {
		return true
	}
	if len(path) < len(prefix) || path[:len(prefix)] != prefix {
		return false
	}
	return len(path) == len(prefix) || prefix[len(prefix)-1] == '/' || path[len(prefix)] == '/'
}
