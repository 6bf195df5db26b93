package mux

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// PoweredBy is the X-Powered-By value sent while the "x-powered-by" global
// is true.
const PoweredBy = "Yoke"

// entry is one pipeline step. Exactly one of handler and errorHandler is set.
type entry struct {
	prefix       string
	handler      Handler
	errorHandler ErrorHandler
}

// Pipeline is an ordered list of handlers scoped by path prefix. It
// implements http.Handler.
//
//	p := mux.NewPipeline(mux.WithLogger(logger))
//	p.Use(muxhandlers.RequestIDMiddleware(muxhandlers.RequestIDConfig{}))
//	p.Mount("/api", router)
//	p.UseError(errorHandler)
//	http.ListenAndServe(":8080", p)
//
// Entries must be registered before the pipeline serves requests.
type Pipeline struct {
	entries []entry
	engines map[string]Engine
	globals map[string]any
	final   ErrorHandler
	logger  *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for unhandled failures, panics and
// abandoned requests. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline returns an empty pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		engines: make(map[string]Engine),
		globals: map[string]any{
			"title":        "Yoke",
			"x-powered-by": true,
		},
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Use appends handlers that run for every request.
func (p *Pipeline) Use(handlers ...Handler) *Pipeline {
	return p.Mount("/", handlers...)
}

// Mount appends handlers that run for requests whose path is prefix or lies
// below it. A Router mounted under a prefix matches paths relative to it.
func (p *Pipeline) Mount(prefix string, handlers ...Handler) *Pipeline {
	prefix = normalizePrefix(prefix)
	for _, h := range handlers {
		p.entries = append(p.entries, entry{prefix: prefix, handler: h})
	}
	return p
}

// UseError appends error-handling entries that run for every request while
// a failure is in flight.
func (p *Pipeline) UseError(handlers ...ErrorHandler) *Pipeline {
	return p.MountError("/", handlers...)
}

// MountError appends error-handling entries scoped to prefix.
func (p *Pipeline) MountError(prefix string, handlers ...ErrorHandler) *Pipeline {
	prefix = normalizePrefix(prefix)
	for _, h := range handlers {
		p.entries = append(p.entries, entry{prefix: prefix, errorHandler: h})
	}
	return p
}

// OnError sets the final responder, run synchronously when the chain ends
// without a response. It receives either the failure in flight or a 404
// failure caused by ErrNotClaimed. Without a final responder, or when it
// does not write, a plain text response with the failure status is sent.
func (p *Pipeline) OnError(h ErrorHandler) *Pipeline {
	p.final = h
	return p
}

// Set stores a global value merged into every template render. A nil value
// removes the key.
func (p *Pipeline) Set(key string, value any) *Pipeline {
	if value == nil {
		delete(p.globals, key)
		return p
	}
	p.globals[key] = value
	return p
}

// Global returns a global value.
func (p *Pipeline) Global(key string) (any, bool) {
	v, ok := p.globals[key]
	return v, ok
}

// Engine registers a template engine for a file extension such as ".html".
func (p *Pipeline) Engine(ext string, e Engine) *Pipeline {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	p.engines[ext] = e
	return p
}

// Logger returns the pipeline logger.
func (p *Pipeline) Logger() *zap.Logger {
	return p.logger
}

// ServeHTTP runs the request through the pipeline. It returns once the
// response is finished, or when the client goes away.
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if on, _ := p.globals["x-powered-by"].(bool); on {
		w.Header().Set("X-Powered-By", PoweredBy)
	}

	c := newContext(p, w, r)
	d := newDispatch(p, c)

	d.resume(nil)

	select {
	case <-c.Done():
	case <-r.Context().Done():
		// The response may have been finished at the same time.
		select {
		case <-c.Done():
			return
		default:
		}

		c.abandon()
		p.logger.Warn("request abandoned",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("state", c.State().String()),
			zap.Error(context.Cause(r.Context())),
		)
	}
}

func (p *Pipeline) logFailure(c *Context, f *Failure) {
	fields := []zap.Field{
		zap.Int("status", f.Status),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
	}
	if f.Cause != nil {
		fields = append(fields, zap.Error(f.Cause))
	}

	if f.Status >= http.StatusInternalServerError {
		p.logger.Error("unhandled failure", fields...)
		return
	}
	p.logger.Warn("unhandled failure", fields...)
}

func normalizePrefix(prefix string) string {
	if prefix == "" {
		return "/"
	}
	if prefix[0] != '/' {
		prefix = "/" + prefix
	}
	if len(prefix) > 1 {
		prefix = strings.TrimSuffix(prefix, "/")
	}
	return prefix
}
