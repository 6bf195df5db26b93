package view

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultContentType = "text/html; charset=utf-8"

// Engine renders templates fetched from a Loader, compiling each template
// once and recompiling it when the loader reports a newer source. It
// implements mux.Engine.
type Engine struct {
	loader      Loader
	cache       *Cache
	compile     func(name, src string) (executable, error)
	logger      *zap.Logger
	metrics     *Metrics
	contentType string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for compile events.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records cache, compile and render metrics.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithCache makes the engine use c instead of a private cache.
func WithCache(c *Cache) Option {
	return func(e *Engine) {
		if c != nil {
			e.cache = c
		}
	}
}

// WithContentType overrides the content type reported to mux.Context.Render.
func WithContentType(ct string) Option {
	return func(e *Engine) {
		e.contentType = ct
	}
}

// New returns an engine for the <% %> template syntax.
func New(loader Loader, opts ...Option) *Engine {
	return newEngine(loader, func(name, src string) (executable, error) {
		return Compile(name, src)
	}, opts)
}

// NewPlaceholderEngine returns an engine substituting ${name} placeholders.
func NewPlaceholderEngine(loader Loader, opts ...Option) *Engine {
	return newEngine(loader, func(name, src string) (executable, error) {
		return CompilePlaceholder(name, src), nil
	}, opts)
}

func newEngine(loader Loader, compile func(name, src string) (executable, error), opts []Option) *Engine {
	e := &Engine{
		loader:      loader,
		cache:       NewCache(),
		compile:     compile,
		logger:      zap.NewNop(),
		contentType: defaultContentType,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ContentType returns the content type of rendered output.
func (e *Engine) ContentType() string {
	return e.contentType
}

// Cache returns the compiled template cache.
func (e *Engine) Cache() *Cache {
	return e.cache
}

// Render renders the named template. Loader errors are wrapped with
// ErrSourceUnavailable; malformed sources yield *CompileError and are
// dropped from the cache so the next render retries.
func (e *Engine) Render(ctx context.Context, name string, data map[string]any) (string, error) {
	start := time.Now()

	t, err := e.template(ctx, name)
	if err != nil {
		return "", err
	}

	out, err := t.Execute(ctx, data)
	e.metrics.rendered(name, time.Since(start))
	if err != nil {
		return "", err
	}

	return out, nil
}

func (e *Engine) template(ctx context.Context, name string) (executable, error) {
	if cached, ok := e.cache.get(name); ok {
		fresh, err := e.loader.Fresh(ctx, name, cached.token)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		if fresh {
			e.metrics.lookup("hit")
			return cached.tmpl, nil
		}
		e.metrics.lookup("stale")
	} else {
		e.metrics.lookup("miss")
	}

	src, err := e.loader.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	t, err := e.compile(name, src.Text)
	e.metrics.compiled(err)
	if err != nil {
		e.cache.Remove(name)
		e.logger.Warn("template compile failed",
			zap.String("template", name),
			zap.Error(err),
		)
		return nil, err
	}

	e.cache.put(name, &entry{tmpl: t, token: src.Token})
	e.logger.Debug("template compiled",
		zap.String("template", name),
		zap.String("token", src.Token),
	)

	return t, nil
}
