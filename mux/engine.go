package mux

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
)

// ErrNoEngine is returned by Context.Render when no engine is registered for
// the template's file extension.
var ErrNoEngine = errors.New("mux: no template engine registered")

// Engine renders a template identified by name with the given data.
type Engine interface {
	Render(ctx context.Context, name string, data map[string]any) (string, error)
}

// EngineFunc adapts an ordinary function to the Engine interface.
type EngineFunc func(ctx context.Context, name string, data map[string]any) (string, error)

// Render calls f(ctx, name, data).
func (f EngineFunc) Render(ctx context.Context, name string, data map[string]any) (string, error) {
	return f(ctx, name, data)
}

// contentTyper is implemented by engines that produce something other than
// HTML.
type contentTyper interface {
	ContentType() string
}

// Render renders the named template with the engine registered for its
// extension and writes the result with status 200. The template sees the
// pipeline globals, then the request store, then data, later sources
// overriding earlier ones. Errors are returned without writing anything so
// the caller can pass them to next.
func (c *Context) Render(name string, data map[string]any) error {
	ext := path.Ext(name)
	e, ok := c.pipeline.engines[ext]
	if !ok {
		return fmt.Errorf("%w for %q", ErrNoEngine, ext)
	}

	merged := make(map[string]any, len(c.pipeline.globals)+len(data))
	for k, v := range c.pipeline.globals {
		merged[k] = v
	}
	for k, v := range c.Values() {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}

	out, err := e.Render(c.Context(), name, merged)
	if err != nil {
		return err
	}

	contentType := "text/html; charset=utf-8"
	if ct, ok := e.(contentTyper); ok {
		contentType = ct.ContentType()
	}

	return c.Respond(http.StatusOK, contentType, []byte(out))
}
