package mux

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type textEngine struct {
	EngineFunc
}

func (textEngine) ContentType() string {
	return "text/plain; charset=utf-8"
}

func dumpEngine() EngineFunc {
	return func(_ context.Context, name string, data map[string]any) (string, error) {
		keys := make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		b.WriteString(name)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, data[k])
		}
		return b.String(), nil
	}
}

func TestContextRender(t *testing.T) {
	t.Run("merges globals store and data", func(t *testing.T) {
		p := NewPipeline().Set("site", "docs").Engine(".html", dumpEngine())
		p.Use(HandlerFunc(func(c *Context, next Next) {
			c.Set("user", "ada")
			c.Set("site", "request")
			next(nil)
		}), Terminal(func(c *Context) {
			require.NoError(t, c.Render("index.html", map[string]any{"user": "grace"}))
		}))

		w := serve(p, http.MethodGet, "/")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, "index.html site=request title=Yoke user=grace x-powered-by=true", w.Body.String())
	})

	t.Run("engine content type", func(t *testing.T) {
		p := NewPipeline().Engine("txt", textEngine{dumpEngine()})
		p.Set("x-powered-by", nil)
		p.Use(Terminal(func(c *Context) {
			require.NoError(t, c.Render("mail.txt", nil))
		}))

		w := serve(p, http.MethodGet, "/")
		assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, "mail.txt title=Yoke", w.Body.String())
	})

	t.Run("no engine", func(t *testing.T) {
		var err error
		p := NewPipeline().Use(HandlerFunc(func(c *Context, next Next) {
			err = c.Render("index.pug", nil)
			next(err)
		}))

		w := serve(p, http.MethodGet, "/")
		assert.ErrorIs(t, err, ErrNoEngine)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("engine error writes nothing", func(t *testing.T) {
		boom := errors.New("boom")
		p := NewPipeline().Engine(".html", EngineFunc(func(context.Context, string, map[string]any) (string, error) {
			return "", boom
		}))
		p.Use(HandlerFunc(func(c *Context, next Next) {
			err := c.Render("index.html", nil)
			assert.False(t, c.Written())
			next(err)
		}))

		w := serve(p, http.MethodGet, "/")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
