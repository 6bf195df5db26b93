package view

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	placeholderOpen  = "${"
	placeholderClose = "}"
)

// ErrCircularPlaceholder is returned when a placeholder value refers back to
// itself.
var ErrCircularPlaceholder = errors.New("view: circular placeholder reference")

var (
	placeholderCall = regexp.MustCompile(`^([a-zA-Z0-9]+)\s*\((.*)\)$`)
	placeholderArg  = regexp.MustCompile(`'(.*?)'(?:,\s*)?`)
)

// PlaceholderFunc is a data value callable from a placeholder, as in
// ${upper('text')}. It receives the render data and the quoted arguments.
type PlaceholderFunc func(data map[string]any, args ...string) string

// Placeholder is a template replacing ${name} with the value bound to name.
// Values are themselves expanded, placeholders may nest (${${key}}) and
// unresolved placeholders are left untouched.
type Placeholder struct {
	name string
	src  string
}

// CompilePlaceholder returns a placeholder template. It never fails; all
// resolution happens at render time.
func CompilePlaceholder(name, src string) *Placeholder {
	return &Placeholder{name: name, src: src}
}

// Execute expands every resolvable placeholder.
func (p *Placeholder) Execute(_ context.Context, data map[string]any) (string, error) {
	return expand(p.src, data, make(map[string]bool))
}

func expand(s string, data map[string]any, visiting map[string]bool) (string, error) {
	var b strings.Builder

	for {
		start := strings.Index(s, placeholderOpen)
		if start < 0 {
			break
		}
		end := placeholderEnd(s, start)
		if end < 0 {
			break
		}

		raw := s[start+len(placeholderOpen) : end]
		if visiting[raw] {
			return "", fmt.Errorf("%w: %q", ErrCircularPlaceholder, raw)
		}
		visiting[raw] = true

		key, err := expand(raw, data, visiting)
		if err != nil {
			return "", err
		}

		value, ok := lookupPlaceholder(key, data)
		if ok {
			value, err = expand(value, data, visiting)
			if err != nil {
				return "", err
			}
			b.WriteString(s[:start])
			b.WriteString(value)
		} else {
			b.WriteString(s[:end+len(placeholderClose)])
		}

		delete(visiting, raw)
		s = s[end+len(placeholderClose):]
	}

	b.WriteString(s)
	return b.String(), nil
}

// placeholderEnd returns the index of the brace closing the placeholder
// opened at start, skipping nested placeholders, or -1.
func placeholderEnd(s string, start int) int {
	depth := 0
	for i := start + len(placeholderOpen); i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], placeholderClose):
			if depth == 0 {
				return i
			}
			depth--
			i += len(placeholderClose)
		case strings.HasPrefix(s[i:], placeholderOpen):
			depth++
			i += len(placeholderOpen)
		default:
			i++
		}
	}
	return -1
}

func lookupPlaceholder(key string, data map[string]any) (string, bool) {
	if m := placeholderCall.FindStringSubmatch(key); m != nil {
		if fn, ok := data[m[1]].(PlaceholderFunc); ok {
			var args []string
			for _, a := range placeholderArg.FindAllStringSubmatch(m[2], -1) {
				args = append(args, a[1])
			}
			return fn(data, args...), true
		}
	}

	v, ok := data[key]
	if !ok || v == nil {
		return "", false
	}
	return fmt.Sprint(v), true
}
