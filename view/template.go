package view

import (
	"cmp"
	"context"
	"fmt"
	"html"
	"slices"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	"github.com/google/cel-go/ext"
	"github.com/google/cel-go/interpreter"
)

// celEnv is shared by every template. Expressions are parsed without type
// checking so variables resolve from the render data at evaluation time.
var celEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(
		ext.Strings(),
		cel.Function("html",
			cel.Overload("html_string", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(escapeHTML),
			),
		),
	)
})

func escapeHTML(v ref.Val) ref.Val {
	s, ok := v.(types.String)
	if !ok {
		return types.MaybeNoSuchOverloadErr(v)
	}
	return types.String(html.EscapeString(string(s)))
}

// Template is a compiled template. It is safe for concurrent use.
type Template struct {
	name  string
	nodes []node
}

// Compile parses src into a Template. Expressions are CEL; syntax errors,
// unbalanced blocks and reserved bindings are reported as *CompileError.
func Compile(name, src string) (*Template, error) {
	env, err := celEnv()
	if err != nil {
		return nil, fmt.Errorf("view: cel environment: %w", err)
	}

	tokens, err := lex(name, src)
	if err != nil {
		return nil, err
	}

	nodes, err := parse(name, env, tokens)
	if err != nil {
		return nil, err
	}

	return &Template{name: name, nodes: nodes}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(name, src string) *Template {
	t, err := Compile(name, src)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the name the template was compiled with.
func (t *Template) Name() string {
	return t.name
}

// Execute renders the template with data as the variable bindings.
func (t *Template) Execute(ctx context.Context, data map[string]any) (string, error) {
	for k := range data {
		if IsReserved(k) {
			return "", fmt.Errorf("%w: %q", ErrReservedName, k)
		}
	}
	if data == nil {
		data = map[string]any{}
	}

	base, err := interpreter.NewActivation(data)
	if err != nil {
		return "", err
	}

	r := &renderer{ctx: ctx, name: t.name}
	if err := r.run(t.nodes, newScope(nil, base)); err != nil {
		return "", err
	}

	return r.out.String(), nil
}

type renderer struct {
	ctx  context.Context
	name string
	out  strings.Builder
}

func (r *renderer) run(nodes []node, s *scope) error {
	for _, n := range nodes {
		if err := n.exec(r, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) eval(e *expr, s *scope) (ref.Val, error) {
	if err := r.ctx.Err(); err != nil {
		return nil, err
	}

	v, _, err := e.prg.ContextEval(r.ctx, s.act)
	if err != nil {
		return nil, &ExecError{Name: r.name, Line: e.line, Expr: e.src, Err: err}
	}
	return v, nil
}

// scope holds template locals. A for loop opens a child scope; set assigns
// to the innermost scope that already defines the name.
type scope struct {
	parent *scope
	vars   map[string]any
	act    interpreter.Activation
}

func newScope(parent *scope, base interpreter.Activation) *scope {
	vars := make(map[string]any)
	// A map[string]any is always accepted.
	local, _ := interpreter.NewActivation(vars)

	return &scope{
		parent: parent,
		vars:   vars,
		act:    interpreter.NewHierarchicalActivation(base, local),
	}
}

func (s *scope) child() *scope {
	return newScope(s, s.act)
}

func (s *scope) assign(name string, v ref.Val) {
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.vars[name]; ok {
			sc.vars[name] = v
			return
		}
	}
	s.vars[name] = v
}

func (n textNode) exec(r *renderer, _ *scope) error {
	r.out.WriteString(string(n))
	return nil
}

func (n *outputNode) exec(r *renderer, s *scope) error {
	v, err := r.eval(n.expr, s)
	if err != nil {
		return err
	}
	r.out.WriteString(format(v))
	return nil
}

func (n *ifNode) exec(r *renderer, s *scope) error {
	for _, b := range n.branches {
		v, err := r.eval(b.cond, s)
		if err != nil {
			return err
		}

		ok, err := truthy(v)
		if err != nil {
			return &ExecError{Name: r.name, Line: b.cond.line, Expr: b.cond.src, Err: err}
		}
		if ok {
			return r.run(b.body, s)
		}
	}
	return r.run(n.otherwise, s)
}

func (n *setNode) exec(r *renderer, s *scope) error {
	v, err := r.eval(n.value, s)
	if err != nil {
		return err
	}
	s.assign(n.name, v)
	return nil
}

func (n *forNode) exec(r *renderer, s *scope) error {
	v, err := r.eval(n.src, s)
	if err != nil {
		return err
	}

	inner := s.child()
	iteration := func(key, value ref.Val) error {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		if n.value == "" {
			inner.vars[n.key] = value
		} else {
			inner.vars[n.key] = key
			inner.vars[n.value] = value
		}
		return r.run(n.body, inner)
	}

	switch coll := v.(type) {
	case traits.Mapper:
		for _, k := range sortedKeys(coll) {
			// A single variable ranges over the keys, as CEL comprehensions do.
			value := coll.Get(k)
			if n.value == "" {
				value = k
			}
			if err := iteration(k, value); err != nil {
				return err
			}
		}
	case traits.Lister:
		it := coll.Iterator()
		for i := 0; it.HasNext() == types.True; i++ {
			if err := iteration(types.Int(i), it.Next()); err != nil {
				return err
			}
		}
	case types.Null:
	default:
		return &ExecError{Name: r.name, Line: n.src.line, Expr: n.src.src,
			Err: fmt.Errorf("cannot iterate over %s", v.Type().TypeName())}
	}

	return nil
}

// sortedKeys returns the map keys in a stable order so renders are
// deterministic.
func sortedKeys(m traits.Mapper) []ref.Val {
	var keys []ref.Val
	it := m.Iterator()
	for it.HasNext() == types.True {
		keys = append(keys, it.Next())
	}

	slices.SortFunc(keys, func(a, b ref.Val) int {
		return cmp.Compare(fmt.Sprint(a.Value()), fmt.Sprint(b.Value()))
	})
	return keys
}

func truthy(v ref.Val) (bool, error) {
	switch v := v.(type) {
	case types.Bool:
		return bool(v), nil
	case types.Null:
		return false, nil
	}
	return false, fmt.Errorf("condition is %s, not bool", v.Type().TypeName())
}

func format(v ref.Val) string {
	switch v := v.(type) {
	case types.String:
		return string(v)
	case types.Bytes:
		return string(v)
	case types.Null:
		return ""
	}
	return fmt.Sprint(v.Value())
}
