package view

import (
	"fmt"
	"regexp"

	"github.com/google/cel-go/cel"
)

// node is one element of a compiled template.
type node interface {
	exec(r *renderer, s *scope) error
}

type textNode string

type outputNode struct {
	expr *expr
}

type branch struct {
	cond *expr
	body []node
}

type ifNode struct {
	branches  []branch
	otherwise []node
}

type forNode struct {
	key   string
	value string
	src   *expr
	body  []node
}

type setNode struct {
	name  string
	value *expr
}

// expr is a CEL expression parsed at compile time.
type expr struct {
	src  string
	line int
	prg  cel.Program
}

type stmtKind int

const (
	stmtIf stmtKind = iota
	stmtElseIf
	stmtElse
	stmtEnd
	stmtFor
	stmtSet
	stmtPrint
)

type stmt struct {
	kind  stmtKind
	word  string
	line  int
	names []string
	expr  string
}

var (
	ifStmt     = regexp.MustCompile(`(?s)^if\b\s*(.+)$`)
	elseIfStmt = regexp.MustCompile(`(?s)^else\s+if\b\s*(.+)$`)
	forStmt    = regexp.MustCompile(`(?s)^for\s+([A-Za-z_][A-Za-z0-9_]*)(?:\s*,\s*([A-Za-z_][A-Za-z0-9_]*))?\s+in\s+(.+)$`)
	setStmt    = regexp.MustCompile(`(?s)^set\s+([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.+)$`)
	printStmt  = regexp.MustCompile(`(?s)^print\s*\((.*)\)$`)
)

// reserved holds names a template may not bind, either because CEL reserves
// them or because the statement syntax uses them.
var reserved = map[string]struct{}{
	// CEL literals and operators.
	"true": {}, "false": {}, "null": {}, "in": {},
	// CEL reserved words.
	"as": {}, "break": {}, "const": {}, "continue": {}, "else": {},
	"for": {}, "function": {}, "if": {}, "import": {}, "let": {},
	"loop": {}, "package": {}, "namespace": {}, "return": {},
	"var": {}, "void": {}, "while": {},
	// Statements.
	"print": {}, "set": {}, "end": {},
}

// IsReserved reports whether name cannot be used as a template variable.
func IsReserved(name string) bool {
	_, ok := reserved[name]
	return ok
}

type parser struct {
	name   string
	env    *cel.Env
	tokens []token
	pos    int
}

func parse(name string, env *cel.Env, tokens []token) ([]node, error) {
	p := &parser{name: name, env: env, tokens: tokens}

	nodes, term, err := p.block()
	if err != nil {
		return nil, err
	}
	if term != nil {
		return nil, p.errorf(term.line, "unexpected %q", term.word)
	}

	return nodes, nil
}

// block parses nodes until an else, else if or end statement, which is
// returned to the caller. A nil statement means the input ended.
func (p *parser) block() ([]node, *stmt, error) {
	var nodes []node

	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		p.pos++

		switch tok.kind {
		case tokenText:
			if tok.text != "" {
				nodes = append(nodes, textNode(tok.text))
			}

		case tokenOutput:
			e, err := p.expr(tok.line, tok.text)
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, &outputNode{expr: e})

		case tokenStatement:
			if tok.text == "" {
				continue
			}

			st, err := p.classify(tok)
			if err != nil {
				return nil, nil, err
			}

			var n node
			switch st.kind {
			case stmtElseIf, stmtElse, stmtEnd:
				return nodes, st, nil
			case stmtIf:
				n, err = p.ifBlock(st)
			case stmtFor:
				n, err = p.forBlock(st)
			case stmtSet:
				n, err = p.set(st)
			case stmtPrint:
				var e *expr
				e, err = p.expr(st.line, st.expr)
				n = &outputNode{expr: e}
			}
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, n)
		}
	}

	return nodes, nil, nil
}

func (p *parser) classify(tok token) (*stmt, error) {
	text := tok.text

	switch {
	case text == "end":
		return &stmt{kind: stmtEnd, word: "end", line: tok.line}, nil
	case text == "else":
		return &stmt{kind: stmtElse, word: "else", line: tok.line}, nil
	}

	if m := elseIfStmt.FindStringSubmatch(text); m != nil {
		return &stmt{kind: stmtElseIf, word: "else if", line: tok.line, expr: m[1]}, nil
	}
	if m := ifStmt.FindStringSubmatch(text); m != nil {
		return &stmt{kind: stmtIf, word: "if", line: tok.line, expr: m[1]}, nil
	}
	if m := forStmt.FindStringSubmatch(text); m != nil {
		names := []string{m[1]}
		if m[2] != "" {
			names = append(names, m[2])
		}
		return &stmt{kind: stmtFor, word: "for", line: tok.line, names: names, expr: m[3]}, nil
	}
	if m := setStmt.FindStringSubmatch(text); m != nil {
		return &stmt{kind: stmtSet, word: "set", line: tok.line, names: []string{m[1]}, expr: m[2]}, nil
	}
	if m := printStmt.FindStringSubmatch(text); m != nil {
		return &stmt{kind: stmtPrint, word: "print", line: tok.line, expr: m[1]}, nil
	}

	return nil, p.errorf(tok.line, "unknown statement %q", text)
}

func (p *parser) ifBlock(st *stmt) (node, error) {
	n := &ifNode{}
	cond := st

	for {
		e, err := p.expr(cond.line, cond.expr)
		if err != nil {
			return nil, err
		}

		body, term, err := p.block()
		if err != nil {
			return nil, err
		}
		if term == nil {
			return nil, p.errorf(st.line, "unclosed if")
		}
		n.branches = append(n.branches, branch{cond: e, body: body})

		switch term.kind {
		case stmtEnd:
			return n, nil
		case stmtElseIf:
			cond = term
		case stmtElse:
			body, end, err := p.block()
			if err != nil {
				return nil, err
			}
			if end == nil {
				return nil, p.errorf(st.line, "unclosed if")
			}
			if end.kind != stmtEnd {
				return nil, p.errorf(end.line, "unexpected %q after else", end.word)
			}
			n.otherwise = body
			return n, nil
		}
	}
}

func (p *parser) forBlock(st *stmt) (node, error) {
	for _, name := range st.names {
		if err := p.bindable(st.line, name); err != nil {
			return nil, err
		}
	}
	if len(st.names) == 2 && st.names[0] == st.names[1] {
		return nil, p.errorf(st.line, "duplicate loop variable %q", st.names[0])
	}

	src, err := p.expr(st.line, st.expr)
	if err != nil {
		return nil, err
	}

	body, term, err := p.block()
	if err != nil {
		return nil, err
	}
	if term == nil {
		return nil, p.errorf(st.line, "unclosed for")
	}
	if term.kind != stmtEnd {
		return nil, p.errorf(term.line, "unexpected %q in for", term.word)
	}

	n := &forNode{key: st.names[0], src: src, body: body}
	if len(st.names) == 2 {
		n.value = st.names[1]
	}
	return n, nil
}

func (p *parser) set(st *stmt) (node, error) {
	name := st.names[0]
	if err := p.bindable(st.line, name); err != nil {
		return nil, err
	}

	e, err := p.expr(st.line, st.expr)
	if err != nil {
		return nil, err
	}
	return &setNode{name: name, value: e}, nil
}

func (p *parser) bindable(line int, name string) error {
	if IsReserved(name) {
		return &CompileError{Name: p.name, Line: line, Msg: fmt.Sprintf("cannot bind %q", name), Err: ErrReservedName}
	}
	return nil
}

func (p *parser) expr(line int, src string) (*expr, error) {
	if src == "" {
		return nil, p.errorf(line, "empty expression")
	}

	ast, iss := p.env.Parse(src)
	if iss != nil && iss.Err() != nil {
		return nil, &CompileError{Name: p.name, Line: line, Msg: fmt.Sprintf("invalid expression %q", src), Err: iss.Err()}
	}

	prg, err := p.env.Program(ast)
	if err != nil {
		return nil, &CompileError{Name: p.name, Line: line, Msg: fmt.Sprintf("invalid expression %q", src), Err: err}
	}

	return &expr{src: src, line: line, prg: prg}, nil
}

func (p *parser) errorf(line int, format string, args ...any) error {
	return &CompileError{Name: p.name, Line: line, Msg: fmt.Sprintf(format, args...)}
}
