package view

import (
	"strings"
)

const (
	openDelim  = "<%"
	closeDelim = "%>"
)

type tokenKind int

const (
	tokenText tokenKind = iota
	tokenOutput
	tokenStatement
)

type token struct {
	kind tokenKind
	text string
	line int
}

var whitespace = strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")

// lex splits template source into literal text, output tags (<%= %>) and
// statement tags (<% %>). Literal text has carriage returns, newlines and
// tabs replaced with spaces; everything else is kept verbatim.
func lex(name, src string) ([]token, error) {
	var tokens []token
	line := 1

	for len(src) > 0 {
		start := strings.Index(src, openDelim)
		if start < 0 {
			tokens = append(tokens, token{kind: tokenText, text: whitespace.Replace(src), line: line})
			break
		}

		if start > 0 {
			tokens = append(tokens, token{kind: tokenText, text: whitespace.Replace(src[:start]), line: line})
			line += strings.Count(src[:start], "\n")
		}
		src = src[start+len(openDelim):]

		kind := tokenStatement
		if strings.HasPrefix(src, "=") {
			kind = tokenOutput
			src = src[1:]
		}

		end := strings.Index(src, closeDelim)
		if end < 0 {
			return nil, &CompileError{Name: name, Line: line, Msg: "unclosed tag"}
		}

		tokens = append(tokens, token{kind: kind, text: strings.TrimSpace(src[:end]), line: line})
		line += strings.Count(src[:end], "\n")
		src = src[end+len(closeDelim):]
	}

	return tokens, nil
}
