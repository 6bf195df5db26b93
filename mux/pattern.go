package mux

import (
	"regexp"
	"strconv"
	"strings"
)

type segmentKind uint8

const (
	segmentLiteral segmentKind = iota
	segmentParam
	segmentWildcard
)

// segment is one "/"-separated piece of a route pattern. For literals value
// is the text to match, for captures it is the parameter name.
type segment struct {
	kind  segmentKind
	value string
}

// pattern is a compiled route pattern such as "/users/:id/files/*path", or
// a regular expression when re is set.
type pattern struct {
	raw      string
	segments []segment
	names    []string
	re       *regexp.Regexp
}

// WildcardParam is the parameter key used for an unnamed trailing wildcard.
const WildcardParam = "*"

var paramNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// compilePattern parses raw into a matcher. Supported segments:
//
//	/users        literal, case sensitive
//	/:id          one non-empty segment captured as "id"
//	/*  or /*rest remainder of the path, last segment only, may be empty
//
// A single trailing slash is ignored.
func compilePattern(raw string) (*pattern, error) {
	if raw == "" {
		return nil, &PatternError{Pattern: raw, Reason: "empty pattern"}
	}
	if raw[0] != '/' {
		return nil, &PatternError{Pattern: raw, Reason: "must start with /"}
	}

	p := &pattern{raw: raw}

	body := strings.TrimSuffix(raw[1:], "/")
	if body == "" {
		return p, nil
	}

	parts := strings.Split(body, "/")
	seen := make(map[string]struct{}, len(parts))

	for i, part := range parts {
		switch {
		case part == "":
			return nil, &PatternError{Pattern: raw, Reason: "empty segment"}

		case part[0] == ':':
			name := part[1:]
			if name == "" {
				return nil, &PatternError{Pattern: raw, Reason: "missing parameter name"}
			}
			if !paramNameRe.MatchString(name) {
				return nil, &PatternError{Pattern: raw, Reason: "invalid parameter name " + quote(name)}
			}
			if _, dup := seen[name]; dup {
				return nil, &PatternError{Pattern: raw, Reason: "duplicate parameter " + quote(name)}
			}
			seen[name] = struct{}{}
			p.segments = append(p.segments, segment{kind: segmentParam, value: name})
			p.names = append(p.names, name)

		case part[0] == '*':
			if i != len(parts)-1 {
				return nil, &PatternError{Pattern: raw, Reason: "wildcard must be the last segment"}
			}
			name := part[1:]
			if name == "" {
				name = WildcardParam
			} else if !paramNameRe.MatchString(name) {
				return nil, &PatternError{Pattern: raw, Reason: "invalid parameter name " + quote(name)}
			}
			if _, dup := seen[name]; dup {
				return nil, &PatternError{Pattern: raw, Reason: "duplicate parameter " + quote(name)}
			}
			p.segments = append(p.segments, segment{kind: segmentWildcard, value: name})
			p.names = append(p.names, name)

		default:
			p.segments = append(p.segments, segment{kind: segmentLiteral, value: part})
		}
	}

	return p, nil
}

// compileRegexpPattern compiles a regular expression route. The expression
// is anchored at both ends.
func compileRegexpPattern(raw string) (*pattern, error) {
	if raw == "" {
		return nil, &PatternError{Pattern: raw, Reason: "empty pattern"}
	}

	re, err := compileRegexp(anchor(raw))
	if err != nil {
		return nil, &PatternError{Pattern: raw, Reason: err.Error()}
	}

	p := &pattern{raw: raw, re: re}
	for i, name := range re.SubexpNames()[1:] {
		if name == "" {
			name = "param" + strconv.Itoa(i)
		}
		p.names = append(p.names, name)
	}
	return p, nil
}

func quote(s string) string {
	return `"` + s + `"`
}

// match reports whether path satisfies the pattern and returns the captured
// parameters in declaration order.
func (p *pattern) match(path string) (Params, bool) {
	if p.re != nil {
		return p.matchRegexp(path)
	}

	rest := strings.TrimPrefix(path, "/")

	var params Params
	if len(p.names) > 0 {
		params = make(Params, 0, len(p.names))
	}

	for _, seg := range p.segments {
		if seg.kind == segmentWildcard {
			return append(params, Param{Key: seg.value, Value: rest}), true
		}
		if rest == "" {
			return nil, false
		}

		var part string
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			part, rest = rest[:i], rest[i+1:]
		} else {
			part, rest = rest, ""
		}

		switch seg.kind {
		case segmentLiteral:
			if part != seg.value {
				return nil, false
			}
		case segmentParam:
			if part == "" {
				return nil, false
			}
			params = append(params, Param{Key: seg.value, Value: part})
		}
	}

	if rest != "" {
		return nil, false
	}
	return params, true
}

func (p *pattern) matchRegexp(path string) (Params, bool) {
	groups := p.re.FindStringSubmatch(path)
	if groups == nil {
		return nil, false
	}

	var params Params
	if len(p.names) > 0 {
		params = make(Params, 0, len(p.names))
	}
	for i, name := range p.names {
		params = append(params, Param{Key: name, Value: groups[i+1]})
	}
	return params, true
}
