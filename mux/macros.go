package mux

import (
	"fmt"
	"regexp"
)

// valueMatcher validates a single route parameter value.
// *regexp.Regexp satisfies this interface.
type valueMatcher interface {
	MatchString(string) bool
	String() string
}

// lengthMatcher wraps a regexp with an additional maximum length constraint.
type lengthMatcher struct {
	re     *regexp.Regexp
	maxLen int
}

func (m *lengthMatcher) MatchString(s string) bool {
	return len(s) <= m.maxLen && m.re.MatchString(s)
}

func (m *lengthMatcher) String() string {
	return m.re.String()
}

// paramMacros maps macro names usable with Router.ParamPattern to
// pre-compiled, fully anchored matchers.
var paramMacros = func() map[string]valueMatcher {
	raw := map[string]string{
		"uuid":     `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`,
		"int":      `[0-9]+`,
		"float":    `[0-9]*\.?[0-9]+`,
		"slug":     `[a-zA-Z0-9]+(?:-[a-zA-Z0-9]+)*`,
		"alpha":    `[a-zA-Z]+`,
		"alphanum": `[a-zA-Z0-9]+`,
		"date":     `[0-9]{4}-[0-9]{2}-[0-9]{2}`,
		"hex":      `[0-9a-fA-F]+`,
		// RFC 1035/1123: labels 1-63 chars, total up to 253 chars.
		"domain": `(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)*[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?`,
	}

	maxLengths := map[string]int{
		"domain": 253,
	}

	m := make(map[string]valueMatcher, len(raw))
	for name, pattern := range raw {
		re := regexp.MustCompile(anchor(pattern))

		if maxLen, ok := maxLengths[name]; ok {
			m[name] = &lengthMatcher{re: re, maxLen: maxLen}
			continue
		}
		m[name] = re
	}

	return m
}()

// anchor wraps pattern so that it must match the whole value.
func anchor(pattern string) string {
	return fmt.Sprintf("^(?:%s)$", pattern)
}

// matcherFor returns the matcher for a macro name, or compiles pattern as a
// regular expression that must match the entire parameter value.
func matcherFor(pattern string) (valueMatcher, error) {
	if m, ok := paramMacros[pattern]; ok {
		return m, nil
	}

	return compileRegexp(anchor(pattern))
}
