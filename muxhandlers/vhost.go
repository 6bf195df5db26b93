package muxhandlers

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/vitalvas/yoke/mux"
	"golang.org/x/net/idna"
)

// ErrInvalidHostPattern is returned when a virtual host pattern is empty or
// not a valid domain name.
var ErrInvalidHostPattern = errors.New("vhost: invalid host pattern")

// VhostMiddleware returns a handler that delegates requests whose Host
// matches pattern to h and passes every other request on. A "*" in pattern
// matches any run of characters, so "*.example.com" matches
// "api.example.com". Internationalized names are compared in their ASCII
// form and matching ignores case and port.
func VhostMiddleware(pattern string, h mux.Handler) (mux.Handler, error) {
	if pattern == "" {
		return nil, ErrInvalidHostPattern
	}

	re, err := hostPatternRegexp(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidHostPattern, pattern, err)
	}

	return mux.HandlerFunc(func(c *mux.Context, next mux.Next) {
		host := requestHost(c.Request().Host)
		if host == "" || !re.MatchString(host) {
			next(nil)
			return
		}
		h.Handle(c, next)
	}), nil
}

var wildcardFragmentRe = regexp.MustCompile(`^[A-Za-z0-9-]*$`)

// hostPatternRegexp converts a host pattern label by label. Labels without
// a wildcard go through IDNA; the fragments around a wildcard must be
// ASCII letters, digits or hyphens.
func hostPatternRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?i)^")

	for i, label := range strings.Split(pattern, ".") {
		if label == "" {
			return nil, errors.New("empty label")
		}
		if i > 0 {
			b.WriteString(`\.`)
		}

		if !strings.Contains(label, "*") {
			ascii, err := idna.Lookup.ToASCII(label)
			if err != nil {
				return nil, err
			}
			b.WriteString(regexp.QuoteMeta(ascii))
			continue
		}

		for j, frag := range strings.Split(label, "*") {
			if !wildcardFragmentRe.MatchString(frag) {
				return nil, fmt.Errorf("invalid label %q", label)
			}
			if j > 0 {
				b.WriteString("(.*?)")
			}
			b.WriteString(regexp.QuoteMeta(strings.ToLower(frag)))
		}
	}

	b.WriteString("$")
	return regexp.Compile(b.String())
}

// requestHost returns the ASCII form of a Host header without its port.
func requestHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" {
		return ""
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return strings.ToLower(host)
	}
	return ascii
}
