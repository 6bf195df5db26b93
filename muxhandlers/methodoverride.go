package muxhandlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/vitalvas/yoke/mux"
)

// ErrInvalidOverrideMethod is returned when MethodOverrideConfig.AllowedMethods
// or MethodOverrideConfig.OriginalMethods contains an invalid HTTP method.
var ErrInvalidOverrideMethod = errors.New("method override: allowed methods must be valid HTTP methods")

// MethodOverrideConfig configures the Method Override middleware behaviour.
type MethodOverrideConfig struct {
	// HeaderNames is the list of header names checked in order.
	// The first non-empty header value is used as the override.
	// When nil, defaults to
	// ["X-HTTP-Method-Override", "X-Method-Override", "X-HTTP-Method"].
	HeaderNames []string

	// QueryParam, when set, is checked after the headers, e.g. "_method".
	QueryParam string

	// OriginalMethods is the set of HTTP methods eligible for override.
	// When nil, defaults to [POST].
	OriginalMethods []string

	// AllowedMethods restricts which methods can be used as overrides.
	// When nil, defaults to PUT, PATCH, DELETE, HEAD, OPTIONS.
	AllowedMethods []string
}

var defaultOverrideHeaders = []string{
	"X-HTTP-Method-Override",
	"X-Method-Override",
	"X-HTTP-Method",
}

var defaultOriginalMethods = []string{http.MethodPost}

var defaultOverrideMethods = []string{
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodHead,
	http.MethodOptions,
}

// MethodOverrideMiddleware returns a handler that lets clients override the
// method used for routing. The first non-empty override value is
// uppercased and checked against the allowed set; when allowed it becomes
// the Context method seen by later routers and the header is removed. The
// underlying request method is left untouched.
//
// Mount it before the routers it should affect. It returns
// ErrInvalidOverrideMethod if AllowedMethods or OriginalMethods contains an
// invalid method.
func MethodOverrideMiddleware(cfg MethodOverrideConfig) (mux.Handler, error) {
	headers := cfg.HeaderNames
	if len(headers) == 0 {
		headers = defaultOverrideHeaders
	}

	originals := cfg.OriginalMethods
	if originals == nil {
		originals = defaultOriginalMethods
	}

	methods := cfg.AllowedMethods
	if methods == nil {
		methods = defaultOverrideMethods
	}

	originalSet, err := methodSet(originals)
	if err != nil {
		return nil, err
	}
	allowed, err := methodSet(methods)
	if err != nil {
		return nil, err
	}

	headerNames := append([]string(nil), headers...)
	queryParam := cfg.QueryParam

	return mux.HandlerFunc(func(c *mux.Context, next mux.Next) {
		r := c.Request()
		if _, ok := originalSet[c.Method()]; !ok {
			next(nil)
			return
		}

		for _, h := range headerNames {
			if v := r.Header.Get(h); v != "" {
				if override := strings.ToUpper(v); allowed[override] {
					c.SetMethod(override)
					r.Header.Del(h)
				}
				next(nil)
				return
			}
		}

		if queryParam != "" {
			if v := r.URL.Query().Get(queryParam); v != "" {
				if override := strings.ToUpper(v); allowed[override] {
					c.SetMethod(override)
				}
			}
		}

		next(nil)
	}), nil
}

func methodSet(methods []string) (map[string]bool, error) {
	set := make(map[string]bool, len(methods))
	for _, m := range methods {
		if m == "" || m != strings.ToUpper(m) {
			return nil, ErrInvalidOverrideMethod
		}
		set[m] = true
	}
	return set, nil
}
