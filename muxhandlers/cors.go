package muxhandlers

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/vitalvas/yoke/mux"
)

// ErrWildcardCredentials is returned when AllowedOrigins contains "*" and
// AllowCredentials is true. Use AllowOriginFunc for dynamic origin checks
// with credentials.
var ErrWildcardCredentials = errors.New("wildcard origin \"*\" cannot be used with AllowCredentials; use AllowOriginFunc instead")

// CORSConfig configures the CORS middleware behaviour.
//
// References:
//   - CORS protocol: https://fetch.spec.whatwg.org/#http-cors-protocol
//   - Web Origin:    https://www.rfc-editor.org/rfc/rfc6454
//   - HTTP Vary:     https://www.rfc-editor.org/rfc/rfc9110#field.vary
type CORSConfig struct {
	// AllowedOrigins is a list of exact origin strings, "*" for wildcard,
	// or subdomain wildcard patterns like "https://*.example.com".
	AllowedOrigins []string

	// AllowOriginFunc is an optional dynamic callback invoked when the
	// origin does not match any entry in AllowedOrigins. Return true to allow.
	AllowOriginFunc func(origin string) bool

	// AllowedMethods overrides the set of methods advertised in preflight
	// and actual responses. When empty the methods are discovered from the
	// router passed to CORSMiddleware.
	AllowedMethods []string

	// AllowedHeaders lists the headers the client may send in the actual
	// request. When empty the preflight Access-Control-Request-Headers value
	// is reflected. Use "*" to reflect all requested headers.
	AllowedHeaders []string

	// ExposeHeaders lists the headers the browser may expose to client code.
	ExposeHeaders []string

	// AllowCredentials sets Access-Control-Allow-Credentials: true.
	AllowCredentials bool

	// MaxAge is the duration in seconds a preflight result may be cached.
	// Positive values are sent as-is, negative values emit "0", zero omits the header.
	MaxAge int

	// OptionsStatusCode overrides the status of preflight responses.
	// Defaults to 204 No Content.
	OptionsStatusCode int

	// OptionsPassthrough, when true, sets CORS headers on preflight but
	// continues the pipeline instead of answering.
	OptionsPassthrough bool

	// AllowPrivateNetwork, when true, answers Access-Control-Request-Private-Network
	// preflight headers with Access-Control-Allow-Private-Network: true.
	// See https://wicg.github.io/private-network-access/
	AllowPrivateNetwork bool
}

type wildcardPattern struct {
	prefix string
	suffix string
}

func (cfg *CORSConfig) hasWildcardOrigin() bool {
	return slices.Contains(cfg.AllowedOrigins, "*")
}

// parseOrigins normalizes AllowedOrigins to lowercase and splits them into
// exact matches and wildcard patterns.
func parseOrigins(origins []string) ([]string, []wildcardPattern, error) {
	var exact []string
	var patterns []wildcardPattern

	for _, o := range origins {
		if o == "*" {
			exact = append(exact, o)
			continue
		}

		lower := strings.ToLower(o)

		prefix, suffix, found := strings.Cut(lower, "*")
		if !found {
			exact = append(exact, lower)
			continue
		}
		if strings.Contains(suffix, "*") {
			return nil, nil, errors.New("origin pattern contains multiple wildcards: " + o)
		}

		patterns = append(patterns, wildcardPattern{prefix: prefix, suffix: suffix})
	}

	return exact, patterns, nil
}

func matchOrigin(originLower string, exactOrigins []string, patterns []wildcardPattern) bool {
	for _, o := range exactOrigins {
		if o == "*" || o == originLower {
			return true
		}
	}

	for _, wp := range patterns {
		if len(originLower) >= len(wp.prefix)+len(wp.suffix) &&
			strings.HasPrefix(originLower, wp.prefix) &&
			strings.HasSuffix(originLower, wp.suffix) {
			return true
		}
	}

	return false
}

// cors holds the compiled CORS configuration.
type cors struct {
	cfg             CORSConfig
	router          *mux.Router
	exact           []string
	patterns        []wildcardPattern
	specific        bool
	headersWildcard bool
	preflightStatus int
}

// CORSMiddleware returns a handler implementing the CORS protocol per the
// Fetch Standard. It validates the Origin header (RFC 6454), answers
// preflight OPTIONS requests and sets the response headers of actual
// requests.
//
// When AllowedMethods is empty, the methods advertised for a path are those
// router has routes for; mount the handler at the same prefix as router.
// router may be nil when AllowedMethods is set.
//
// It returns an error if the configuration is invalid (e.g. wildcard origin
// combined with AllowCredentials).
func CORSMiddleware(router *mux.Router, cfg CORSConfig) (mux.Handler, error) {
	if cfg.hasWildcardOrigin() && cfg.AllowCredentials {
		return nil, ErrWildcardCredentials
	}

	exact, patterns, err := parseOrigins(cfg.AllowedOrigins)
	if err != nil {
		return nil, err
	}

	h := &cors{
		cfg:      cfg,
		router:   router,
		exact:    exact,
		patterns: patterns,
		specific: !cfg.hasWildcardOrigin() &&
			(len(exact) > 0 || len(patterns) > 0 || cfg.AllowOriginFunc != nil),
		headersWildcard: slices.Contains(cfg.AllowedHeaders, "*"),
		preflightStatus: cfg.OptionsStatusCode,
	}
	if h.preflightStatus == 0 {
		h.preflightStatus = http.StatusNoContent
	}

	return h, nil
}

func (h *cors) allowed(origin string) bool {
	if matchOrigin(strings.ToLower(origin), h.exact, h.patterns) {
		return true
	}
	return h.cfg.AllowOriginFunc != nil && h.cfg.AllowOriginFunc(origin)
}

func (h *cors) Handle(c *mux.Context, next mux.Next) {
	req := c.Request()
	origin := req.Header.Get("Origin")

	if origin == "" {
		if h.specific {
			c.Header().Add("Vary", "Origin")
		}
		next(nil)
		return
	}

	if !h.allowed(origin) {
		next(nil)
		return
	}

	h.setOriginHeaders(c, origin)

	if c.Method() == http.MethodOptions && req.Header.Get("Access-Control-Request-Method") != "" {
		h.preflight(c)

		if h.cfg.OptionsPassthrough {
			next(nil)
			return
		}
		if err := c.Respond(h.preflightStatus, "", nil); err != nil {
			next(err)
		}
		return
	}

	h.setMethods(c)

	if len(h.cfg.ExposeHeaders) > 0 {
		c.Header().Set("Access-Control-Expose-Headers", strings.Join(h.cfg.ExposeHeaders, ","))
	}

	next(nil)
}

func (h *cors) setOriginHeaders(c *mux.Context, origin string) {
	if h.cfg.hasWildcardOrigin() && !h.cfg.AllowCredentials {
		c.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		c.Header().Set("Access-Control-Allow-Origin", origin)
		c.Header().Add("Vary", "Origin")
	}

	if h.cfg.AllowCredentials {
		c.Header().Set("Access-Control-Allow-Credentials", "true")
	}
}

func (h *cors) setMethods(c *mux.Context) {
	methods := h.cfg.AllowedMethods
	if len(methods) == 0 && h.router != nil {
		methods = h.router.AllowedMethods(c.RoutePath())
	}

	if len(methods) > 0 {
		c.Header().Set("Access-Control-Allow-Methods", strings.Join(methods, ","))
	}
}

func (h *cors) preflight(c *mux.Context) {
	req := c.Request()
	header := c.Header()

	h.setMethods(c)

	requested := req.Header.Get("Access-Control-Request-Headers")
	switch {
	case h.headersWildcard:
		if requested != "" {
			header.Set("Access-Control-Allow-Headers", requested)
		}
	case len(h.cfg.AllowedHeaders) > 0:
		header.Set("Access-Control-Allow-Headers", strings.Join(h.cfg.AllowedHeaders, ","))
	case requested != "":
		header.Set("Access-Control-Allow-Headers", requested)
	}

	if h.cfg.MaxAge > 0 {
		header.Set("Access-Control-Max-Age", strconv.Itoa(h.cfg.MaxAge))
	} else if h.cfg.MaxAge < 0 {
		header.Set("Access-Control-Max-Age", "0")
	}

	if h.cfg.AllowPrivateNetwork && req.Header.Get("Access-Control-Request-Private-Network") == "true" {
		header.Set("Access-Control-Allow-Private-Network", "true")
		header.Add("Vary", "Access-Control-Request-Private-Network")
	}

	header.Add("Vary", "Access-Control-Request-Method")
	header.Add("Vary", "Access-Control-Request-Headers")
}
