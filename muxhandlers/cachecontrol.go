package muxhandlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/vitalvas/yoke/mux"
)

// ErrNoCacheControlRules is returned when CacheControlConfig.Rules is empty.
var ErrNoCacheControlRules = errors.New("cache control: at least one rule is required")

// CacheControlRule maps a Content-Type prefix to Cache-Control and Expires
// header values.
type CacheControlRule struct {
	// ContentType is a case-insensitive prefix of the response Content-Type,
	// e.g. "image/" or "text/html".
	ContentType string

	// Value is the Cache-Control header value, e.g. "public, max-age=86400".
	Value string

	// Expires is added to the current time to compute the Expires header.
	// Zero yields an already expired date, a negative value sets no header.
	Expires time.Duration
}

// CacheControlConfig configures the CacheControl middleware behaviour.
type CacheControlConfig struct {
	// Rules are evaluated in order and the first match wins. At least one
	// is required.
	Rules []CacheControlRule

	// DefaultValue is used for responses no rule matches. When empty, no
	// Cache-Control header is set for them.
	DefaultValue string

	// DefaultExpires is the Expires offset for unmatched responses, with
	// the same meaning as CacheControlRule.Expires.
	DefaultExpires time.Duration
}

type cacheControlRule struct {
	contentType string
	value       string
	expires     time.Duration
	hasExpires  bool
}

// CacheControlMiddleware returns a handler that sets Cache-Control and
// Expires from the response Content-Type right before the status line is
// sent. Headers set by later handlers are kept.
//
// It returns ErrNoCacheControlRules if Rules is empty.
func CacheControlMiddleware(cfg CacheControlConfig) (mux.Handler, error) {
	if len(cfg.Rules) == 0 {
		return nil, ErrNoCacheControlRules
	}

	rules := make([]cacheControlRule, 0, len(cfg.Rules)+1)
	for _, r := range cfg.Rules {
		rules = append(rules, cacheControlRule{
			contentType: strings.ToLower(r.ContentType),
			value:       r.Value,
			expires:     r.Expires,
			hasExpires:  r.Expires >= 0,
		})
	}

	// The empty prefix matches everything.
	rules = append(rules, cacheControlRule{
		value:      cfg.DefaultValue,
		expires:    cfg.DefaultExpires,
		hasExpires: cfg.DefaultExpires >= 0,
	})

	return mux.HandlerFunc(func(c *mux.Context, next mux.Next) {
		c.BeforeWrite(func(int) {
			h := c.Header()

			ccSet := h.Get("Cache-Control") != ""
			exSet := h.Get("Expires") != ""
			if ccSet && exSet {
				return
			}

			ct := strings.ToLower(h.Get("Content-Type"))
			for _, rule := range rules {
				if !strings.HasPrefix(ct, rule.contentType) {
					continue
				}

				if !ccSet && rule.value != "" {
					h.Set("Cache-Control", rule.value)
				}
				if !exSet && rule.hasExpires {
					h.Set("Expires", time.Now().UTC().Add(rule.expires).Format(http.TimeFormat))
				}
				return
			}
		})

		next(nil)
	}), nil
}
