package muxhandlers

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/vitalvas/yoke/mux"
)

// ErrNoAllowedTypes is returned when ContentTypeCheckConfig.AllowedTypes is
// empty.
var ErrNoAllowedTypes = errors.New("content type check: at least one allowed content type is required")

// ContentTypeCheckConfig configures the Content-Type Check middleware behaviour.
type ContentTypeCheckConfig struct {
	// AllowedTypes is the set of acceptable Content-Type values.
	// Matching is case-insensitive and ignores parameters
	// (e.g. "application/json" matches "application/json; charset=utf-8").
	// Required; at least one must be provided.
	AllowedTypes []string

	// Methods is the set of HTTP methods that require Content-Type
	// validation. When nil, defaults to POST, PUT, PATCH.
	Methods []string
}

var defaultCheckedMethods = []string{
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
}

// ContentTypeCheckMiddleware returns a handler that validates the
// Content-Type header on requests with matching methods. A missing,
// malformed or unlisted media type fails the request with 415 Unsupported
// Media Type.
//
// It returns ErrNoAllowedTypes if AllowedTypes is empty.
func ContentTypeCheckMiddleware(cfg ContentTypeCheckConfig) (mux.Handler, error) {
	if len(cfg.AllowedTypes) == 0 {
		return nil, ErrNoAllowedTypes
	}

	methods := cfg.Methods
	if methods == nil {
		methods = defaultCheckedMethods
	}

	checked := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		checked[m] = struct{}{}
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		allowed[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}

	return mux.HandlerFunc(func(c *mux.Context, next mux.Next) {
		if _, ok := checked[c.Method()]; !ok {
			next(nil)
			return
		}

		mediaType, _, err := mime.ParseMediaType(c.Request().Header.Get("Content-Type"))
		if err != nil {
			next(mux.NewFailure(http.StatusUnsupportedMediaType, "", err))
			return
		}

		if _, ok := allowed[strings.ToLower(mediaType)]; !ok {
			next(mux.Status(http.StatusUnsupportedMediaType))
			return
		}

		next(nil)
	}), nil
}
