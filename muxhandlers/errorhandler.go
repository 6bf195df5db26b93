package muxhandlers

import (
	"cmp"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/vitalvas/yoke/mux"
	"github.com/vitalvas/yoke/view"
	"go.uber.org/zap"
)

//go:embed templates/error.html
var errorPage string

var defaultErrorTemplate = view.MustCompile("error.html", errorPage)

// ErrorHandlerConfig configures the error page handler.
type ErrorHandlerConfig struct {
	// FullStack adds the chain of wrapped causes to the error report.
	// Useful in development, leaks internals in production.
	FullStack bool

	// Template replaces the built-in HTML error page. It is executed with
	// title, code, message and stack bindings.
	Template *view.Template
}

type errorHandler struct {
	fullStack bool
	tmpl      *view.Template
}

type errorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
	Stack []string    `json:"stack,omitempty"`
}

// ErrorHandler returns a final responder writing failures as an HTML page,
// a JSON document or plain text. A Content-Type already set on the response
// wins, otherwise the Accept header is tried in order of preference. Plain
// text is the fallback.
//
//	p.OnError(muxhandlers.ErrorHandler(muxhandlers.ErrorHandlerConfig{}))
func ErrorHandler(cfg ErrorHandlerConfig) mux.ErrorHandler {
	h := &errorHandler{fullStack: cfg.FullStack, tmpl: cfg.Template}
	if h.tmpl == nil {
		h.tmpl = defaultErrorTemplate
	}
	return h
}

func (h *errorHandler) HandleError(c *mux.Context, f *mux.Failure, next mux.Next) {
	message, stack := h.describe(f)

	candidates := acceptedTypes(c.Request().Header.Get("Accept"))
	if ct := c.Header().Get("Content-Type"); ct != "" {
		candidates = append([]string{ct}, candidates...)
	}

	for _, mime := range candidates {
		ok, err := h.send(c, mime, f.Status, message, stack)
		if err != nil {
			next(err)
			return
		}
		if ok {
			return
		}
	}

	if _, err := h.send(c, "text/plain", f.Status, message, stack); err != nil {
		next(err)
	}
}

func (h *errorHandler) describe(f *mux.Failure) (string, []string) {
	if !h.fullStack || f.Cause == nil {
		return f.Message, nil
	}

	var stack []string
	for err := f.Cause; err != nil; err = errors.Unwrap(err) {
		stack = append(stack, fmt.Sprintf("%T: %v", err, err))
	}
	return f.Message + ": " + f.Cause.Error(), stack
}

func (h *errorHandler) send(c *mux.Context, mime string, code int, message string, stack []string) (bool, error) {
	mime = strings.ToLower(mime)

	switch {
	case strings.HasPrefix(mime, "text/html"):
		page, err := h.tmpl.Execute(c.Context(), map[string]any{
			"title":   title(c),
			"code":    code,
			"message": message,
			"stack":   orEmpty(stack),
		})
		if err != nil {
			c.Logger().Warn("error page render failed", zap.Error(err))
			return false, nil
		}
		return true, respond(c, code, "text/html; charset=utf-8", []byte(page))

	case strings.HasPrefix(mime, "application/json"):
		body, err := json.Marshal(errorBody{
			Error: errorDetail{Code: code, Message: message},
			Stack: stack,
		})
		if err != nil {
			return false, err
		}
		return true, respond(c, code, "application/json; charset=utf-8", body)

	case strings.HasPrefix(mime, "text/plain"):
		var sb strings.Builder
		sb.WriteString("Error ")
		sb.WriteString(strconv.Itoa(code))
		sb.WriteString(": ")
		sb.WriteString(message)
		for _, line := range stack {
			sb.WriteString("\n\tat ")
			sb.WriteString(line)
		}
		return true, respond(c, code, "text/plain; charset=utf-8", []byte(sb.String()))
	}

	return false, nil
}

func respond(c *mux.Context, code int, contentType string, body []byte) error {
	err := c.Respond(code, contentType, body)
	if errors.Is(err, mux.ErrAlreadyResponded) {
		return nil
	}
	return err
}

func title(c *mux.Context) string {
	if v, ok := c.Get("title"); ok {
		return fmt.Sprint(v)
	}
	if v, ok := c.Global("title"); ok {
		return fmt.Sprint(v)
	}
	return mux.PoweredBy
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// acceptedTypes returns the media ranges of an Accept header ordered by
// quality, keeping header order for equal weights.
func acceptedTypes(header string) []string {
	type weighted struct {
		mime string
		q    float64
	}

	var ranges []weighted
	for part := range strings.SplitSeq(header, ",") {
		mime, params, _ := strings.Cut(part, ";")
		mime = strings.TrimSpace(mime)
		if mime == "" {
			continue
		}

		q := 1.0
		for param := range strings.SplitSeq(params, ";") {
			k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || strings.TrimSpace(k) != "q" {
				continue
			}
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				q = parsed
			}
		}
		if q <= 0 {
			continue
		}
		ranges = append(ranges, weighted{mime: mime, q: q})
	}

	slices.SortStableFunc(ranges, func(a, b weighted) int {
		return cmp.Compare(b.q, a.q)
	})

	out := make([]string, len(ranges))
	for i, r := range ranges {
		out[i] = r.mime
	}
	return out
}
