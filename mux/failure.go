package mux

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoRouteMatch is returned by Router.Match when no route accepts the
// method and path. A mounted Router never surfaces it to handlers; it falls
// through to the next pipeline entry instead.
var ErrNoRouteMatch = errors.New("no matching route was found")

// ErrNotClaimed is the cause of the 404 failure produced when the pipeline
// runs out of entries without any of them writing a response.
var ErrNotClaimed = errors.New("no middleware claimed the request")

// ErrNextCalledTwice is the panic value raised when a handler invokes the
// same continuation more than once.
var ErrNextCalledTwice = errors.New("next called more than once")

// ErrAlreadyResponded is returned when a response is written to a context
// that has already responded.
var ErrAlreadyResponded = errors.New("response already written")

// Failure is the structured failure signal passed through a Next
// continuation. Status is an HTTP status code (4xx or 5xx), Message the text
// sent to the client and Cause the underlying error, if any.
type Failure struct {
	Status  int
	Message string
	Cause   error
}

// Status returns a failure signal for the given HTTP status code with the
// conventional reason phrase as message.
//
//	next(mux.Status(http.StatusUnauthorized))
func Status(code int) *Failure {
	return &Failure{Status: code, Message: statusText(code)}
}

// NewFailure returns a failure signal with an explicit message and cause.
// An empty message falls back to the reason phrase of code.
func NewFailure(code int, message string, cause error) *Failure {
	if message == "" {
		message = statusText(code)
	}
	return &Failure{Status: code, Message: message, Cause: cause}
}

func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%d %s: %v", f.Status, f.Message, f.Cause)
	}
	return fmt.Sprintf("%d %s", f.Status, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

// AsFailure converts any error passed to a continuation into a Failure.
// It returns nil for a nil error. A Failure whose status is not a 4xx or
// 5xx code becomes a 500 failure caused by it.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}

	var f *Failure
	if errors.As(err, &f) {
		if f.Status < http.StatusBadRequest || f.Status > 599 {
			return NewFailure(http.StatusInternalServerError, "", err)
		}
		return f
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return NewFailure(http.StatusBadRequest, "", err)
	}

	if errors.Is(err, ErrNoRouteMatch) || errors.Is(err, ErrNotClaimed) {
		return NewFailure(http.StatusNotFound, "", err)
	}

	return NewFailure(http.StatusInternalServerError, "", err)
}

// PatternError reports a malformed route pattern. It is raised at
// registration time and is never routed through the pipeline.
type PatternError struct {
	Pattern string
	Reason  string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("mux: invalid pattern %q: %s", e.Pattern, e.Reason)
}

// ValidationError reports a route parameter rejected by a validator
// registered with Router.ParamFunc or Router.ParamPattern.
type ValidationError struct {
	Param string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("mux: invalid value %q for parameter %q", e.Value, e.Param)
}

// HandlerPanic wraps a value recovered from a panicking handler.
type HandlerPanic struct {
	Value any
}

func (e *HandlerPanic) Error() string {
	return fmt.Sprintf("mux: handler panic: %v", e.Value)
}

func (e *HandlerPanic) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// statusText returns the reason phrase for code, or a generic phrase for
// codes unknown to net/http.
func statusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	if code >= 400 && code < 500 {
		return "Client Error"
	}
	return "Server Error"
}
