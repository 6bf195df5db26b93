package mux

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	f := Status(http.StatusUnauthorized)
	assert.Equal(t, http.StatusUnauthorized, f.Status)
	assert.Equal(t, "Unauthorized", f.Message)
	assert.Nil(t, f.Cause)
	assert.Equal(t, "401 Unauthorized", f.Error())
}

func TestNewFailure(t *testing.T) {
	t.Run("explicit message", func(t *testing.T) {
		cause := errors.New("duplicate key")
		f := NewFailure(http.StatusConflict, "user exists", cause)
		assert.Equal(t, "409 user exists: duplicate key", f.Error())
		assert.ErrorIs(t, f, cause)
	})

	t.Run("default message", func(t *testing.T) {
		f := NewFailure(http.StatusBadGateway, "", nil)
		assert.Equal(t, "Bad Gateway", f.Message)
	})

	t.Run("unknown codes", func(t *testing.T) {
		assert.Equal(t, "Client Error", NewFailure(499, "", nil).Message)
		assert.Equal(t, "Server Error", NewFailure(599, "", nil).Message)
	})
}

func TestAsFailure(t *testing.T) {
	plain := errors.New("plain")

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "failure", err: Status(http.StatusTeapot), status: http.StatusTeapot},
		{name: "wrapped failure", err: fmt.Errorf("ctx: %w", Status(http.StatusGone)), status: http.StatusGone},
		{name: "validation", err: &ValidationError{Param: "id", Value: "x"}, status: http.StatusBadRequest},
		{name: "no route", err: ErrNoRouteMatch, status: http.StatusNotFound},
		{name: "not claimed", err: ErrNotClaimed, status: http.StatusNotFound},
		{name: "panic", err: &HandlerPanic{Value: "boom"}, status: http.StatusInternalServerError},
		{name: "plain", err: plain, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := AsFailure(tt.err)
			require.NotNil(t, f)
			assert.Equal(t, tt.status, f.Status)
		})
	}

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, AsFailure(nil))
	})

	t.Run("cause preserved", func(t *testing.T) {
		assert.ErrorIs(t, AsFailure(plain), plain)
	})

	t.Run("status outside error range", func(t *testing.T) {
		for _, in := range []*Failure{{Message: "boom"}, Status(42), Status(http.StatusOK), Status(http.StatusFound), Status(600)} {
			f := AsFailure(in)
			require.NotNil(t, f)
			assert.Equal(t, http.StatusInternalServerError, f.Status, in.Status)
			assert.Equal(t, "Internal Server Error", f.Message)
			assert.ErrorIs(t, f, in)
		}
	})
}

func TestPipelineInvalidFailureStatus(t *testing.T) {
	tests := []struct {
		name    string
		failure *Failure
	}{
		{"zero", &Failure{Message: "boom"}},
		{"below range", Status(42)},
		{"success", Status(http.StatusOK)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline().Use(HandlerFunc(func(_ *Context, next Next) {
				next(tt.failure)
			}))

			var w *httptest.ResponseRecorder
			require.NotPanics(t, func() {
				w = serve(p, http.MethodGet, "/")
			})
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, "Internal Server Error", w.Body.String())
		})
	}

	t.Run("final responder sees normalised failure", func(t *testing.T) {
		var got *Failure
		p := NewPipeline().Use(HandlerFunc(func(_ *Context, next Next) {
			next(Status(42))
		})).OnError(ErrorHandlerFunc(func(c *Context, f *Failure, _ Next) {
			got = f
			_ = c.String(f.Status, f.Message)
		}))

		w := serve(p, http.MethodGet, "/")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		require.NotNil(t, got)
		assert.Equal(t, http.StatusInternalServerError, got.Status)
	})
}

func TestErrorTypes(t *testing.T) {
	pe := &PatternError{Pattern: "x", Reason: "must start with /"}
	assert.Equal(t, `mux: invalid pattern "x": must start with /`, pe.Error())

	ve := &ValidationError{Param: "id", Value: "abc"}
	assert.Equal(t, `mux: invalid value "abc" for parameter "id"`, ve.Error())

	hp := &HandlerPanic{Value: "boom"}
	assert.Equal(t, "mux: handler panic: boom", hp.Error())
	assert.Nil(t, hp.Unwrap())

	inner := errors.New("inner")
	assert.ErrorIs(t, &HandlerPanic{Value: inner}, inner)
}
