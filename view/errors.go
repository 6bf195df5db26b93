package view

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable wraps every error returned by a Loader while
	// rendering.
	ErrSourceUnavailable = errors.New("view: template source unavailable")

	// ErrNotFound is returned by loaders when no template exists for a name.
	ErrNotFound = errors.New("view: template not found")

	// ErrReservedName is returned by Execute when the render data carries a
	// key that is reserved by the template language.
	ErrReservedName = errors.New("view: reserved name")
)

// CompileError reports malformed template source.
type CompileError struct {
	Name string
	Line int
	Msg  string
	Err  error
}

func (e *CompileError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("view: compile %s:%d: %s", e.Name, e.Line, msg)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// ExecError reports an expression that failed while rendering.
type ExecError struct {
	Name string
	Line int
	Expr string
	Err  error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("view: exec %s:%d: %s: %v", e.Name, e.Line, e.Expr, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
