package mux

import "net/http"

// Next is the continuation handed to every handler. Calling it with nil
// continues to the next eligible entry; calling it with an error turns the
// request into a failure and resumes at the next error-handling entry.
// A Next must be called at most once.
type Next func(err error)

// Handler is a unit of request processing. A handler either calls next
// exactly once, or writes a response through the context and returns
// without calling next.
type Handler interface {
	Handle(c *Context, next Next)
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(c *Context, next Next)

// Handle calls f(c, next).
func (f HandlerFunc) Handle(c *Context, next Next) {
	f(c, next)
}

// ErrorHandler is a pipeline entry that only runs while a failure is in
// flight. Calling next(nil) clears the failure and resumes ordinary entries;
// calling next with an error hands the failure to the next error handler.
type ErrorHandler interface {
	HandleError(c *Context, f *Failure, next Next)
}

// ErrorHandlerFunc adapts an ordinary function to the ErrorHandler interface.
type ErrorHandlerFunc func(c *Context, f *Failure, next Next)

// HandleError calls f(c, failure, next).
func (f ErrorHandlerFunc) HandleError(c *Context, failure *Failure, next Next) {
	f(c, failure, next)
}

// Terminal adapts a function that always answers the request into a
// Handler. It never calls next.
func Terminal(f func(c *Context)) Handler {
	return HandlerFunc(func(c *Context, _ Next) {
		f(c)
	})
}

// FromHTTP mounts a net/http handler as a terminal pipeline entry. The
// handler writes through the context response sink; the response is
// finished when ServeHTTP returns.
func FromHTTP(h http.Handler) Handler {
	return HandlerFunc(func(c *Context, _ Next) {
		h.ServeHTTP(c.Writer(), c.Request())
		c.End()
	})
}
