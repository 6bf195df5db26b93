package mux

import (
	"bufio"
	"net"
	"net/http"
	"slices"
	"sync"
)

// ResponseWriter extends http.ResponseWriter with methods to inspect the
// response. It is the single-write sink behind every Context: once the
// response is finished, further writes fail with ErrAlreadyResponded.
type ResponseWriter interface {
	http.ResponseWriter
	// Status returns the HTTP status code of the response.
	Status() int
	// Size returns the number of body bytes written.
	Size() int
	// Written reports whether the status line has been sent.
	Written() bool
}

// BodyTransform rewrites a complete response body before it is sent. It may
// change header and returns the body to write.
type BodyTransform func(status int, header http.Header, body []byte) []byte

// responseWriter is safe for concurrent use so that asynchronous handlers
// (timeouts, background work) can race for the response.
//
// wmu serialises writers and is held while hooks run. mu guards the fields
// below and is never held while calling out, so hooks may inspect the
// response.
type responseWriter struct {
	http.ResponseWriter

	wmu sync.Mutex

	mu      sync.Mutex
	status  int
	size    int
	written bool
	closed  bool

	before     []func(status int)
	transforms []BodyTransform
	onWrite    func()
}

var (
	_ http.ResponseWriter = (*responseWriter)(nil)
	_ http.Flusher        = (*responseWriter)(nil)
	_ http.Hijacker       = (*responseWriter)(nil)
	_ ResponseWriter      = (*responseWriter)(nil)
)

func (rw *responseWriter) Status() int {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

func (rw *responseWriter) Size() int {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	return rw.size
}

func (rw *responseWriter) Written() bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	return rw.written
}

func (rw *responseWriter) flags() (written, closed bool) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	return rw.written, rw.closed
}

// WriteHeader sends the status line. Calls after the first one are ignored,
// matching net/http semantics.
func (rw *responseWriter) WriteHeader(status int) {
	rw.wmu.Lock()
	defer rw.wmu.Unlock()

	if written, closed := rw.flags(); written || closed {
		return
	}
	rw.commit(status)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wmu.Lock()
	defer rw.wmu.Unlock()

	written, closed := rw.flags()
	if closed {
		return 0, ErrAlreadyResponded
	}
	if !written {
		rw.commit(http.StatusOK)
	}
	return rw.writeBody(b)
}

func (rw *responseWriter) writeBody(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)

	rw.mu.Lock()
	rw.size += n
	rw.mu.Unlock()

	return n, err
}

// commit runs the before-write hooks and sends the status line. rw.wmu must
// be held and rw.mu must not.
func (rw *responseWriter) commit(status int) {
	rw.mu.Lock()
	hooks := slices.Clone(rw.before)
	rw.mu.Unlock()

	for _, fn := range hooks {
		fn(status)
	}

	rw.mu.Lock()
	rw.status = status
	rw.written = true
	onWrite := rw.onWrite
	rw.mu.Unlock()

	if onWrite != nil {
		onWrite()
	}
	rw.ResponseWriter.WriteHeader(status)
}

// respond writes a complete response in one step and closes the sink. Body
// transforms run before the before-write hooks.
func (rw *responseWriter) respond(status int, contentType string, body []byte) error {
	rw.wmu.Lock()
	defer rw.wmu.Unlock()

	if written, closed := rw.flags(); written || closed {
		return ErrAlreadyResponded
	}

	header := rw.ResponseWriter.Header()
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}

	rw.mu.Lock()
	transforms := slices.Clone(rw.transforms)
	rw.mu.Unlock()

	for _, fn := range transforms {
		body = fn(status, header, body)
	}

	rw.commit(status)
	_, err := rw.writeBody(body)

	rw.mu.Lock()
	rw.closed = true
	rw.mu.Unlock()

	return err
}

// close finishes the response, committing 200 if nothing was written. It
// reports whether this call closed the sink.
func (rw *responseWriter) close() bool {
	rw.wmu.Lock()
	defer rw.wmu.Unlock()

	written, closed := rw.flags()
	if closed {
		return false
	}
	if !written {
		rw.commit(http.StatusOK)
	}

	rw.mu.Lock()
	rw.closed = true
	rw.mu.Unlock()

	return true
}

// abandon closes the sink without writing anything. Used when the client
// went away and the underlying writer must no longer be touched.
func (rw *responseWriter) abandon() {
	rw.wmu.Lock()
	defer rw.wmu.Unlock()

	rw.mu.Lock()
	rw.closed = true
	rw.mu.Unlock()
}

func (rw *responseWriter) addBefore(fn func(status int)) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	rw.before = append(rw.before, fn)
}

func (rw *responseWriter) addTransform(fn BodyTransform) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	rw.transforms = append(rw.transforms, fn)
}

// Unwrap returns the underlying http.ResponseWriter for
// http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (rw *responseWriter) Flush() {
	rw.wmu.Lock()
	defer rw.wmu.Unlock()

	written, closed := rw.flags()
	if closed {
		return
	}
	if !written {
		rw.commit(http.StatusOK)
	}
	_ = http.NewResponseController(rw.ResponseWriter).Flush()
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(rw.ResponseWriter).Hijack()
}
