package mux

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"net/http"
)

// JSON encodes v as JSON and writes it with the given status code. If
// encoding fails, the error is returned and nothing is written, so the
// caller can pass it to next.
func (c *Context) JSON(code int, v any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return err
	}

	return c.Respond(code, "application/json", buf.Bytes())
}

// XML encodes v as XML and writes it with the given status code. If encoding
// fails, the error is returned and nothing is written.
func (c *Context) XML(code int, v any) error {
	var buf bytes.Buffer
	if err := xml.NewEncoder(&buf).Encode(v); err != nil {
		return err
	}

	return c.Respond(code, "application/xml", buf.Bytes())
}

// String writes s as text/plain.
func (c *Context) String(code int, s string) error {
	return c.Respond(code, "text/plain; charset=utf-8", []byte(s))
}

// HTML writes s as text/html.
func (c *Context) HTML(code int, s string) error {
	return c.Respond(code, "text/html; charset=utf-8", []byte(s))
}

// Redirect sends a redirect to url with the given 3xx status code.
func (c *Context) Redirect(code int, url string) error {
	if code < 300 || code > 399 {
		code = http.StatusFound
	}
	c.Header().Set("Location", url)

	return c.Respond(code, "", nil)
}
