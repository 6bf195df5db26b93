package muxhandlers

import (
	"strconv"
	"time"

	"github.com/vitalvas/yoke/mux"
)

// ResponseTimeHeader is the header carrying the elapsed time.
const ResponseTimeHeader = "X-Response-Time"

// ResponseTimeMiddleware returns a handler that sets X-Response-Time to the
// milliseconds elapsed between this handler and the status line being
// sent, e.g. "12ms".
func ResponseTimeMiddleware() mux.Handler {
	return mux.HandlerFunc(func(c *mux.Context, next mux.Next) {
		start := time.Now()

		c.BeforeWrite(func(int) {
			ms := time.Since(start).Milliseconds()
			c.Header().Set(ResponseTimeHeader, strconv.FormatInt(ms, 10)+"ms")
		})

		next(nil)
	})
}
