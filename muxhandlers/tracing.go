package muxhandlers

import (
	"net/http"

	"github.com/vitalvas/yoke/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/vitalvas/yoke/muxhandlers"

// TracingConfig configures the tracing middleware.
type TracingConfig struct {
	// TracerProvider creates the request spans. Defaults to the global
	// provider.
	TracerProvider trace.TracerProvider

	// Propagator extracts the remote span context from request headers.
	// Defaults to the global propagator.
	Propagator propagation.TextMapPropagator
}

// TracingMiddleware returns a handler that starts a server span per request,
// continuing a trace propagated in the request headers. Later handlers see
// the span in Context.Context. The span ends with the response and is
// marked as failed for 5xx statuses.
func TracingMiddleware(cfg TracingConfig) mux.Handler {
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	prop := cfg.Propagator
	if prop == nil {
		prop = otel.GetTextMapPropagator()
	}

	tracer := tp.Tracer(tracerName)

	return mux.HandlerFunc(func(c *mux.Context, next mux.Next) {
		r := c.Request()
		ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := tracer.Start(ctx, c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Method()),
				attribute.String("url.path", c.Path()),
				attribute.String("user_agent.original", r.UserAgent()),
				attribute.String("server.address", r.Host),
			),
		)
		c.SetRequest(r.WithContext(ctx))

		c.OnEnd(func() {
			status := c.Status()
			span.SetAttributes(attribute.Int("http.response.status_code", status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
			span.End()
		})

		next(nil)
	})
}
