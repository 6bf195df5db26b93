package muxhandlers

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vitalvas/yoke/mux"
)

// Metrics holds the Prometheus collectors of MetricsMiddleware.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewMetrics creates the HTTP metrics and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "yoke"
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests by method and status",
			},
			[]string{"method", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Number of requests being served",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.duration, m.inFlight)
	}

	return m
}

// MetricsMiddleware returns a handler recording request counts, durations
// and the number of requests in flight.
func MetricsMiddleware(m *Metrics) mux.Handler {
	return mux.HandlerFunc(func(c *mux.Context, next mux.Next) {
		m.inFlight.Inc()
		method := c.Method()

		c.OnEnd(func() {
			m.inFlight.Dec()
			m.requests.WithLabelValues(method, strconv.Itoa(c.Status())).Inc()
			m.duration.WithLabelValues(method).Observe(time.Since(c.Started()).Seconds())
		})

		next(nil)
	})
}
