package view

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for template rendering.
type Metrics struct {
	lookups        *prometheus.CounterVec
	compiles       *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
}

// NewMetrics creates the engine metrics and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "yoke"
	}

	m := &Metrics{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "view",
				Name:      "cache_lookups_total",
				Help:      "Template cache lookups by result (hit, stale, miss)",
			},
			[]string{"result"},
		),
		compiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "view",
				Name:      "compiles_total",
				Help:      "Template compilations by result (ok, error)",
			},
			[]string{"result"},
		),
		renderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "view",
				Name:      "render_duration_seconds",
				Help:      "Template render duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .5},
			},
			[]string{"template"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.lookups, m.compiles, m.renderDuration)
	}

	return m
}

func (m *Metrics) lookup(result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(result).Inc()
}

func (m *Metrics) compiled(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.compiles.WithLabelValues(result).Inc()
}

func (m *Metrics) rendered(name string, d time.Duration) {
	if m == nil {
		return
	}
	m.renderDuration.WithLabelValues(name).Observe(d.Seconds())
}
