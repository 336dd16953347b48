// Package metrics exposes decode counters in the Prometheus text format.
//
// Each Metrics owns its registry, so several runs (or tests) in one
// process never collide on registration.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "busdecode"

	// conditionOK labels results that decoded cleanly.
	conditionOK = "ok"
)

// Metrics holds the counters of one decode process.
//
// Thread Safety: All methods are safe for concurrent use. A nil *Metrics
// records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	lines        prometheus.Counter
	results      *prometheus.CounterVec
	sinkFailures *prometheus.CounterVec
}

// New creates the counters and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		lines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "lines_total",
			Help:      "Capture lines read.",
		}),
		results: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "decoder",
				Name:      "results_total",
				Help:      "Resolved transactions by condition.",
			},
			[]string{"condition"},
		),
		sinkFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sink",
				Name:      "failures_total",
				Help:      "Records a sink failed to handle.",
			},
			[]string{"sink"},
		),
	}
	m.registry.MustRegister(m.lines, m.results, m.sinkFailures)
	return m
}

// ObserveLine counts one capture line.
func (m *Metrics) ObserveLine() {
	if m == nil {
		return
	}
	m.lines.Inc()
}

// ObserveResult counts one resolved transaction. An empty condition is
// recorded as "ok".
func (m *Metrics) ObserveResult(condition string) {
	if m == nil {
		return
	}
	if condition == "" {
		condition = conditionOK
	}
	m.results.WithLabelValues(condition).Inc()
}

// SinkFailed counts one record the named sink rejected.
func (m *Metrics) SinkFailed(name string) {
	if m == nil {
		return
	}
	m.sinkFailures.WithLabelValues(name).Inc()
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
