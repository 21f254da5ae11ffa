package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the gate engine.
//
// Each Metrics owns its registry so that tests and multiple engines in one
// process never collide on collector registration.
//
// Metrics:
//   - hypogate_gate_outcomes_total{phase,outcome} - gate evaluations by outcome
//   - hypogate_phase_retries_total{phase} - gate retries after a soft failure
//   - hypogate_experiments_terminal_total{status} - experiments reaching a terminal status
//   - hypogate_composite_score{domain} - composite acceptance scores
//   - hypogate_phase_duration_seconds{phase} - wall time spent in each phase
//   - hypogate_experiments_in_flight - experiments currently being driven
type Metrics struct {
	registry *prometheus.Registry

	GateOutcomesTotal *prometheus.CounterVec
	PhaseRetriesTotal *prometheus.CounterVec
	TerminalTotal     *prometheus.CounterVec
	CompositeScore    *prometheus.HistogramVec
	PhaseDuration     *prometheus.HistogramVec
	InFlight          prometheus.Gauge
}

// New creates a Metrics with a fresh registry, including the Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		GateOutcomesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hypogate_gate_outcomes_total",
				Help: "Total number of gate evaluations by phase and outcome",
			},
			[]string{"phase", "outcome"}, // "passed", "soft", "hard", ...
		),
		PhaseRetriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hypogate_phase_retries_total",
				Help: "Total number of phase retries after a soft gate failure",
			},
			[]string{"phase"},
		),
		TerminalTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hypogate_experiments_terminal_total",
				Help: "Total number of experiments reaching a terminal status",
			},
			[]string{"status"},
		),
		CompositeScore: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hypogate_composite_score",
				Help:    "Composite acceptance score of validation results",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
			[]string{"domain"},
		),
		PhaseDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hypogate_phase_duration_seconds",
				Help:    "Duration of phase execution in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 12), // 1ms to ~70min
			},
			[]string{"phase"},
		),
		InFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "hypogate_experiments_in_flight",
				Help: "Number of experiments currently being driven through the pipeline",
			},
		),
	}
}

// RecordGate records a gate evaluation outcome.
func (m *Metrics) RecordGate(phase, outcome string) {
	if m == nil {
		return
	}
	m.GateOutcomesTotal.WithLabelValues(phase, outcome).Inc()
}

// RecordRetry records a retry of the given phase.
func (m *Metrics) RecordRetry(phase string) {
	if m == nil {
		return
	}
	m.PhaseRetriesTotal.WithLabelValues(phase).Inc()
}

// RecordTerminal records an experiment reaching a terminal status.
func (m *Metrics) RecordTerminal(status string) {
	if m == nil {
		return
	}
	m.TerminalTotal.WithLabelValues(status).Inc()
}

// ObserveComposite records a composite score for a domain.
func (m *Metrics) ObserveComposite(domain string, score float64) {
	if m == nil {
		return
	}
	m.CompositeScore.WithLabelValues(domain).Observe(score)
}

// ObservePhase records how long a phase ran.
func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// Begin marks an experiment as in flight and returns the matching release func.
func (m *Metrics) Begin() func() {
	if m == nil {
		return func() {}
	}
	m.InFlight.Inc()
	return m.InFlight.Dec
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
