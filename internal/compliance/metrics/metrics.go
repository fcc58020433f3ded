package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the compliance gates and the CPI feed.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Gate outcomes by gate, market and allowed
	GateOutcome *prometheus.CounterVec

	// Gate evaluation latency by gate
	GateLatency *prometheus.HistogramVec

	// Findings by code and severity
	Violations *prometheus.CounterVec

	// Unknown jurisdictions resolved to the default pack
	DefaultPackApplied prometheus.Counter

	// CPI fetch latency by source: "live", "cache"
	CPILatency *prometheus.HistogramVec

	// CPI fallbacks by reason: "timeout", "outage", "bad_data", "circuit_open", ...
	CPIFallback *prometheus.CounterVec

	// CPI circuit breaker state: 1 open, 0 closed
	CPICircuitOpen prometheus.Gauge
}

// New registers the compliance metrics with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		GateOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marketgate_gate_outcomes_total",
			Help: "Total gate evaluations by gate, market pack and outcome",
		}, []string{"gate", "market", "allowed"}),

		GateLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketgate_gate_duration_seconds",
			Help:    "Duration of gate evaluation including CPI lookup",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"gate"}),

		Violations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marketgate_violations_total",
			Help: "Total rule findings by code and severity",
		}, []string{"code", "severity"}),

		DefaultPackApplied: f.NewCounter(prometheus.CounterOpts{
			Name: "marketgate_default_pack_applied_total",
			Help: "Gate evaluations for jurisdictions without their own market pack",
		}),

		CPILatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketgate_cpi_fetch_duration_seconds",
			Help:    "Duration of CPI lookups by source",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"source"}),

		CPIFallback: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marketgate_cpi_fallback_total",
			Help: "CPI lookups that degraded to a fallback value, by reason",
		}, []string{"reason"}),

		CPICircuitOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "marketgate_cpi_circuit_open",
			Help: "Whether the CPI source circuit breaker is open",
		}),
	}
}

// ObserveGate records one gate evaluation.
func (m *Metrics) ObserveGate(gate, market string, allowed bool, d time.Duration) {
	if m == nil {
		return
	}
	m.GateOutcome.WithLabelValues(gate, market, strconv.FormatBool(allowed)).Inc()
	m.GateLatency.WithLabelValues(gate).Observe(d.Seconds())
}

// IncrementViolation records one finding.
func (m *Metrics) IncrementViolation(code, severity string) {
	if m != nil {
		m.Violations.WithLabelValues(code, severity).Inc()
	}
}

// IncrementDefaultPack records a default pack resolution.
func (m *Metrics) IncrementDefaultPack() {
	if m != nil {
		m.DefaultPackApplied.Inc()
	}
}

// ObserveCPIFetch records the duration of a CPI lookup.
func (m *Metrics) ObserveCPIFetch(source string, d time.Duration) {
	if m != nil {
		m.CPILatency.WithLabelValues(source).Observe(d.Seconds())
	}
}

// IncrementCPIFallback records a degraded CPI lookup.
func (m *Metrics) IncrementCPIFallback(reason string) {
	if m != nil {
		m.CPIFallback.WithLabelValues(reason).Inc()
	}
}

// SetCPICircuitOpen mirrors the breaker state.
func (m *Metrics) SetCPICircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CPICircuitOpen.Set(1)
		return
	}
	m.CPICircuitOpen.Set(0)
}
