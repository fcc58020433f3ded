package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveGate("listing_publish", "nyc", false, 3*time.Millisecond)
	m.ObserveGate("listing_publish", "nyc", false, time.Millisecond)
	m.IncrementViolation("DEPOSIT_EXCEEDS_CAP", "violation")
	m.IncrementCPIFallback("timeout")
	m.SetCPICircuitOpen(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.GateOutcome.WithLabelValues("listing_publish", "nyc", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Violations.WithLabelValues("DEPOSIT_EXCEEDS_CAP", "violation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CPIFallback.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CPICircuitOpen))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveGate("rent_increase", "nyc", true, time.Second)
		m.IncrementViolation("X", "info")
		m.IncrementDefaultPack()
		m.ObserveCPIFetch("live", time.Second)
		m.IncrementCPIFallback("outage")
		m.SetCPICircuitOpen(false)
	})
}
