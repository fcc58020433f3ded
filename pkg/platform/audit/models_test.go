package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAuditEventCategory(t *testing.T) {
	assert.Equal(t, CategoryCompliance, EventGateEvaluated.Category())
	assert.Equal(t, CategoryOperations, EventDryRunEvaluated.Category())
	assert.Equal(t, CategoryOperations, AuditEvent("something_new").Category())
}

func TestComplianceEventToEvent(t *testing.T) {
	ts := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	e := ComplianceEvent{
		Timestamp:  ts,
		Action:     string(EventGateEvaluated),
		EntityType: "listing",
		EntityID:   "listing-42",
		Gate:       "listing_publish",
		Decision:   "blocked",
		Reason:     "Tenant-paid broker fees are prohibited in nyc",
		Before:     []byte(`{"monthly_rent":3200}`),
		RequestID:  "req-1",
		ActorID:    "agent-7",
	}.ToEvent()

	assert.Equal(t, CategoryCompliance, e.Category)
	assert.Equal(t, ts, e.Timestamp)
	assert.Equal(t, "listing-42", e.EntityID)
	assert.Equal(t, "blocked", e.Decision)
	assert.JSONEq(t, `{"monthly_rent":3200}`, string(e.Before))
	assert.Equal(t, "agent-7", e.ActorID)
}

func TestOpsEventToEvent(t *testing.T) {
	e := OpsEvent{Action: string(EventMarketPackViewed), Subject: "nyc", RequestID: "req-2"}.ToEvent()
	assert.Equal(t, CategoryOperations, e.Category)
	assert.Equal(t, "nyc", e.EntityID)
}
