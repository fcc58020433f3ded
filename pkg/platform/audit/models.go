// Package audit defines the audit records compliance decisions leave behind
// and the interfaces their sinks implement.
//
// Compliance events are written through the fail-closed publisher in
// publishers/compliance: if the record cannot be persisted, the gated
// transition must not happen. Operational events go through the sampled,
// best-effort tracker in publishers/ops.
package audit

import (
	"context"
	"encoding/json"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This drives retention, storage tables and Kafka topics.
type EventCategory string

const (
	// CategoryCompliance covers events a regulator may ask to see: every
	// gate decision, with the snapshot it was made on.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers ad-hoc activity useful for debugging and
	// usage analysis. These can be sampled.
	CategoryOperations EventCategory = "operations"
)

type AuditEvent string

const (
	EventGateEvaluated     AuditEvent = "compliance_gate_evaluated"
	EventDryRunEvaluated   AuditEvent = "compliance_dry_run_evaluated"
	EventMarketPackViewed  AuditEvent = "market_pack_viewed"
	EventDecisionRetrieved AuditEvent = "compliance_decision_retrieved"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventGateEvaluated: CategoryCompliance,

	EventDryRunEvaluated:   CategoryOperations,
	EventMarketPackViewed:  CategoryOperations,
	EventDecisionRetrieved: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is the stored form of every audit record. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Action    string

	// EntityType and EntityID name the listing, lease or application the
	// event is about.
	EntityType string
	EntityID   string

	Gate              string
	DecisionID        string
	Decision          string // "allowed" or "blocked"
	Reason            string
	MarketPack        string
	MarketPackVersion string
	PolicyVersion     string

	// Before is the snapshot the gate evaluated; After is the result
	// returned to the caller. Both are JSON.
	Before json.RawMessage
	After  json.RawMessage

	RequestID string
	ActorID   string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// ComplianceEvent records one gate decision. Every field a regulator needs
// to reconstruct the decision is required except Reason, which is empty for
// allowed transitions.
type ComplianceEvent struct {
	Timestamp         time.Time // set automatically if zero
	Action            string
	EntityType        string
	EntityID          string // required
	Gate              string
	DecisionID        string
	Decision          string
	Reason            string
	MarketPack        string
	MarketPackVersion string
	PolicyVersion     string
	Before            json.RawMessage
	After             json.RawMessage
	RequestID         string
	ActorID           string
}

// Category returns CategoryCompliance (always).
func (e ComplianceEvent) Category() EventCategory { return CategoryCompliance }

// ToEvent converts to the stored Event.
func (e ComplianceEvent) ToEvent() Event {
	return Event{
		Category:          CategoryCompliance,
		Timestamp:         e.Timestamp,
		Action:            e.Action,
		EntityType:        e.EntityType,
		EntityID:          e.EntityID,
		Gate:              e.Gate,
		DecisionID:        e.DecisionID,
		Decision:          e.Decision,
		Reason:            e.Reason,
		MarketPack:        e.MarketPack,
		MarketPackVersion: e.MarketPackVersion,
		PolicyVersion:     e.PolicyVersion,
		Before:            e.Before,
		After:             e.After,
		RequestID:         e.RequestID,
		ActorID:           e.ActorID,
	}
}

// OpsEvent captures operational activity with minimal overhead.
type OpsEvent struct {
	Timestamp  time.Time // set automatically if zero
	Action     string
	Subject    string // market id, decision id or check kinds
	MarketPack string
	Decision   string
	RequestID  string
	ActorID    string
}

// Category returns CategoryOperations (always).
func (e OpsEvent) Category() EventCategory { return CategoryOperations }

// ToEvent converts to the stored Event.
func (e OpsEvent) ToEvent() Event {
	return Event{
		Category:   CategoryOperations,
		Timestamp:  e.Timestamp,
		Action:     e.Action,
		EntityID:   e.Subject,
		MarketPack: e.MarketPack,
		Decision:   e.Decision,
		RequestID:  e.RequestID,
		ActorID:    e.ActorID,
	}
}
