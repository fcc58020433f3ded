// Package store persists gate decisions so callers can retrieve what was
// decided, against which market pack, and why.
package store

import (
	"time"

	"marketgate/internal/compliance"
	id "marketgate/pkg/domain"
	"marketgate/pkg/platform/dedupe"
)

// DecisionRecord is one persisted gate evaluation.
type DecisionRecord struct {
	ID          id.DecisionID
	EntityType  string
	EntityID    id.EntityID
	Gate        string
	MarketID    id.MarketID
	Result      compliance.GateResult
	RequestID   string
	ActorID     id.ActorID
	EvaluatedAt time.Time
}

// ViolationCodes returns the distinct violation codes of the decision in the
// order they were first reported.
func (r DecisionRecord) ViolationCodes() []string {
	codes := make([]string, 0, len(r.Result.Decision.Violations))
	for _, v := range r.Result.Decision.Violations {
		codes = append(codes, string(v.Code))
	}
	return dedupe.Values(codes)
}
