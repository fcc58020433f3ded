package store

import (
	"context"
	"slices"
	"sync"

	id "marketgate/pkg/domain"
	"marketgate/pkg/platform/sentinel"
)

// InMemoryStore keeps decisions in a map. It backs local runs and unit
// tests when Postgres is not configured.
type InMemoryStore struct {
	mu        sync.RWMutex
	decisions map[id.DecisionID]DecisionRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{decisions: make(map[id.DecisionID]DecisionRecord)}
}

// Save stores the decision. Decisions are immutable: saving an ID twice
// returns sentinel.ErrConflict.
func (s *InMemoryStore) Save(_ context.Context, record DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.decisions[record.ID]; ok {
		return sentinel.ErrConflict
	}
	s.decisions[record.ID] = record
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, decisionID id.DecisionID) (DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.decisions[decisionID]; ok {
		return record, nil
	}
	return DecisionRecord{}, sentinel.ErrNotFound
}

// ListByEntity returns the entity's decisions, most recent first.
func (s *InMemoryStore) ListByEntity(_ context.Context, entityType string, entityID id.EntityID) ([]DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []DecisionRecord
	for _, record := range s.decisions {
		if record.EntityType == entityType && record.EntityID == entityID {
			out = append(out, record)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// ListByViolationCode returns decisions that reported code, most recent
// first, up to limit.
func (s *InMemoryStore) ListByViolationCode(_ context.Context, code string, limit int) ([]DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []DecisionRecord
	for _, record := range s.decisions {
		if slices.Contains(record.ViolationCodes(), code) {
			out = append(out, record)
		}
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortNewestFirst(records []DecisionRecord) {
	slices.SortFunc(records, func(a, b DecisionRecord) int {
		if c := b.EvaluatedAt.Compare(a.EvaluatedAt); c != 0 {
			return c
		}
		return compareIDs(a.ID, b.ID)
	})
}

func compareIDs(a, b id.DecisionID) int {
	as, bs := a.String(), b.String()
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}
