package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketgate/internal/compliance"
	id "marketgate/pkg/domain"
	"marketgate/pkg/platform/sentinel"
)

var baseTime = time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

func record(entity id.EntityID, at time.Time, codes ...string) DecisionRecord {
	var f compliance.Findings
	for _, code := range codes {
		f.Add(compliance.Violation{Code: compliance.Code(code), Message: code, Severity: compliance.SeverityCritical}, nil)
	}
	decision := compliance.NewDecision(compliance.PackRef{ID: "nyc", Version: "2025.2"}, []string{"fee_disclosure"}, f)
	return DecisionRecord{
		ID:          id.NewDecisionID(),
		EntityType:  "listing",
		EntityID:    entity,
		Gate:        "listing_publish",
		MarketID:    "nyc",
		Result:      compliance.NewGateResult(decision),
		RequestID:   "req-1",
		ActorID:     "agent-7",
		EvaluatedAt: at,
	}
}

func TestInMemoryStore_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	rec := record("listing-1", baseTime, "FEE_TENANT_PAID_PROHIBITED")

	require.NoError(t, s.Save(ctx, rec))
	found, err := s.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, found)

	assert.ErrorIs(t, s.Save(ctx, rec), sentinel.ErrConflict)

	_, err = s.FindByID(ctx, id.NewDecisionID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStore_ListByEntity(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	older := record("listing-1", baseTime)
	newer := record("listing-1", baseTime.Add(time.Minute))
	other := record("listing-2", baseTime)
	for _, r := range []DecisionRecord{older, newer, other} {
		require.NoError(t, s.Save(ctx, r))
	}

	got, err := s.ListByEntity(ctx, "listing", "listing-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)

	none, err := s.ListByEntity(ctx, "lease", "listing-1")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInMemoryStore_ListByViolationCode(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	for i := range 3 {
		require.NoError(t, s.Save(ctx, record("listing-1", baseTime.Add(time.Duration(i)*time.Minute), "DEPOSIT_EXCEEDS_CAP")))
	}
	require.NoError(t, s.Save(ctx, record("listing-2", baseTime, "FEE_TENANT_PAID_PROHIBITED")))

	got, err := s.ListByViolationCode(ctx, "DEPOSIT_EXCEEDS_CAP", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].EvaluatedAt.After(got[1].EvaluatedAt))
}

func TestDecisionRecord_ViolationCodesAreDistinct(t *testing.T) {
	rec := record("listing-1", baseTime, "A", "B", "A")
	assert.Equal(t, []string{"A", "B"}, rec.ViolationCodes())
	assert.Empty(t, record("listing-1", baseTime).ViolationCodes())
}
