package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "marketgate/pkg/platform/audit"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	base := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	for i, entity := range []string{"lease-1", "listing-1", "lease-1"} {
		require.NoError(t, store.Append(ctx, audit.Event{
			EntityID:  entity,
			Action:    string(audit.EventGateEvaluated),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	t.Run("list by entity keeps append order", func(t *testing.T) {
		events, err := store.ListByEntity(ctx, "lease-1")
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.True(t, events[0].Timestamp.Before(events[1].Timestamp))
	})

	t.Run("recent is newest first and limited", func(t *testing.T) {
		events, err := store.ListRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, base.Add(2*time.Minute), events[0].Timestamp)
		assert.Equal(t, "listing-1", events[1].EntityID)
	})

	t.Run("clear", func(t *testing.T) {
		store.Clear()
		events, err := store.ListRecent(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}
