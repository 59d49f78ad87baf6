package compliance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "refunds/pkg/platform/audit"
	"refunds/pkg/platform/audit/store/memory"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error { return errors.New("disk full") }
func (failingStore) ListByMerchant(context.Context, string) ([]audit.Event, error) {
	return nil, nil
}

func TestPublisherEmit(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("fills defaults and persists", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		p := New(store, WithClock(func() time.Time { return fixed }))

		err := p.Emit(ctx, audit.Event{
			Action:     audit.EventRefundMethodValidated,
			MerchantID: "mer_123",
			Decision:   "ALLOW",
		})
		require.NoError(t, err)

		events, err := store.ListByMerchant(ctx, "mer_123")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.NotEqual(t, uuid.Nil, events[0].ID)
		assert.Equal(t, audit.CategoryCompliance, events[0].Category)
		assert.Equal(t, fixed, events[0].Timestamp)
	})

	t.Run("rejects events without action or merchant", func(t *testing.T) {
		p := New(memory.NewInMemoryStore())
		assert.Error(t, p.Emit(ctx, audit.Event{MerchantID: "mer_1"}))
		assert.Error(t, p.Emit(ctx, audit.Event{Action: audit.EventRefundMethodSelected}))
	})

	t.Run("store failure is returned", func(t *testing.T) {
		p := New(failingStore{})
		err := p.Emit(ctx, audit.Event{Action: audit.EventRefundMethodValidated, MerchantID: "mer_1"})
		assert.ErrorContains(t, err, "disk full")
	})
}
