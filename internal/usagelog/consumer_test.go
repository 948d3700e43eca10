package usagelog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axoncore/axoncore/internal/events"
)

func usageEvent() events.UsageEvent {
	assistantID := uuid.New()
	return events.UsageEvent{
		ID:            uuid.New(),
		AccountID:     uuid.New(),
		AssistantID:   &assistantID,
		Model:         "openai/gpt-4o-mini",
		InputTokens:   30,
		OutputTokens:  12,
		TotalTokens:   42,
		EstimatedCost: decimal.RequireFromString("0.0000117"),
		OccurredAt:    time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
	}
}

func TestConsumer_PersistsEvent(t *testing.T) {
	store := newFakeStore()
	c := NewConsumer(store, nil)
	ev := usageEvent()
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, c.handle(context.Background(), data))

	rec, ok := store.records[ev.ID]
	require.True(t, ok)
	assert.Equal(t, ev.AccountID, rec.AccountID)
	assert.Equal(t, *ev.AssistantID, *rec.AssistantID)
	assert.Equal(t, int64(42), rec.TotalTokens)
	assert.True(t, ev.EstimatedCost.Equal(rec.EstimatedCost))
	assert.True(t, ev.OccurredAt.Equal(rec.OccurredAt))
}

func TestConsumer_RedeliveryIsIdempotent(t *testing.T) {
	store := newFakeStore()
	c := NewConsumer(store, nil)
	data, err := json.Marshal(usageEvent())
	require.NoError(t, err)

	require.NoError(t, c.handle(context.Background(), data))
	require.NoError(t, c.handle(context.Background(), data))
	assert.Len(t, store.records, 1)
}

func TestConsumer_Errors(t *testing.T) {
	t.Run("malformed payload is permanent", func(t *testing.T) {
		c := NewConsumer(newFakeStore(), nil)
		assert.ErrorIs(t, c.handle(context.Background(), []byte("{not json")), events.ErrPermanent)
	})

	t.Run("store failure naks", func(t *testing.T) {
		store := newFakeStore()
		store.err = errStoreDown
		c := NewConsumer(store, nil)
		data, err := json.Marshal(usageEvent())
		require.NoError(t, err)
		assert.ErrorIs(t, c.handle(context.Background(), data), errStoreDown)
	})
}
