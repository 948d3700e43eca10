//go:build integration

package usagelog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axoncore/axoncore/internal/database/dbtest"
)

func TestRepository(t *testing.T) {
	repo := NewRepository(dbtest.NewPool(t))
	ctx := context.Background()
	owner := uuid.New()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var first *Record
	for i := 0; i < 3; i++ {
		rec := &Record{
			ID:            uuid.New(),
			AccountID:     owner,
			Model:         "openai/gpt-4o-mini",
			InputTokens:   10,
			OutputTokens:  int64(i),
			TotalTokens:   int64(10 + i),
			EstimatedCost: decimal.RequireFromString("0.0000015"),
			OccurredAt:    start.Add(time.Duration(i) * time.Hour),
		}
		if first == nil {
			first = rec
		}
		inserted, err := repo.Insert(ctx, rec)
		require.NoError(t, err)
		assert.True(t, inserted)
	}

	inserted, err := repo.Insert(ctx, first)
	require.NoError(t, err)
	assert.False(t, inserted, "same id is ignored")

	records, total, err := repo.ListByAccount(ctx, owner, ListParams{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, records, 2)
	assert.Equal(t, int64(12), records[0].TotalTokens)
	assert.True(t, records[0].EstimatedCost.Equal(decimal.RequireFromString("0.0000015")))

	from := start.Add(90 * time.Minute)
	records, total, err = repo.ListByAccount(ctx, owner, ListParams{From: &from, Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, records, 1)
}
