package usagelog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/axoncore/axoncore/internal/events"
)

// Record matches the usage_events table schema.
type Record struct {
	ID            uuid.UUID       `json:"id"`
	AccountID     uuid.UUID       `json:"account_id"`
	AssistantID   *uuid.UUID      `json:"assistant_id,omitempty"`
	Model         string          `json:"model"`
	InputTokens   int64           `json:"input_tokens"`
	OutputTokens  int64           `json:"output_tokens"`
	TotalTokens   int64           `json:"total_tokens"`
	Estimated     bool            `json:"estimated"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

func fromEvent(e events.UsageEvent) *Record {
	return &Record{
		ID:            e.ID,
		AccountID:     e.AccountID,
		AssistantID:   e.AssistantID,
		Model:         e.Model,
		InputTokens:   e.InputTokens,
		OutputTokens:  e.OutputTokens,
		TotalTokens:   e.TotalTokens,
		Estimated:     e.Estimated,
		EstimatedCost: e.EstimatedCost,
		OccurredAt:    e.OccurredAt,
	}
}

type ListParams struct {
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

func DefaultListParams() ListParams {
	return ListParams{
		Page:     1,
		PageSize: 20,
	}
}
