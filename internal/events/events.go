package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

const StreamEvents = "AXONCORE_EVENTS"

const (
	SubjectPrefix            = "axon.events"
	SubjectUsageEvent        = "axon.events.usage"
	SubjectSubscriptionEvent = "axon.events.subscription"
)

// UsageEvent is published for every debited chat turn.
type UsageEvent struct {
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

// Subscription event types.
const (
	SubscriptionCreated   = "subscription_created"
	SubscriptionActivated = "subscription_activated"
	SubscriptionCancelled = "subscription_cancelled"
	SubscriptionRejected  = "verification_rejected"
)

// SubscriptionEvent records a billing lifecycle step for an account.
type SubscriptionEvent struct {
	ID             uuid.UUID `json:"id"`
	AccountID      uuid.UUID `json:"account_id"`
	EventType      string    `json:"event_type"`
	Provider       string    `json:"provider"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	Details        string    `json:"details,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
