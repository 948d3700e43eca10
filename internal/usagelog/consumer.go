package usagelog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/axoncore/axoncore/internal/events"
	"github.com/axoncore/axoncore/internal/metrics"
)

const consumerName = "usage-persister"

// Consumer persists usage events published by the chat relay.
type Consumer struct {
	store     Store
	consumers *events.ConsumerManager
}

func NewConsumer(store Store, consumers *events.ConsumerManager) *Consumer {
	return &Consumer{
		store:     store,
		consumers: consumers,
	}
}

// Start runs the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	return c.consumers.Consume(ctx, consumerName, events.SubjectUsageEvent, c.handle)
}

func (c *Consumer) handle(ctx context.Context, data []byte) error {
	var event events.UsageEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("%w: unmarshaling usage event: %v", events.ErrPermanent, err)
	}

	inserted, err := c.store.Insert(ctx, fromEvent(event))
	if err != nil {
		return err
	}
	if !inserted {
		slog.Debug("usage consumer: duplicate event skipped", "event_id", event.ID)
		return nil
	}

	metrics.UsageEventsPersistedTotal.Inc()
	slog.Debug("usage consumer: persisted event",
		"event_id", event.ID,
		"account_id", event.AccountID,
		"total_tokens", event.TotalTokens,
	)
	return nil
}
