package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher provides typed methods for publishing events to NATS JetStream.
type Publisher struct {
	js jetstream.JetStream
}

func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

func (p *Publisher) PublishUsageEvent(ctx context.Context, event UsageEvent) error {
	return p.publish(ctx, SubjectUsageEvent, event.ID.String(), event)
}

func (p *Publisher) PublishSubscriptionEvent(ctx context.Context, event SubscriptionEvent) error {
	return p.publish(ctx, SubjectSubscriptionEvent, event.ID.String(), event)
}

// The event id doubles as the JetStream message id so retried publishes
// are dropped by the stream's duplicate window.
func (p *Publisher) publish(ctx context.Context, subject, msgID string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	_, err = p.js.Publish(ctx, subject, payload, jetstream.WithMsgID(msgID))
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}

// Discard drops events when NATS is not configured.
type Discard struct{}

func (Discard) PublishUsageEvent(context.Context, UsageEvent) error               { return nil }
func (Discard) PublishSubscriptionEvent(context.Context, SubscriptionEvent) error { return nil }
