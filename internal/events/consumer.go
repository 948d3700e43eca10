package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

const (
	fetchBatch   = 10
	maxDeliver   = 5
	// Pause after a failed fetch so a dropped connection does not spin.
	fetchBackoff = time.Second
)

// ErrPermanent marks a message that can never be handled. Consume terminates
// it instead of asking for redelivery.
var ErrPermanent = errors.New("permanent event failure")

// ConsumerManager runs durable pull consumers on the event stream.
type ConsumerManager struct {
	js jetstream.JetStream
}

func NewConsumerManager(js jetstream.JetStream) *ConsumerManager {
	return &ConsumerManager{js: js}
}

func (cm *ConsumerManager) ensureConsumer(ctx context.Context, name, filterSubject string) (jetstream.Consumer, error) {
	consumer, err := cm.js.CreateOrUpdateConsumer(ctx, StreamEvents, jetstream.ConsumerConfig{
		Durable:       name,
		FilterSubject: filterSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		MaxDeliver:    maxDeliver,
	})
	if err != nil {
		return nil, fmt.Errorf("ensuring consumer %s: %w", name, err)
	}
	return consumer, nil
}

// HandlerFunc processes one message payload. A non-nil error naks the
// message, or terminates it when the error wraps ErrPermanent.
type HandlerFunc func(ctx context.Context, data []byte) error

// Consume fetches from the durable consumer name until ctx is cancelled.
func (cm *ConsumerManager) Consume(ctx context.Context, name, filterSubject string, handle HandlerFunc) error {
	consumer, err := cm.ensureConsumer(ctx, name, filterSubject)
	if err != nil {
		return err
	}

	slog.Info("event consumer started", "consumer", name, "subject", filterSubject)

	for ctx.Err() == nil {
		batch, err := consumer.Fetch(fetchBatch, jetstream.FetchMaxWait(FetchTimeout))
		if err != nil {
			slog.Debug("event consumer: fetching", "consumer", name, "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(fetchBackoff):
			}
			continue
		}

		for msg := range batch.Messages() {
			settle(ctx, name, msg, handle(ctx, msg.Data()))
		}
	}
	return nil
}

func settle(ctx context.Context, consumer string, msg jetstream.Msg, err error) {
	switch {
	case err == nil:
		_ = msg.Ack()
	case errors.Is(err, ErrPermanent):
		slog.Error("event consumer: dropping message", "consumer", consumer, "subject", msg.Subject(), "error", err)
		_ = msg.Term()
	default:
		attempt := uint64(0)
		if meta, mErr := msg.Metadata(); mErr == nil {
			attempt = meta.NumDelivered
		}
		slog.ErrorContext(ctx, "event consumer: handling message",
			"consumer", consumer, "attempt", attempt, "error", err)
		_ = msg.Nak()
	}
}
