package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/axoncore/axoncore/internal/events"
	"github.com/axoncore/axoncore/internal/ledger"
	"github.com/axoncore/axoncore/internal/metrics"
)

// Ledger is the subset of the entitlement ledger the controller drives.
type Ledger interface {
	GetByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error)
	Debit(ctx context.Context, id uuid.UUID, tokens int64, subscriptionID *string) (*ledger.Account, error)
	CancelSubscription(ctx context.Context, id uuid.UUID) (*ledger.Account, error)
}

type EventPublisher interface {
	PublishSubscriptionEvent(ctx context.Context, event events.SubscriptionEvent) error
}

type ServiceConfig struct {
	PlanID     string
	TotalCount int
	// Configured is false when provider credentials are missing.
	Configured bool
}

// Service is the subscription lifecycle controller. Ledger writes happen
// only after the provider confirmed the step.
type Service struct {
	provider  Provider
	ledger    Ledger
	state     *StateStore
	publisher EventPublisher
	cfg       ServiceConfig
	now       func() time.Time
}

func NewService(provider Provider, ledgerSvc Ledger, state *StateStore, publisher EventPublisher, cfg ServiceConfig) *Service {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Service{
		provider:  provider,
		ledger:    ledgerSvc,
		state:     state,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

type CreateResult struct {
	SubscriptionID string `json:"subscription_id"`
	PlanID         string `json:"plan_id"`
	Provider       string `json:"provider"`
}

type Status struct {
	State          State   `json:"state"`
	SubscriptionID *string `json:"subscription_id,omitempty"`
}

// CreateSubscription opens a recurring subscription for an account on FREE.
// The ledger is untouched until VerifyPayment succeeds.
func (s *Service) CreateSubscription(ctx context.Context, accountID uuid.UUID) (*CreateResult, error) {
	if !s.cfg.Configured {
		return nil, ErrMisconfigured
	}
	unlock, err := s.lock(ctx, accountID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	acc, err := s.ledger.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acc.SubscriptionID != nil {
		return nil, ErrActiveSubscription
	}

	sub, err := s.provider.CreateSubscription(ctx, CreateRequest{
		PlanID:     s.cfg.PlanID,
		TotalCount: s.cfg.TotalCount,
		AccountID:  acc.ID.String(),
		Email:      acc.Email,
	})
	if err != nil {
		s.record("create", "provider_error")
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if err := s.state.SetPending(ctx, accountID, sub.ID); err != nil {
		slog.Warn("billing: recording pending subscription failed", "account_id", accountID, "error", err)
	}

	slog.Info("subscription created", "account_id", accountID, "subscription_id", sub.ID, "provider", s.provider.Name())
	s.record("create", "ok")
	s.publish(ctx, accountID, events.SubscriptionCreated, sub.ID, "")

	return &CreateResult{SubscriptionID: sub.ID, PlanID: s.cfg.PlanID, Provider: s.provider.Name()}, nil
}

// VerifyPayment confirms a checkout with the provider and upgrades the
// account to PRO.
func (s *Service) VerifyPayment(ctx context.Context, accountID uuid.UUID, paymentID, subscriptionID, signature string) (*ledger.Account, error) {
	if !s.cfg.Configured {
		return nil, ErrMisconfigured
	}
	if paymentID == "" || subscriptionID == "" {
		return nil, fmt.Errorf("%w: missing payment verification data", ErrVerification)
	}
	unlock, err := s.lock(ctx, accountID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	acc, err := s.ledger.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acc.SubscriptionID != nil {
		if *acc.SubscriptionID == subscriptionID {
			return acc, nil
		}
		return nil, ErrActiveSubscription
	}

	if err := s.provider.VerifySignature(subscriptionID, paymentID, signature); err != nil {
		return nil, s.reject(ctx, accountID, subscriptionID, err.Error())
	}

	payment, err := s.provider.FetchPayment(ctx, paymentID)
	if err != nil {
		s.record("verify", "provider_error")
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	sub, err := s.provider.FetchSubscription(ctx, subscriptionID)
	if err != nil {
		s.record("verify", "provider_error")
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if payment.Status != PaymentCaptured || sub.Status != SubscriptionActive {
		return nil, s.reject(ctx, accountID, subscriptionID,
			fmt.Sprintf("payment status %q, subscription status %q", payment.Status, sub.Status))
	}
	if payment.CustomerID != "" && sub.CustomerID != "" && payment.CustomerID != sub.CustomerID {
		return nil, s.reject(ctx, accountID, subscriptionID, "payment and subscription belong to different customers")
	}
	if err := s.checkOwnership(ctx, accountID, sub); err != nil {
		return nil, s.reject(ctx, accountID, subscriptionID, err.Error())
	}

	updated, err := s.ledger.Debit(ctx, accountID, 0, &subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("activating subscription: %w", err)
	}

	if err := s.state.ClearPending(ctx, accountID); err != nil {
		slog.Warn("billing: clearing pending subscription failed", "account_id", accountID, "error", err)
	}

	slog.Info("payment verified, account upgraded", "account_id", accountID, "subscription_id", subscriptionID)
	s.record("verify", "ok")
	s.publish(ctx, accountID, events.SubscriptionActivated, subscriptionID, "")
	return updated, nil
}

// checkOwnership requires the subscription to have been opened for this
// account, either by the pending marker or by the provider's account tag.
func (s *Service) checkOwnership(ctx context.Context, accountID uuid.UUID, sub *ProviderSubscription) error {
	if sub.AccountID != "" && sub.AccountID != accountID.String() {
		return errors.New("subscription belongs to another account")
	}
	pending, err := s.state.Pending(ctx, accountID)
	if err != nil {
		slog.Warn("billing: reading pending subscription failed", "account_id", accountID, "error", err)
	}
	if pending != "" && pending != sub.ID {
		return errors.New("subscription does not match the pending checkout")
	}
	if pending == "" && sub.AccountID == "" {
		return errors.New("subscription was not opened for this account")
	}
	return nil
}

// CancelSubscription cancels at cycle end with the provider and downgrades
// the account immediately.
func (s *Service) CancelSubscription(ctx context.Context, accountID uuid.UUID) (*ledger.Account, error) {
	if !s.cfg.Configured {
		return nil, ErrMisconfigured
	}
	unlock, err := s.lock(ctx, accountID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	acc, err := s.ledger.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acc.SubscriptionID == nil {
		return nil, ErrNoSubscription
	}
	subscriptionID := *acc.SubscriptionID

	if err := s.state.MarkCancelling(ctx, accountID); err != nil {
		slog.Warn("billing: recording cancel marker failed", "account_id", accountID, "error", err)
	}
	defer func() {
		if err := s.state.ClearCancelling(context.WithoutCancel(ctx), accountID); err != nil {
			slog.Warn("billing: clearing cancel marker failed", "account_id", accountID, "error", err)
		}
	}()

	details := ""
	if err := s.provider.CancelSubscription(ctx, subscriptionID); err != nil {
		if !errors.Is(err, ErrAlreadyCancelled) {
			s.record("cancel", "provider_error")
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		slog.Info("subscription already cancelled at provider", "account_id", accountID, "subscription_id", subscriptionID)
		details = "already cancelled at provider"
	}

	updated, err := s.ledger.CancelSubscription(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("downgrading account: %w", err)
	}

	slog.Info("subscription cancelled, account downgraded", "account_id", accountID, "subscription_id", subscriptionID)
	s.record("cancel", "ok")
	s.publish(ctx, accountID, events.SubscriptionCancelled, subscriptionID, details)
	return updated, nil
}

// Status reports where the account is in the lifecycle.
func (s *Service) Status(ctx context.Context, accountID uuid.UUID) (*Status, error) {
	acc, err := s.ledger.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if acc.SubscriptionID != nil {
		cancelling, err := s.state.Cancelling(ctx, accountID)
		if err != nil {
			slog.Warn("billing: reading cancel marker failed", "account_id", accountID, "error", err)
		}
		if cancelling {
			return &Status{State: StatePendingCancel, SubscriptionID: acc.SubscriptionID}, nil
		}
		return &Status{State: StatePro, SubscriptionID: acc.SubscriptionID}, nil
	}

	pending, err := s.state.Pending(ctx, accountID)
	if err != nil {
		slog.Warn("billing: reading pending subscription failed", "account_id", accountID, "error", err)
	}
	if pending != "" {
		return &Status{State: StatePendingUpgrade, SubscriptionID: &pending}, nil
	}
	return &Status{State: StateFree}, nil
}

// lock serializes billing actions per account. A Redis failure lets the
// action through; the ledger write is still atomic.
func (s *Service) lock(ctx context.Context, accountID uuid.UUID) (func(), error) {
	unlock, ok, err := s.state.Lock(ctx, accountID)
	if err != nil {
		slog.Warn("billing: lock unavailable, continuing", "account_id", accountID, "error", err)
		return func() {}, nil
	}
	if !ok {
		return nil, ErrActionInProgress
	}
	return unlock, nil
}

func (s *Service) reject(ctx context.Context, accountID uuid.UUID, subscriptionID, reason string) error {
	slog.Warn("payment verification rejected", "account_id", accountID, "subscription_id", subscriptionID, "reason", reason)
	s.record("verify", "rejected")
	s.publish(ctx, accountID, events.SubscriptionRejected, subscriptionID, reason)
	return fmt.Errorf("%w: %s", ErrVerification, reason)
}

func (s *Service) record(action, outcome string) {
	metrics.SubscriptionEventsTotal.WithLabelValues(action, outcome).Inc()
}

func (s *Service) publish(ctx context.Context, accountID uuid.UUID, eventType, subscriptionID, details string) {
	err := s.publisher.PublishSubscriptionEvent(ctx, events.SubscriptionEvent{
		ID:             uuid.New(),
		AccountID:      accountID,
		EventType:      eventType,
		Provider:       s.provider.Name(),
		SubscriptionID: subscriptionID,
		Details:        details,
		OccurredAt:     s.now().UTC(),
	})
	if err != nil {
		slog.Warn("billing: publishing subscription event failed", "account_id", accountID, "event_type", eventType, "error", err)
	}
}
