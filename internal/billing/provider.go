// Package billing drives plan upgrades and cancellations against an external
// subscription provider and applies the confirmed outcome to the ledger.
package billing

import (
	"context"
	"errors"
)

// Provider statuses the controller relies on. Adapters translate their
// native values onto these.
const (
	PaymentCaptured    = "captured"
	SubscriptionActive = "active"
)

// ErrAlreadyCancelled is returned by CancelSubscription when the provider
// reports the subscription as cancelled before this call.
var ErrAlreadyCancelled = errors.New("subscription already cancelled")

type CreateRequest struct {
	PlanID     string
	TotalCount int
	AccountID  string
	Email      string
}

type ProviderSubscription struct {
	ID     string
	Status string
	// AccountID is the account tag attached at creation, if the provider
	// returned it.
	AccountID  string
	CustomerID string
}

type ProviderPayment struct {
	ID         string
	Status     string
	CustomerID string
}

// Provider is the external billing system.
type Provider interface {
	Name() string
	CreateSubscription(ctx context.Context, req CreateRequest) (*ProviderSubscription, error)
	FetchSubscription(ctx context.Context, id string) (*ProviderSubscription, error)
	FetchPayment(ctx context.Context, id string) (*ProviderPayment, error)
	// CancelSubscription cancels at the end of the current billing cycle.
	CancelSubscription(ctx context.Context, id string) error
	// VerifySignature checks the checkout signature returned to the client.
	VerifySignature(subscriptionID, paymentID, signature string) error
}
