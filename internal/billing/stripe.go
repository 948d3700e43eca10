package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

type stripeCustomers interface {
	New(params *stripe.CustomerParams) (*stripe.Customer, error)
}

type stripeSubscriptions interface {
	New(params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	Get(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	Update(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
}

type stripePaymentIntents interface {
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// Stripe implements Provider on Stripe Billing. Checkout is confirmed by
// Stripe.js, so there is no client signature to check; verification relies
// on the server-side re-fetch.
type Stripe struct {
	customers      stripeCustomers
	subscriptions  stripeSubscriptions
	paymentIntents stripePaymentIntents
	now            func() time.Time
}

func NewStripe(secretKey string) *Stripe {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &Stripe{
		customers:      sc.Customers,
		subscriptions:  sc.Subscriptions,
		paymentIntents: sc.PaymentIntents,
		now:            time.Now,
	}
}

func (p *Stripe) Name() string { return "stripe" }

func (p *Stripe) CreateSubscription(ctx context.Context, req CreateRequest) (*ProviderSubscription, error) {
	custParams := &stripe.CustomerParams{Email: stripe.String(req.Email)}
	custParams.Context = ctx
	custParams.AddMetadata("account_id", req.AccountID)
	cust, err := p.customers.New(custParams)
	if err != nil {
		return nil, fmt.Errorf("stripe: creating customer: %w", err)
	}

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(cust.ID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(req.PlanID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
	}
	if req.TotalCount > 0 {
		params.CancelAt = stripe.Int64(p.now().AddDate(0, req.TotalCount, 0).Unix())
	}
	params.Context = ctx
	params.AddMetadata("account_id", req.AccountID)
	params.AddMetadata("email", req.Email)

	sub, err := p.subscriptions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: creating subscription: %w", err)
	}
	return stripeSubscription(sub), nil
}

func (p *Stripe) FetchSubscription(ctx context.Context, id string) (*ProviderSubscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := p.subscriptions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: fetching subscription %s: %w", id, err)
	}
	return stripeSubscription(sub), nil
}

func (p *Stripe) FetchPayment(ctx context.Context, id string) (*ProviderPayment, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := p.paymentIntents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: fetching payment intent %s: %w", id, err)
	}
	out := &ProviderPayment{ID: pi.ID, Status: string(pi.Status)}
	if pi.Status == stripe.PaymentIntentStatusSucceeded {
		out.Status = PaymentCaptured
	}
	if pi.Customer != nil {
		out.CustomerID = pi.Customer.ID
	}
	return out, nil
}

func (p *Stripe) CancelSubscription(ctx context.Context, id string) error {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
	params.Context = ctx
	_, err := p.subscriptions.Update(id, params)
	if err == nil {
		return nil
	}
	// Stripe rejects updates to a canceled subscription, but the error text
	// is shared with unrelated parameter errors. Only the fetched status counts.
	getParams := &stripe.SubscriptionParams{}
	getParams.Context = ctx
	if sub, getErr := p.subscriptions.Get(id, getParams); getErr == nil && sub.Status == stripe.SubscriptionStatusCanceled {
		return fmt.Errorf("stripe: %w: %v", ErrAlreadyCancelled, err)
	}
	return fmt.Errorf("stripe: cancelling subscription %s: %w", id, err)
}

func (p *Stripe) VerifySignature(string, string, string) error {
	return nil
}

func stripeSubscription(sub *stripe.Subscription) *ProviderSubscription {
	out := &ProviderSubscription{
		ID:        sub.ID,
		Status:    string(sub.Status),
		AccountID: sub.Metadata["account_id"],
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	return out
}
