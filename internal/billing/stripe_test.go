package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

type fakeStripe struct {
	customerParams *stripe.CustomerParams
	subParams      *stripe.SubscriptionParams
	updateParams   *stripe.SubscriptionParams
	sub            *stripe.Subscription
	intent         *stripe.PaymentIntent
	updateErr      error
	getErr         error
}

func (f *fakeStripe) customersNew(params *stripe.CustomerParams) (*stripe.Customer, error) {
	f.customerParams = params
	return &stripe.Customer{ID: "cus_1"}, nil
}

type stripeCustomersFunc func(*stripe.CustomerParams) (*stripe.Customer, error)

func (fn stripeCustomersFunc) New(p *stripe.CustomerParams) (*stripe.Customer, error) { return fn(p) }

type fakeStripeSubscriptions struct{ f *fakeStripe }

func (s fakeStripeSubscriptions) New(params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	s.f.subParams = params
	return &stripe.Subscription{
		ID:       "sub_stripe",
		Status:   stripe.SubscriptionStatusIncomplete,
		Customer: &stripe.Customer{ID: *params.Customer},
		Metadata: params.Metadata,
	}, nil
}

func (s fakeStripeSubscriptions) Get(string, *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	if s.f.getErr != nil {
		return nil, s.f.getErr
	}
	return s.f.sub, nil
}

func (s fakeStripeSubscriptions) Update(_ string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	s.f.updateParams = params
	if s.f.updateErr != nil {
		return nil, s.f.updateErr
	}
	return s.f.sub, nil
}

type fakeStripeIntents struct{ f *fakeStripe }

func (s fakeStripeIntents) Get(string, *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return s.f.intent, nil
}

func newFakeStripe(f *fakeStripe, now time.Time) *Stripe {
	return &Stripe{
		customers:      stripeCustomersFunc(f.customersNew),
		subscriptions:  fakeStripeSubscriptions{f},
		paymentIntents: fakeStripeIntents{f},
		now:            func() time.Time { return now },
	}
}

func TestStripe_CreateSubscription(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	f := &fakeStripe{}
	p := newFakeStripe(f, now)

	sub, err := p.CreateSubscription(context.Background(), CreateRequest{
		PlanID: "price_pro", TotalCount: 12, AccountID: "acc-1", Email: "a@b.co",
	})
	require.NoError(t, err)

	assert.Equal(t, "sub_stripe", sub.ID)
	assert.Equal(t, "acc-1", sub.AccountID)
	assert.Equal(t, "cus_1", sub.CustomerID)
	assert.Equal(t, "a@b.co", *f.customerParams.Email)
	assert.Equal(t, "price_pro", *f.subParams.Items[0].Price)
	assert.Equal(t, "default_incomplete", *f.subParams.PaymentBehavior)
	assert.Equal(t, now.AddDate(1, 0, 0).Unix(), *f.subParams.CancelAt)
}

func TestStripe_FetchPayment_MapsSucceeded(t *testing.T) {
	f := &fakeStripe{intent: &stripe.PaymentIntent{
		ID:       "pi_1",
		Status:   stripe.PaymentIntentStatusSucceeded,
		Customer: &stripe.Customer{ID: "cus_1"},
	}}
	p := newFakeStripe(f, time.Now())

	pay, err := p.FetchPayment(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, PaymentCaptured, pay.Status)
	assert.Equal(t, "cus_1", pay.CustomerID)
}

func TestStripe_FetchPayment_PendingIsNotCaptured(t *testing.T) {
	f := &fakeStripe{intent: &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusProcessing}}
	p := newFakeStripe(f, time.Now())

	pay, err := p.FetchPayment(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.NotEqual(t, PaymentCaptured, pay.Status)
}

func TestStripe_Cancel(t *testing.T) {
	f := &fakeStripe{sub: &stripe.Subscription{ID: "sub_1"}}
	p := newFakeStripe(f, time.Now())

	require.NoError(t, p.CancelSubscription(context.Background(), "sub_1"))
	assert.True(t, *f.updateParams.CancelAtPeriodEnd)

	f.updateErr = &stripe.Error{Msg: "A canceled subscription can only update its cancellation_details"}
	f.sub = &stripe.Subscription{ID: "sub_1", Status: stripe.SubscriptionStatusCanceled}
	assert.ErrorIs(t, p.CancelSubscription(context.Background(), "sub_1"), ErrAlreadyCancelled)
}

func TestStripe_Cancel_RejectionOnLiveSubscriptionIsAFailure(t *testing.T) {
	f := &fakeStripe{sub: &stripe.Subscription{ID: "sub_1", Status: stripe.SubscriptionStatusActive}}
	f.updateErr = &stripe.Error{
		Code: stripe.ErrorCodeParameterInvalidEmpty,
		Msg:  "Invalid boolean: cancel_at_period_end",
	}
	p := newFakeStripe(f, time.Now())

	err := p.CancelSubscription(context.Background(), "sub_1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyCancelled)

	f.getErr = errors.New("stripe unavailable")
	err = p.CancelSubscription(context.Background(), "sub_1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyCancelled)
}
