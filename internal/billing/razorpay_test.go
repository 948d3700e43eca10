package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRazorpaySubscriptions struct {
	created   map[string]interface{}
	cancelled map[string]interface{}
	fetchResp map[string]interface{}
	err       error
	cancelErr error
}

func (f *fakeRazorpaySubscriptions) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.created = data
	if f.err != nil {
		return nil, f.err
	}
	return map[string]interface{}{"id": "sub_123", "status": "created", "notes": data["notes"]}, nil
}

func (f *fakeRazorpaySubscriptions) Fetch(id string, _ map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.fetchResp, nil
}

func (f *fakeRazorpaySubscriptions) Cancel(id string, data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.cancelled = data
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return map[string]interface{}{"id": id, "status": "active"}, nil
}

type fakeRazorpayPayments struct {
	resp map[string]interface{}
}

func (f *fakeRazorpayPayments) Fetch(string, map[string]interface{}, map[string]string) (map[string]interface{}, error) {
	return f.resp, nil
}

func TestRazorpay_CreateSubscription(t *testing.T) {
	subs := &fakeRazorpaySubscriptions{}
	p := &Razorpay{subscriptions: subs, payments: &fakeRazorpayPayments{}, signingSecret: "s"}

	sub, err := p.CreateSubscription(context.Background(), CreateRequest{
		PlanID: "plan_pro", TotalCount: 12, AccountID: "acc-1", Email: "a@b.co",
	})
	require.NoError(t, err)
	assert.Equal(t, "sub_123", sub.ID)
	assert.Equal(t, "acc-1", sub.AccountID)

	assert.Equal(t, "plan_pro", subs.created["plan_id"])
	assert.Equal(t, 12, subs.created["total_count"])
	assert.Equal(t, 1, subs.created["customer_notify"])
	notes := subs.created["notes"].(map[string]interface{})
	assert.Equal(t, "a@b.co", notes["email"])
}

func TestRazorpay_FetchTranslatesFields(t *testing.T) {
	subs := &fakeRazorpaySubscriptions{fetchResp: map[string]interface{}{
		"id": "sub_1", "status": "active", "customer_id": "cust_1",
		"notes": map[string]interface{}{"user_id": "acc-1"},
	}}
	pays := &fakeRazorpayPayments{resp: map[string]interface{}{
		"id": "pay_1", "status": "captured", "customer_id": "cust_1",
	}}
	p := &Razorpay{subscriptions: subs, payments: pays}

	sub, err := p.FetchSubscription(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.Equal(t, &ProviderSubscription{ID: "sub_1", Status: SubscriptionActive, AccountID: "acc-1", CustomerID: "cust_1"}, sub)

	pay, err := p.FetchPayment(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.Equal(t, PaymentCaptured, pay.Status)
	assert.Equal(t, "cust_1", pay.CustomerID)
}

func TestRazorpay_Cancel(t *testing.T) {
	t.Run("cancels at cycle end", func(t *testing.T) {
		subs := &fakeRazorpaySubscriptions{}
		p := &Razorpay{subscriptions: subs}
		require.NoError(t, p.CancelSubscription(context.Background(), "sub_1"))
		assert.Equal(t, 1, subs.cancelled["cancel_at_cycle_end"])
	})

	t.Run("already cancelled", func(t *testing.T) {
		subs := &fakeRazorpaySubscriptions{
			cancelErr: errors.New("Subscription is not cancellable in cancelled status."),
			fetchResp: map[string]interface{}{"id": "sub_1", "status": "cancelled"},
		}
		p := &Razorpay{subscriptions: subs}
		err := p.CancelSubscription(context.Background(), "sub_1")
		assert.ErrorIs(t, err, ErrAlreadyCancelled)
	})

	t.Run("rejection mentioning cancellation on an active subscription", func(t *testing.T) {
		subs := &fakeRazorpaySubscriptions{
			cancelErr: errors.New("cancel_at_cycle_end is not cancelled-compatible for this plan"),
			fetchResp: map[string]interface{}{"id": "sub_1", "status": "active"},
		}
		p := &Razorpay{subscriptions: subs}
		err := p.CancelSubscription(context.Background(), "sub_1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrAlreadyCancelled)
	})

	t.Run("other failure", func(t *testing.T) {
		subs := &fakeRazorpaySubscriptions{cancelErr: errors.New("gateway timeout"), err: errors.New("gateway timeout")}
		p := &Razorpay{subscriptions: subs}
		err := p.CancelSubscription(context.Background(), "sub_1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrAlreadyCancelled)
	})
}

func TestRazorpay_VerifySignature(t *testing.T) {
	p := &Razorpay{signingSecret: "secret"}
	assert.NoError(t, p.VerifySignature("sub_1", "pay_1", Sign("secret", "pay_1", "sub_1")))
	assert.Error(t, p.VerifySignature("sub_1", "pay_1", "deadbeef"))
}
