package billing

import (
	"context"
	"errors"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

const razorpayStatusCancelled = "cancelled"

type razorpaySubscriptions interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Fetch(subscriptionID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Cancel(subscriptionID string, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type razorpayPayments interface {
	Fetch(paymentID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Razorpay implements Provider on the Razorpay subscriptions API.
type Razorpay struct {
	subscriptions razorpaySubscriptions
	payments      razorpayPayments
	signingSecret string
}

// NewRazorpay builds the adapter. Checkout signatures are checked against
// signingSecret, which is normally the key secret.
func NewRazorpay(keyID, keySecret, signingSecret string) *Razorpay {
	client := razorpay.NewClient(keyID, keySecret)
	return &Razorpay{
		subscriptions: client.Subscription,
		payments:      client.Payment,
		signingSecret: signingSecret,
	}
}

func (p *Razorpay) Name() string { return "razorpay" }

func (p *Razorpay) CreateSubscription(ctx context.Context, req CreateRequest) (*ProviderSubscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := p.subscriptions.Create(map[string]interface{}{
		"plan_id":         req.PlanID,
		"total_count":     req.TotalCount,
		"customer_notify": 1,
		"notes": map[string]interface{}{
			"user_id": req.AccountID,
			"email":   req.Email,
		},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay: creating subscription: %w", err)
	}
	sub := razorpaySubscription(body)
	if sub.ID == "" {
		return nil, errors.New("razorpay: subscription response has no id")
	}
	return sub, nil
}

func (p *Razorpay) FetchSubscription(ctx context.Context, id string) (*ProviderSubscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := p.subscriptions.Fetch(id, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay: fetching subscription %s: %w", id, err)
	}
	return razorpaySubscription(body), nil
}

func (p *Razorpay) FetchPayment(ctx context.Context, id string) (*ProviderPayment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := p.payments.Fetch(id, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay: fetching payment %s: %w", id, err)
	}
	return &ProviderPayment{
		ID:         stringField(body, "id"),
		Status:     stringField(body, "status"),
		CustomerID: stringField(body, "customer_id"),
	}, nil
}

func (p *Razorpay) CancelSubscription(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.subscriptions.Cancel(id, map[string]interface{}{"cancel_at_cycle_end": 1}, nil)
	if err == nil {
		return nil
	}
	if sub, fetchErr := p.subscriptions.Fetch(id, nil, nil); fetchErr == nil && stringField(sub, "status") == razorpayStatusCancelled {
		return fmt.Errorf("razorpay: %w: %v", ErrAlreadyCancelled, err)
	}
	return fmt.Errorf("razorpay: cancelling subscription %s: %w", id, err)
}

func (p *Razorpay) VerifySignature(subscriptionID, paymentID, signature string) error {
	return verifyCheckoutSignature(p.signingSecret, subscriptionID, paymentID, signature)
}

func razorpaySubscription(body map[string]interface{}) *ProviderSubscription {
	sub := &ProviderSubscription{
		ID:         stringField(body, "id"),
		Status:     stringField(body, "status"),
		CustomerID: stringField(body, "customer_id"),
	}
	if notes, ok := body["notes"].(map[string]interface{}); ok {
		sub.AccountID = stringField(notes, "user_id")
	}
	return sub
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}
