package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/axoncore/axoncore/internal/pricing"
)

// Account matches the accounts table schema.
type Account struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Avatar         string    `json:"avatar"`
	Credits        int64     `json:"credits"`
	MonthlyCredits int64     `json:"monthly_credits"`
	MonthlyUsage   int64     `json:"monthly_usage"`
	TotalUsage     int64     `json:"total_usage"`
	LastResetDate  time.Time `json:"last_reset_date"`
	SubscriptionID *string   `json:"subscription_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewAccount returns a FREE account with a full allowance.
func NewAccount(email, name, avatar string, now time.Time) *Account {
	return &Account{
		ID:             uuid.New(),
		Email:          email,
		Name:           name,
		Avatar:         avatar,
		Credits:        pricing.FreeMonthlyTokens,
		MonthlyCredits: pricing.FreeMonthlyTokens,
		LastResetDate:  now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (a *Account) Tier() pricing.Tier {
	return pricing.TierFor(a.SubscriptionID)
}

// Remaining is the allowance left this cycle, never negative.
func (a *Account) Remaining() int64 {
	if r := a.MonthlyCredits - a.MonthlyUsage; r > 0 {
		return r
	}
	return 0
}

func (a *Account) clone() *Account {
	c := *a
	if a.SubscriptionID != nil {
		id := *a.SubscriptionID
		c.SubscriptionID = &id
	}
	return &c
}

// View is the client-facing representation with derived fields.
type View struct {
	*Account
	Tier      pricing.Tier `json:"tier"`
	Remaining int64        `json:"remaining"`
}

func (a *Account) View() View {
	return View{Account: a, Tier: a.Tier(), Remaining: a.Remaining()}
}
