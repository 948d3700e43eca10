package ledger

import (
	"fmt"
	"time"

	"github.com/axoncore/axoncore/internal/pricing"
)

// Transition is one state change applied to an account inside a single
// atomic write.
type Transition interface {
	Name() string
	Apply(a *Account, now time.Time) error
}

// Reset starts a new monthly cycle at the allowance of the current tier.
type Reset struct{}

func (Reset) Name() string { return "reset" }

func (Reset) Apply(a *Account, now time.Time) error {
	a.MonthlyCredits = a.Tier().Allowance()
	a.MonthlyUsage = 0
	a.Credits = a.MonthlyCredits
	a.LastResetDate = now
	return nil
}

// UpgradeActivate moves the account to PRO with a full allowance.
type UpgradeActivate struct {
	SubscriptionID string
}

func (UpgradeActivate) Name() string { return "upgrade_activate" }

func (t UpgradeActivate) Apply(a *Account, _ time.Time) error {
	if t.SubscriptionID == "" {
		return fmt.Errorf("%w: subscription id is required", ErrValidation)
	}
	id := t.SubscriptionID
	a.SubscriptionID = &id
	a.MonthlyCredits = pricing.ProMonthlyTokens
	a.Credits = pricing.ProMonthlyTokens
	return nil
}

// PlainDebit records consumed tokens. Usage may exceed the allowance but
// spendable credits stop at zero.
type PlainDebit struct {
	Tokens int64
}

func (PlainDebit) Name() string { return "debit" }

func (t PlainDebit) Apply(a *Account, _ time.Time) error {
	if t.Tokens < 0 {
		return fmt.Errorf("%w: tokens must not be negative", ErrValidation)
	}
	a.MonthlyUsage += t.Tokens
	a.TotalUsage += t.Tokens
	a.Credits -= t.Tokens
	if a.Credits < 0 {
		a.Credits = 0
	}
	return nil
}

// Cancel drops the subscription and restores the FREE allowance without
// touching usage counters.
type Cancel struct{}

func (Cancel) Name() string { return "cancel" }

func (Cancel) Apply(a *Account, _ time.Time) error {
	a.SubscriptionID = nil
	a.MonthlyCredits = pricing.FreeMonthlyTokens
	a.Credits = pricing.FreeMonthlyTokens
	return nil
}

// RolloverDue reports whether now falls in a different calendar month than
// the last reset. Both sides are compared in UTC.
func RolloverDue(a *Account, now time.Time) bool {
	last := a.LastResetDate.UTC()
	now = now.UTC()
	return last.Year() != now.Year() || last.Month() != now.Month()
}

// DebitPlan composes the transitions of a Debit call: a due rollover first,
// then an upgrade, then the token debit.
func DebitPlan(a *Account, tokens int64, subscriptionID *string, now time.Time) []Transition {
	var plan []Transition
	if RolloverDue(a, now) {
		plan = append(plan, Reset{})
	}
	if subscriptionID != nil && *subscriptionID != "" {
		plan = append(plan, UpgradeActivate{SubscriptionID: *subscriptionID})
	}
	if tokens > 0 {
		plan = append(plan, PlainDebit{Tokens: tokens})
	}
	return plan
}

// applyAll runs plan against a copy of a and returns the copy only when
// every transition succeeded.
func applyAll(a *Account, plan []Transition, now time.Time) (*Account, error) {
	next := a.clone()
	for _, t := range plan {
		if err := t.Apply(next, now); err != nil {
			return nil, fmt.Errorf("applying %s: %w", t.Name(), err)
		}
	}
	if len(plan) > 0 {
		next.UpdatedAt = now
	}
	return next, nil
}

// Project returns the account as it would look after a due rollover,
// without persisting anything.
func Project(a *Account, now time.Time) *Account {
	if !RolloverDue(a, now) {
		return a
	}
	next, _ := applyAll(a, []Transition{Reset{}}, now)
	return next
}

// Admit reports whether a request may start. It reserves nothing.
func Admit(a *Account) error {
	if a.MonthlyCredits > 0 && a.MonthlyUsage < a.MonthlyCredits {
		return nil
	}
	return ErrQuotaExceeded
}
