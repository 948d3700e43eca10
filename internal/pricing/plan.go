// Package pricing holds the static plan allowances and per-model token rates.
package pricing

// Tier is the plan an account is billed on.
type Tier string

const (
	TierFree Tier = "FREE"
	TierPro  Tier = "PRO"
)

const (
	FreeMonthlyTokens = 5000
	ProMonthlyTokens  = 100000
)

// Allowance returns the monthly token allowance granted by a tier.
func (t Tier) Allowance() int64 {
	if t == TierPro {
		return ProMonthlyTokens
	}
	return FreeMonthlyTokens
}

func (t Tier) Valid() bool {
	return t == TierFree || t == TierPro
}

// TierFor derives the tier from the presence of a subscription id.
func TierFor(subscriptionID *string) Tier {
	if subscriptionID != nil && *subscriptionID != "" {
		return TierPro
	}
	return TierFree
}
