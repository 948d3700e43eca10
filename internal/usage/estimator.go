// Package usage estimates token counts and cost when the upstream model
// does not report usage.
package usage

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/axoncore/axoncore/internal/pricing"
)

var thousand = decimal.NewFromInt(1000)

type Estimate struct {
	InputTokens   int64           `json:"input_tokens"`
	OutputTokens  int64           `json:"output_tokens"`
	TotalTokens   int64           `json:"total_tokens"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	// Exact is true when the counts came from the provider.
	Exact bool `json:"exact"`
}

// EstimateTokens approximates tokens as ceil(words / 0.75).
func EstimateTokens(text string) int64 {
	words := int64(len(strings.Fields(text)))
	if words == 0 {
		return 0
	}
	return (words*4 + 2) / 3
}

// EstimateUsage estimates both sides of a turn and prices them for model.
func EstimateUsage(input, output string, model pricing.ModelID) Estimate {
	return Price(EstimateTokens(input), EstimateTokens(output), model, false)
}

// Price computes the cost of known token counts for model.
func Price(inputTokens, outputTokens int64, model pricing.ModelID, exact bool) Estimate {
	r, _ := pricing.RateFor(model)
	cost := decimal.NewFromInt(inputTokens).Div(thousand).Mul(r.InputPer1K).
		Add(decimal.NewFromInt(outputTokens).Div(thousand).Mul(r.OutputPer1K))
	return Estimate{
		InputTokens:   inputTokens,
		OutputTokens:  outputTokens,
		TotalTokens:   inputTokens + outputTokens,
		EstimatedCost: cost,
		Exact:         exact,
	}
}

// Reported carries provider usage counts. A zero Total means none were sent.
type Reported struct {
	Prompt     int64
	Completion int64
	Total      int64
}

// Resolve prefers provider-reported counts and falls back to the estimate.
func Resolve(rep Reported, input, output string, model pricing.ModelID) Estimate {
	if rep.Total > 0 {
		e := Price(rep.Prompt, rep.Completion, model, true)
		e.TotalTokens = rep.Total
		return e
	}
	return EstimateUsage(input, output, model)
}
