package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ModelID identifies an upstream chat model by its OpenRouter slug.
type ModelID string

const (
	ModelGemini20FlashLite ModelID = "google/gemini-2.0-flash-lite-001"
	ModelGPT4oMini         ModelID = "openai/gpt-4o-mini"
	ModelGPT35Turbo        ModelID = "openai/gpt-3.5-turbo"
	ModelMistralSaba       ModelID = "mistralai/mistral-saba"
	ModelClaude35Haiku     ModelID = "anthropic/claude-3-5-haiku"
	ModelDeepSeekCoder     ModelID = "deepseek/deepseek-coder-33b-instruct"
	ModelGemini25FlashLite ModelID = "google/gemini-2.5-flash-lite"
)

const (
	// DefaultModel prices requests for model ids outside the table.
	DefaultModel = ModelGPT35Turbo
	// DefaultAssistantModel is assigned to new assistants without an explicit choice.
	DefaultAssistantModel = ModelDeepSeekCoder
)

// Rate is the USD cost per 1000 tokens.
type Rate struct {
	InputPer1K  decimal.Decimal `json:"input_per_1k"`
	OutputPer1K decimal.Decimal `json:"output_per_1k"`
}

// Model is an entry in the model catalog.
type Model struct {
	ID          ModelID `json:"id"`
	DisplayName string  `json:"display_name"`
	Rate        Rate    `json:"rate"`
}

var catalog = map[ModelID]Model{
	ModelGPT35Turbo:        {ModelGPT35Turbo, "OpenAI: GPT-3.5 Turbo", rate("0.0005", "0.0015")},
	ModelGPT4oMini:         {ModelGPT4oMini, "OpenAI: GPT-4o-mini", rate("0.00015", "0.0006")},
	ModelGemini20FlashLite: {ModelGemini20FlashLite, "Google: Gemini 2.0 Flash", rate("0.000075", "0.0003")},
	ModelMistralSaba:       {ModelMistralSaba, "Mistral: Saba", rate("0.00014", "0.00042")},
	ModelClaude35Haiku:     {ModelClaude35Haiku, "Anthropic: Claude 3.5 Haiku", rate("0.00025", "0.00125")},
	ModelDeepSeekCoder:     {ModelDeepSeekCoder, "DeepSeek: DeepSeek-Coder", rate("0.00007", "0.00014")},
	ModelGemini25FlashLite: {ModelGemini25FlashLite, "Google: Gemini 2.5 Flash Lite", rate("0.000075", "0.0003")},
}

func rate(in, out string) Rate {
	return Rate{InputPer1K: decimal.RequireFromString(in), OutputPer1K: decimal.RequireFromString(out)}
}

// Lookup returns the catalog entry for id. The second result is false when
// id is unknown.
func Lookup(id ModelID) (Model, bool) {
	m, ok := catalog[id]
	return m, ok
}

// Known reports whether id is in the catalog.
func Known(id string) bool {
	_, ok := catalog[ModelID(id)]
	return ok
}

// RateFor returns the rate for id, falling back to DefaultModel. fallback is
// true when the default was used.
func RateFor(id ModelID) (r Rate, fallback bool) {
	if m, ok := catalog[id]; ok {
		return m.Rate, false
	}
	return catalog[DefaultModel].Rate, true
}

// Models lists the catalog sorted by id.
func Models() []Model {
	out := make([]Model, 0, len(catalog))
	for _, m := range catalog {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
