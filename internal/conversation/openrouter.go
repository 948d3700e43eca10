package conversation

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/axoncore/axoncore/internal/usage"
)

type OpenRouterConfig struct {
	APIKey   string
	BaseURL  string
	SiteURL  string
	SiteName string
}

// OpenRouter is a Completer for OpenAI-compatible aggregation APIs.
type OpenRouter struct {
	client *openai.Client
}

func NewOpenRouter(cfg OpenRouterConfig) *OpenRouter {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{
		Transport: &attributionTransport{
			base:     http.DefaultTransport,
			siteURL:  cfg.SiteURL,
			siteName: cfg.SiteName,
		},
	}
	return &OpenRouter{client: openai.NewClientWithConfig(oc)}
}

func (o *OpenRouter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	out := &Completion{
		Model: resp.Model,
		Usage: usage.Reported{
			Prompt:     int64(resp.Usage.PromptTokens),
			Completion: int64(resp.Usage.CompletionTokens),
			Total:      int64(resp.Usage.TotalTokens),
		},
	}
	if len(resp.Choices) > 0 {
		out.Content = resp.Choices[0].Message.Content
	}
	if out.Model == "" {
		out.Model = req.Model
	}
	return out, nil
}

// attributionTransport adds the ranking headers OpenRouter reads.
type attributionTransport struct {
	base     http.RoundTripper
	siteURL  string
	siteName string
}

func (t *attributionTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	if t.siteURL != "" {
		r.Header.Set("HTTP-Referer", t.siteURL)
	}
	if t.siteName != "" {
		r.Header.Set("X-Title", t.siteName)
	}
	return t.base.RoundTrip(r)
}
