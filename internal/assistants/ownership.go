package assistants

import "context"

type contextKey string

const assistantCtxKey contextKey = "assistant"

func WithAssistant(ctx context.Context, a *Assistant) context.Context {
	return context.WithValue(ctx, assistantCtxKey, a)
}

// FromContext returns the assistant loaded by OwnershipMiddleware.
func FromContext(ctx context.Context) *Assistant {
	a, _ := ctx.Value(assistantCtxKey).(*Assistant)
	return a
}
