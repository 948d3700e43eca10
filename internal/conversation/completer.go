package conversation

import (
	"context"

	"github.com/axoncore/axoncore/internal/usage"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float32
}

// Completion is one upstream answer. Usage.Total is zero when the
// provider did not report counts.
type Completion struct {
	Content string
	Model   string
	Usage   usage.Reported
}

// Completer is the upstream chat completion endpoint.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}
