package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/axoncore/axoncore/internal/assistants"
	"github.com/axoncore/axoncore/internal/events"
	"github.com/axoncore/axoncore/internal/ledger"
	"github.com/axoncore/axoncore/internal/metrics"
	"github.com/axoncore/axoncore/internal/pricing"
	"github.com/axoncore/axoncore/internal/usage"
)

const (
	fallbackSystemPrompt = "You are a helpful AI assistant. Respond naturally to the user's questions and requests."
	apologyReply         = "I apologize, but I couldn't generate a response. Please try again."
)

// Ledger is the part of the entitlement ledger a chat turn touches.
type Ledger interface {
	Admit(ctx context.Context, id uuid.UUID) (*ledger.Account, error)
	Debit(ctx context.Context, id uuid.UUID, tokens int64, subscriptionID *string) (*ledger.Account, error)
}

type History interface {
	Recent(ctx context.Context, accountID, assistantID uuid.UUID, limit int) ([]Turn, error)
	Append(ctx context.Context, accountID, assistantID uuid.UUID, turns ...Turn) error
	Clear(ctx context.Context, accountID, assistantID uuid.UUID) error
}

type UsagePublisher interface {
	PublishUsageEvent(ctx context.Context, event events.UsageEvent) error
}

type RelayConfig struct {
	FallbackModel   string
	MaxTokens       int
	Temperature     float32
	Timeout         time.Duration
	HistoryMessages int
}

type Reply struct {
	Content    string       `json:"content"`
	TokensUsed int64        `json:"tokens_used"`
	Model      string       `json:"model"`
	Estimated  bool         `json:"estimated"`
	Account    *ledger.View `json:"account,omitempty"`
}

// Relay answers chat turns. Quota is checked before the upstream call and
// debited after it.
type Relay struct {
	ledger    Ledger
	completer Completer
	messages  MessageRepository
	history   History
	publisher UsagePublisher
	cfg       RelayConfig
	now       func() time.Time
}

func NewRelay(l Ledger, completer Completer, messages MessageRepository, history History, publisher UsagePublisher, cfg RelayConfig) *Relay {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Relay{
		ledger:    l,
		completer: completer,
		messages:  messages,
		history:   history,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Send runs one chat turn for accountID against a.
func (r *Relay) Send(ctx context.Context, accountID uuid.UUID, a *assistants.Assistant, prompt string) (*Reply, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyMessage
	}

	acc, err := r.ledger.Admit(ctx, accountID)
	if err != nil {
		return nil, err
	}

	msgs := r.buildMessages(ctx, accountID, a, prompt)

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	completion, err := r.complete(callCtx, a.ModelID, msgs)
	if errors.Is(err, ErrTimeout) {
		return nil, ErrTimeout
	}
	if err != nil || isBlank(completion) {
		slog.Warn("empty or failed completion, retrying with fallback model",
			"assistant_id", a.ID, "model", a.ModelID, "error", err)
		msgs = []ChatMessage{
			{Role: RoleSystem, Content: fallbackSystemPrompt},
			{Role: RoleUser, Content: prompt},
		}
		completion, err = r.complete(callCtx, r.cfg.FallbackModel, msgs)
		if err != nil {
			return nil, err
		}
		if isBlank(completion) {
			view := acc.View()
			return &Reply{Content: apologyReply, Model: r.cfg.FallbackModel, Account: &view}, nil
		}
	}

	est := usage.Resolve(completion.Usage, inputText(msgs), completion.Content, pricing.ModelID(completion.Model))
	reply := &Reply{
		Content:    completion.Content,
		TokensUsed: est.TotalTokens,
		Model:      completion.Model,
		Estimated:  !est.Exact,
	}

	// The tokens are spent once the completion is back; a client hanging up
	// now must not skip the charge or the bookkeeping.
	acctCtx := context.WithoutCancel(ctx)

	updated, err := r.ledger.Debit(acctCtx, accountID, est.TotalTokens, nil)
	if err != nil {
		slog.Error("debiting chat turn failed, reply still returned",
			"account_id", accountID, "tokens", est.TotalTokens, "error", err)
	} else {
		view := updated.View()
		reply.Account = &view
	}

	r.record(acctCtx, accountID, a, prompt, reply, est)
	return reply, nil
}

func (r *Relay) buildMessages(ctx context.Context, accountID uuid.UUID, a *assistants.Assistant, prompt string) []ChatMessage {
	var msgs []ChatMessage
	if sp := a.SystemPrompt(); sp != "" {
		msgs = append(msgs, ChatMessage{Role: RoleSystem, Content: sp})
	}

	turns, err := r.history.Recent(ctx, accountID, a.ID, r.cfg.HistoryMessages)
	if err != nil {
		slog.Warn("loading conversation context failed", "account_id", accountID, "assistant_id", a.ID, "error", err)
	}
	for _, t := range turns {
		msgs = append(msgs, ChatMessage{Role: t.Role, Content: t.Content})
	}
	return append(msgs, ChatMessage{Role: RoleUser, Content: prompt})
}

func (r *Relay) complete(ctx context.Context, model string, msgs []ChatMessage) (*Completion, error) {
	start := time.Now()
	c, err := r.completer.Complete(ctx, CompletionRequest{
		Model:       model,
		Messages:    msgs,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	})
	metrics.LLMRequestDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())

	status := "ok"
	switch {
	case err == nil && isBlank(c):
		status = "empty"
	case errors.Is(err, ErrTimeout), errors.Is(ctx.Err(), context.DeadlineExceeded):
		status = "timeout"
		err = ErrTimeout
	case err != nil:
		status = "error"
		if !errors.Is(err, ErrUpstream) {
			err = errors.Join(ErrUpstream, err)
		}
	}
	metrics.LLMRequestsTotal.WithLabelValues(model, status).Inc()

	if err == nil && c.Model == "" {
		c.Model = model
	}
	return c, err
}

// record persists the answered turn. Failures are logged only.
func (r *Relay) record(ctx context.Context, accountID uuid.UUID, a *assistants.Assistant, prompt string, reply *Reply, est usage.Estimate) {
	now := r.now().UTC()

	userMsg := &Message{
		ID: uuid.New(), AccountID: accountID, AssistantID: a.ID,
		Role: RoleUser, Content: prompt, CreatedAt: now,
	}
	replyMsg := &Message{
		ID: uuid.New(), AccountID: accountID, AssistantID: a.ID,
		Role: RoleAssistant, Content: reply.Content, Model: reply.Model,
		TokensUsed: reply.TokensUsed, CreatedAt: now.Add(time.Millisecond),
	}
	if err := r.messages.SaveTurn(ctx, userMsg, replyMsg); err != nil {
		slog.Error("saving chat messages failed", "account_id", accountID, "assistant_id", a.ID, "error", err)
	}

	err := r.history.Append(ctx, accountID, a.ID,
		Turn{Role: RoleUser, Content: prompt, Timestamp: now},
		Turn{Role: RoleAssistant, Content: reply.Content, Timestamp: now},
	)
	if err != nil {
		slog.Warn("appending conversation context failed", "account_id", accountID, "assistant_id", a.ID, "error", err)
	}

	assistantID := a.ID
	err = r.publisher.PublishUsageEvent(ctx, events.UsageEvent{
		ID:            uuid.New(),
		AccountID:     accountID,
		AssistantID:   &assistantID,
		Model:         reply.Model,
		InputTokens:   est.InputTokens,
		OutputTokens:  est.OutputTokens,
		TotalTokens:   est.TotalTokens,
		Estimated:     !est.Exact,
		EstimatedCost: est.EstimatedCost,
		OccurredAt:    now,
	})
	if err != nil {
		slog.Warn("publishing usage event failed", "account_id", accountID, "error", err)
	}
}

// Messages returns the latest limit messages with an assistant, oldest first.
func (r *Relay) Messages(ctx context.Context, accountID, assistantID uuid.UUID, limit int) ([]*Message, error) {
	return r.messages.ListByAssistant(ctx, accountID, assistantID, limit)
}

// ClearMessages drops the stored history and the short-term context.
func (r *Relay) ClearMessages(ctx context.Context, accountID, assistantID uuid.UUID) (int64, error) {
	n, err := r.messages.DeleteByAssistant(ctx, accountID, assistantID)
	if err != nil {
		return 0, err
	}
	if err := r.history.Clear(ctx, accountID, assistantID); err != nil {
		slog.Warn("clearing conversation context failed", "account_id", accountID, "assistant_id", assistantID, "error", err)
	}
	return n, nil
}

func (r *Relay) RecentMessages(ctx context.Context, accountID uuid.UUID, limit int) ([]*Message, error) {
	return r.messages.Recent(ctx, accountID, limit)
}

func isBlank(c *Completion) bool {
	return c == nil || strings.TrimSpace(c.Content) == ""
}

func inputText(msgs []ChatMessage) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n")
}
