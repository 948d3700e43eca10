package conversation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/axoncore/axoncore/internal/events"
	"github.com/axoncore/axoncore/internal/ledger"
)

type fakeLedger struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*ledger.Account
	debitErr error
	debited  []int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{accounts: map[uuid.UUID]*ledger.Account{}}
}

func (l *fakeLedger) add() *ledger.Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc := ledger.NewAccount(uuid.NewString()+"@example.com", "", "", time.Now())
	l.accounts[acc.ID] = acc
	return acc
}

func (l *fakeLedger) Admit(_ context.Context, id uuid.UUID) (*ledger.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	cp := *acc
	if err := ledger.Admit(&cp); err != nil {
		return &cp, err
	}
	return &cp, nil
}

func (l *fakeLedger) Debit(ctx context.Context, id uuid.UUID, tokens int64, _ *string) (*ledger.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.debitErr != nil {
		return nil, l.debitErr
	}
	acc, ok := l.accounts[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	if err := (ledger.PlainDebit{Tokens: tokens}).Apply(acc, time.Now()); err != nil {
		return nil, err
	}
	l.debited = append(l.debited, tokens)
	cp := *acc
	return &cp, nil
}

// scriptedCompleter answers calls in order from replies.
type scriptedCompleter struct {
	mu      sync.Mutex
	replies []scripted
	calls   []CompletionRequest
}

type scripted struct {
	completion *Completion
	err        error
	wait       bool

	// onReturn runs just before the scripted answer is handed back.
	onReturn func()
}

func (c *scriptedCompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req)
	if len(c.replies) == 0 {
		c.mu.Unlock()
		return nil, errors.New("no scripted reply")
	}
	next := c.replies[0]
	c.replies = c.replies[1:]
	c.mu.Unlock()

	if next.wait {
		<-ctx.Done()
		return nil, ErrTimeout
	}
	if next.onReturn != nil {
		next.onReturn()
	}
	return next.completion, next.err
}

func (c *scriptedCompleter) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type fakeMessages struct {
	mu      sync.Mutex
	msgs    []*Message
	saveErr error
}

func (m *fakeMessages) SaveTurn(ctx context.Context, user, reply *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.msgs = append(m.msgs, user, reply)
	return nil
}

func (m *fakeMessages) ListByAssistant(_ context.Context, accountID, assistantID uuid.UUID, limit int) ([]*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Message
	for _, msg := range m.msgs {
		if msg.AccountID == accountID && msg.AssistantID == assistantID {
			out = append(out, msg)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *fakeMessages) DeleteByAssistant(_ context.Context, accountID, assistantID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*Message
	var n int64
	for _, msg := range m.msgs {
		if msg.AccountID == accountID && msg.AssistantID == assistantID {
			n++
			continue
		}
		kept = append(kept, msg)
	}
	m.msgs = kept
	return n, nil
}

func (m *fakeMessages) Recent(_ context.Context, accountID uuid.UUID, limit int) ([]*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Message
	for _, msg := range m.msgs {
		if msg.AccountID == accountID {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type recordingUsage struct {
	mu     sync.Mutex
	events []events.UsageEvent
}

func (p *recordingUsage) PublishUsageEvent(ctx context.Context, e events.UsageEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}
