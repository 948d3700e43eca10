package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/axoncore/axoncore/internal/metrics"
)

type ServiceOptions struct {
	Cache Cache
	Now   func() time.Time
}

// Service owns every mutation of account entitlement state.
type Service struct {
	repo  Repository
	cache Cache
	now   func() time.Time
}

func NewService(repo Repository, opts ServiceOptions) *Service {
	cache := opts.Cache
	if cache == nil {
		cache = NopCache{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, cache: cache, now: now}
}

// GetOrCreate returns the account for email, creating a FREE account on
// first sight. Existing accounts are returned unchanged.
func (s *Service) GetOrCreate(ctx context.Context, email, name, avatar string) (*Account, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}

	existing, err := s.GetByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	acc := NewAccount(email, name, avatar, s.now())
	created, err := s.repo.Insert(ctx, acc)
	if err != nil {
		return nil, err
	}
	if created {
		slog.Info("account created", "account_id", acc.ID)
		return acc, nil
	}

	// Lost the insert race to a concurrent sign-in.
	winner, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if winner == nil {
		return nil, fmt.Errorf("account for %s vanished after conflict", email)
	}
	return winner, nil
}

// Get looks an account up by id or by email.
func (s *Service) Get(ctx context.Context, identifier string) (*Account, error) {
	if id, err := uuid.Parse(identifier); err == nil {
		return s.GetByID(ctx, id)
	}
	return s.GetByEmail(ctx, identifier)
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	acc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrNotFound
	}
	return acc, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*Account, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if acc, ok := s.cache.Get(ctx, email); ok {
		metrics.AccountCacheTotal.WithLabelValues("hit").Inc()
		return acc, nil
	}
	metrics.AccountCacheTotal.WithLabelValues("miss").Inc()

	// Taken before the load so a write committed meanwhile voids the Set.
	gen, genErr := s.cache.Generation(ctx, email)

	acc, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrNotFound
	}
	if genErr != nil {
		slog.Warn("ledger: account cache unavailable", "account_id", acc.ID, "error", genErr)
		return acc, nil
	}
	if err := s.cache.Set(ctx, acc, gen); err != nil {
		slog.Warn("ledger: caching account failed", "account_id", acc.ID, "error", err)
	}
	return acc, nil
}

// Debit applies a due rollover, an optional PRO activation and the token
// debit as one atomic write.
func (s *Service) Debit(ctx context.Context, id uuid.UUID, tokens int64, subscriptionID *string) (*Account, error) {
	if tokens < 0 {
		return nil, fmt.Errorf("%w: tokens must not be negative", ErrValidation)
	}
	return s.apply(ctx, id, func(a *Account, now time.Time) []Transition {
		return DebitPlan(a, tokens, subscriptionID, now)
	})
}

// CancelSubscription downgrades the account to FREE immediately.
func (s *Service) CancelSubscription(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.apply(ctx, id, func(*Account, time.Time) []Transition {
		return []Transition{Cancel{}}
	})
}

// Admit is the pre-flight check for metered requests. It evaluates the
// account as if a due rollover had already happened.
func (s *Service) Admit(ctx context.Context, id uuid.UUID) (*Account, error) {
	acc, err := s.Current(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Admit(acc); err != nil {
		metrics.QuotaRejectionsTotal.Inc()
		return acc, err
	}
	return acc, nil
}

// Current returns the account with any due rollover projected.
func (s *Service) Current(ctx context.Context, id uuid.UUID) (*Account, error) {
	acc, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return Project(acc, s.now()), nil
}

func (s *Service) apply(ctx context.Context, id uuid.UUID, planFor func(*Account, time.Time) []Transition) (*Account, error) {
	now := s.now()
	var applied []Transition

	updated, err := s.repo.Update(ctx, id, func(current *Account) (*Account, error) {
		applied = planFor(current, now)
		return applyAll(current, applied, now)
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}

	for _, t := range applied {
		metrics.LedgerTransitionsTotal.WithLabelValues(t.Name()).Inc()
		if d, ok := t.(PlainDebit); ok {
			metrics.TokensDebitedTotal.WithLabelValues(string(updated.Tier())).Add(float64(d.Tokens))
		}
	}

	if err := s.cache.Invalidate(ctx, updated.Email); err != nil {
		slog.Error("ledger: cache invalidation failed", "account_id", updated.ID, "error", err)
	}
	return updated, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
