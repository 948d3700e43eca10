package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MutateFunc receives the locked current row and returns the row to store.
type MutateFunc func(current *Account) (*Account, error)

// Repository persists accounts. Lookups return (nil, nil) when no row matches.
type Repository interface {
	// Insert stores a unless an account with the same email exists. It
	// reports whether a row was created.
	Insert(ctx context.Context, a *Account) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	// Update runs fn with the row locked and writes its result in the same
	// transaction. It returns (nil, nil) when the id is unknown.
	Update(ctx context.Context, id uuid.UUID, fn MutateFunc) (*Account, error)
}

const accountColumns = `id, email, name, avatar, credits, monthly_credits, monthly_usage,
	total_usage, last_reset_date, subscription_id, created_at, updated_at`

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func scanAccount(row pgx.Row) (*Account, error) {
	a := &Account{}
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Avatar, &a.Credits, &a.MonthlyCredits,
		&a.MonthlyUsage, &a.TotalUsage, &a.LastResetDate, &a.SubscriptionID,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *postgresRepository) Insert(ctx context.Context, a *Account) (bool, error) {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (email) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		a.ID, a.Email, a.Name, a.Avatar, a.Credits, a.MonthlyCredits, a.MonthlyUsage,
		a.TotalUsage, a.LastResetDate, a.SubscriptionID, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("inserting account: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying account by id: %w", err)
	}
	return a, nil
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying account by email: %w", err)
	}
	return a, nil
}

func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, fn MutateFunc) (*Account, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning account transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanAccount(tx.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("locking account: %w", err)
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE accounts
		SET credits = $2, monthly_credits = $3, monthly_usage = $4, total_usage = $5,
		    last_reset_date = $6, subscription_id = $7, updated_at = $8
		WHERE id = $1`,
		id, next.Credits, next.MonthlyCredits, next.MonthlyUsage, next.TotalUsage,
		next.LastResetDate, next.SubscriptionID, next.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("updating account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing account update: %w", err)
	}
	return next, nil
}
