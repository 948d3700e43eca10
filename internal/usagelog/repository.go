package usagelog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists and lists usage records.
type Store interface {
	// Insert reports false when a record with the same id already exists.
	Insert(ctx context.Context, rec *Record) (bool, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, params ListParams) ([]Record, int64, error)
}

// Repository handles usage_events PostgreSQL operations.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, rec *Record) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO usage_events (id, account_id, assistant_id, model, input_tokens, output_tokens,
		                           total_tokens, estimated, estimated_cost, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.AccountID, rec.AssistantID, rec.Model, rec.InputTokens, rec.OutputTokens,
		rec.TotalTokens, rec.Estimated, rec.EstimatedCost, rec.OccurredAt)
	if err != nil {
		return false, fmt.Errorf("inserting usage event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByAccount returns a page of an account's usage, newest first, and the
// total number of matching records.
func (r *Repository) ListByAccount(ctx context.Context, accountID uuid.UUID, params ListParams) ([]Record, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	conditions := []string{"account_id = $1"}
	args := []any{accountID}

	if params.From != nil {
		args = append(args, *params.From)
		conditions = append(conditions, fmt.Sprintf("occurred_at >= $%d", len(args)))
	}
	if params.To != nil {
		args = append(args, *params.To)
		conditions = append(conditions, fmt.Sprintf("occurred_at <= $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM usage_events WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting usage events: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	query := fmt.Sprintf(
		`SELECT id, account_id, assistant_id, model, input_tokens, output_tokens,
		        total_tokens, estimated, estimated_cost, occurred_at
		 FROM usage_events WHERE %s
		 ORDER BY occurred_at DESC
		 LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying usage events: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.AssistantID, &rec.Model, &rec.InputTokens,
			&rec.OutputTokens, &rec.TotalTokens, &rec.Estimated, &rec.EstimatedCost, &rec.OccurredAt); err != nil {
			return nil, 0, fmt.Errorf("scanning usage event: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating usage events: %w", err)
	}
	return out, total, nil
}
