package assistants

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	CreateMany(ctx context.Context, rows []*Row) error
	GetByID(ctx context.Context, id uuid.UUID) (*Row, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Row, error)
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
	Update(ctx context.Context, row *Row) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const selectColumns = `id, account_id, catalog_id, name, title, image, instruction_encrypted,
	user_instruction, sample_questions, model_id, created_at, updated_at`

func scanRow(row pgx.Row) (*Row, error) {
	r := &Row{}
	err := row.Scan(&r.ID, &r.AccountID, &r.CatalogID, &r.Name, &r.Title, &r.Image,
		&r.InstructionEncrypted, &r.UserInstruction, &r.SampleQuestions, &r.ModelID,
		&r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// CreateMany inserts all rows in one transaction.
func (r *postgresRepository) CreateMany(ctx context.Context, rows []*Row) error {
	query := `
		INSERT INTO assistants (id, account_id, catalog_id, name, title, image, instruction_encrypted,
			user_instruction, sample_questions, model_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, row := range rows {
			batch.Queue(query,
				row.ID, row.AccountID, row.CatalogID, row.Name, row.Title, row.Image,
				row.InstructionEncrypted, row.UserInstruction, row.SampleQuestions, row.ModelID,
				row.CreatedAt, row.UpdatedAt)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting assistants: %w", err)
		}
		return nil
	})
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Row, error) {
	query := `SELECT ` + selectColumns + ` FROM assistants WHERE id = $1`

	row, err := scanRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying assistant by id: %w", err)
	}
	return row, nil
}

func (r *postgresRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Row, error) {
	query := `SELECT ` + selectColumns + `
		FROM assistants
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing assistants: %w", err)
	}
	defer rows.Close()

	var out []*Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assistant row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *postgresRepository) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM assistants WHERE account_id = $1`, accountID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting assistants: %w", err)
	}
	return count, nil
}

// Update writes the owner-editable fields.
func (r *postgresRepository) Update(ctx context.Context, row *Row) error {
	query := `
		UPDATE assistants
		SET user_instruction = $2, model_id = $3, updated_at = $4
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, row.ID, row.UserInstruction, row.ModelID, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating assistant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the assistant; its messages go with it via ON DELETE CASCADE.
func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM assistants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting assistant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
