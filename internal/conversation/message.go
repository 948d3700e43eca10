package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Message is a persisted chat message.
type Message struct {
	ID          uuid.UUID `json:"id"`
	AccountID   uuid.UUID `json:"account_id"`
	AssistantID uuid.UUID `json:"assistant_id"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	Model       string    `json:"model,omitempty"`
	TokensUsed  int64     `json:"tokens_used"`
	CreatedAt   time.Time `json:"created_at"`
}

type MessageRepository interface {
	SaveTurn(ctx context.Context, user, reply *Message) error
	// ListByAssistant returns the latest limit messages, oldest first.
	ListByAssistant(ctx context.Context, accountID, assistantID uuid.UUID, limit int) ([]*Message, error)
	DeleteByAssistant(ctx context.Context, accountID, assistantID uuid.UUID) (int64, error)
	// Recent returns the account's latest messages across assistants, newest first.
	Recent(ctx context.Context, accountID uuid.UUID, limit int) ([]*Message, error)
}

type postgresMessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &postgresMessageRepository{pool: pool}
}

const messageColumns = `id, account_id, assistant_id, role, content, model, tokens_used, created_at`

func (r *postgresMessageRepository) SaveTurn(ctx context.Context, user, reply *Message) error {
	query := `
		INSERT INTO messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, m := range []*Message{user, reply} {
			_, err := tx.Exec(ctx, query,
				m.ID, m.AccountID, m.AssistantID, m.Role, m.Content, m.Model, m.TokensUsed, m.CreatedAt)
			if err != nil {
				return fmt.Errorf("inserting %s message: %w", m.Role, err)
			}
		}
		return nil
	})
}

func (r *postgresMessageRepository) ListByAssistant(ctx context.Context, accountID, assistantID uuid.UUID, limit int) ([]*Message, error) {
	query := `
		SELECT ` + messageColumns + ` FROM (
			SELECT ` + messageColumns + `
			FROM messages
			WHERE account_id = $1 AND assistant_id = $2
			ORDER BY created_at DESC
			LIMIT $3
		) latest
		ORDER BY created_at ASC`

	return r.query(ctx, query, accountID, assistantID, limit)
}

func (r *postgresMessageRepository) DeleteByAssistant(ctx context.Context, accountID, assistantID uuid.UUID) (int64, error) {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM messages WHERE account_id = $1 AND assistant_id = $2`, accountID, assistantID)
	if err != nil {
		return 0, fmt.Errorf("deleting messages: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *postgresMessageRepository) Recent(ctx context.Context, accountID uuid.UUID, limit int) ([]*Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	return r.query(ctx, query, accountID, limit)
}

func (r *postgresMessageRepository) query(ctx context.Context, query string, args ...any) ([]*Message, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	out := []*Message{}
	for rows.Next() {
		m := &Message{}
		if err := rows.Scan(&m.ID, &m.AccountID, &m.AssistantID, &m.Role, &m.Content,
			&m.Model, &m.TokensUsed, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
