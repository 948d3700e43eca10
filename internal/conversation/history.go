package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Turn is one entry of the short-term conversation context.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryStore keeps the last turns of each account/assistant conversation
// in a capped Redis list.
type HistoryStore struct {
	client  *redis.Client
	maxMsgs int
	ttl     time.Duration
}

func NewHistoryStore(client *redis.Client, maxMsgs int, ttl time.Duration) *HistoryStore {
	return &HistoryStore{client: client, maxMsgs: maxMsgs, ttl: ttl}
}

func historyKey(accountID, assistantID uuid.UUID) string {
	return fmt.Sprintf("chat:%s:%s", assistantID, accountID)
}

// Recent returns up to limit turns, oldest first.
func (s *HistoryStore) Recent(ctx context.Context, accountID, assistantID uuid.UUID, limit int) ([]Turn, error) {
	if limit <= 0 {
		return nil, nil
	}
	key := historyKey(accountID, assistantID)
	vals, err := s.client.LRange(ctx, key, int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}

	turns := make([]Turn, 0, len(vals))
	for _, v := range vals {
		var t Turn
		if err := json.Unmarshal([]byte(v), &t); err != nil {
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Append pushes turns and trims the list to the configured cap.
func (s *HistoryStore) Append(ctx context.Context, accountID, assistantID uuid.UUID, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}
	key := historyKey(accountID, assistantID)
	vals := make([]any, 0, len(turns))
	for _, t := range turns {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshaling turn: %w", err)
		}
		vals = append(vals, string(data))
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, vals...)
	pipe.LTrim(ctx, key, int64(-s.maxMsgs), -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec for %s: %w", key, err)
	}
	return nil
}

func (s *HistoryStore) Clear(ctx context.Context, accountID, assistantID uuid.UUID) error {
	return s.client.Del(ctx, historyKey(accountID, assistantID)).Err()
}
