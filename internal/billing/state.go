package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// State is the subscription lifecycle position of an account.
type State string

const (
	StateFree           State = "FREE"
	StatePendingUpgrade State = "PENDING_UPGRADE"
	StatePro            State = "PRO"
	StatePendingCancel  State = "PENDING_CANCEL"
)

const (
	pendingTTL = time.Hour
	cancelTTL  = 2 * time.Minute
	lockTTL    = 30 * time.Second
)

// StateStore keeps short-lived lifecycle markers in Redis. The ledger stays
// the source of truth for tier.
type StateStore struct {
	client *redis.Client
}

func NewStateStore(client *redis.Client) *StateStore {
	return &StateStore{client: client}
}

func pendingKey(accountID uuid.UUID) string { return "billing:pending:" + accountID.String() }
func cancelKey(accountID uuid.UUID) string  { return "billing:cancelling:" + accountID.String() }
func lockKey(accountID uuid.UUID) string    { return "billing:lock:" + accountID.String() }

// Lock takes the per-account billing lock. The returned func releases it
// only if the token still matches.
func (s *StateStore) Lock(ctx context.Context, accountID uuid.UUID) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, lockKey(accountID), token, lockTTL).Result()
	if err != nil {
		return func() {}, false, fmt.Errorf("acquiring billing lock: %w", err)
	}
	if !ok {
		return func() {}, false, nil
	}
	release := func() {
		releaseScript.Run(context.WithoutCancel(ctx), s.client, []string{lockKey(accountID)}, token)
	}
	return release, true, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func (s *StateStore) SetPending(ctx context.Context, accountID uuid.UUID, subscriptionID string) error {
	return s.client.Set(ctx, pendingKey(accountID), subscriptionID, pendingTTL).Err()
}

// Pending returns the subscription id awaiting payment, or "" if none.
func (s *StateStore) Pending(ctx context.Context, accountID uuid.UUID) (string, error) {
	v, err := s.client.Get(ctx, pendingKey(accountID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading pending subscription: %w", err)
	}
	return v, nil
}

func (s *StateStore) ClearPending(ctx context.Context, accountID uuid.UUID) error {
	return s.client.Del(ctx, pendingKey(accountID)).Err()
}

func (s *StateStore) MarkCancelling(ctx context.Context, accountID uuid.UUID) error {
	return s.client.Set(ctx, cancelKey(accountID), "1", cancelTTL).Err()
}

func (s *StateStore) Cancelling(ctx context.Context, accountID uuid.UUID) (bool, error) {
	n, err := s.client.Exists(ctx, cancelKey(accountID)).Result()
	if err != nil {
		return false, fmt.Errorf("reading cancel marker: %w", err)
	}
	return n > 0, nil
}

func (s *StateStore) ClearCancelling(ctx context.Context, accountID uuid.UUID) error {
	return s.client.Del(ctx, cancelKey(accountID)).Err()
}
