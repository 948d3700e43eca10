package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the short-lived read cache keyed by email.
//
// Every Invalidate bumps a per-email generation. A reader takes the
// generation before loading from the store and hands it to Set, which drops
// the write if an invalidation happened in between.
type Cache interface {
	Get(ctx context.Context, email string) (*Account, bool)
	Generation(ctx context.Context, email string) (uint64, error)
	Set(ctx context.Context, a *Account, generation uint64) error
	Invalidate(ctx context.Context, email string) error
}

type memoryEntry struct {
	account   *Account
	expiresAt time.Time
}

// MemoryCache is an in-process Cache with an injected clock.
type MemoryCache struct {
	mu          sync.Mutex
	ttl         time.Duration
	now         func() time.Time
	entries     map[string]memoryEntry
	generations map[string]uint64
}

func NewMemoryCache(ttl time.Duration, now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		ttl:         ttl,
		now:         now,
		entries:     make(map[string]memoryEntry),
		generations: make(map[string]uint64),
	}
}

func (c *MemoryCache) Get(_ context.Context, email string) (*Account, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[email]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, email)
		return nil, false
	}
	return e.account.clone(), true
}

func (c *MemoryCache) Generation(_ context.Context, email string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[email], nil
}

func (c *MemoryCache) Set(_ context.Context, a *Account, generation uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[a.Email] != generation {
		return nil
	}
	c.entries[a.Email] = memoryEntry{account: a.clone(), expiresAt: c.now().Add(c.ttl)}
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, email)
	c.generations[email]++
	return nil
}

// RedisCache shares cached accounts across API replicas.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(email string) string {
	return "account:" + email
}

func generationKey(email string) string {
	return "account:gen:" + email
}

// The generation key must outlive any read that started before it was
// bumped; a missing key reads as 0.
func (c *RedisCache) generationTTL() time.Duration {
	return max(2*c.ttl, time.Hour)
}

// setIfGeneration writes ARGV[2] to KEYS[1] only while KEYS[2] still holds
// the generation the reader started from.
var setIfGeneration = redis.NewScript(`
local gen = redis.call("GET", KEYS[2]) or "0"
if gen ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

func (c *RedisCache) Get(ctx context.Context, email string) (*Account, bool) {
	data, err := c.client.Get(ctx, cacheKey(email)).Bytes()
	if err != nil {
		return nil, false
	}
	var a Account
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, false
	}
	return &a, true
}

func (c *RedisCache) Generation(ctx context.Context, email string) (uint64, error) {
	gen, err := c.client.Get(ctx, generationKey(email)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading account cache generation: %w", err)
	}
	return gen, nil
}

func (c *RedisCache) Set(ctx context.Context, a *Account, generation uint64) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshaling account: %w", err)
	}
	err = setIfGeneration.Run(ctx, c.client,
		[]string{cacheKey(a.Email), generationKey(a.Email)},
		strconv.FormatUint(generation, 10), data, c.ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("caching account: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, email string) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, cacheKey(email))
	pipe.Incr(ctx, generationKey(email))
	pipe.PExpire(ctx, generationKey(email), c.generationTTL())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("invalidating account cache: %w", err)
	}
	return nil
}

// NopCache disables caching.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*Account, bool)       { return nil, false }
func (NopCache) Generation(context.Context, string) (uint64, error) { return 0, nil }
func (NopCache) Set(context.Context, *Account, uint64) error        { return nil }
func (NopCache) Invalidate(context.Context, string) error           { return nil }
