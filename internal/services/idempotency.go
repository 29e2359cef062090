package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const pendingMarker = "pending"

// defaultPendingTTL bounds how long a claim outlives a request that never finished.
const defaultPendingTTL = 2 * time.Minute

// ErrRequestInFlight another request with the same idempotency key has not finished yet
var ErrRequestInFlight = errors.New("request with this idempotency key is in progress")

// StoredResponse is a replayable HTTP response.
type StoredResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// IdempotencyCache remembers successful ledger responses per Idempotency-Key in Redis.
// A nil *IdempotencyCache, or one without a client, is disabled.
type IdempotencyCache struct {
	redis      *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
}

// IdempotencyOption configures an IdempotencyCache.
type IdempotencyOption func(*IdempotencyCache)

// WithPendingTTL sets how long an unfinished claim blocks retries.
func WithPendingTTL(d time.Duration) IdempotencyOption {
	return func(c *IdempotencyCache) {
		if d > 0 {
			c.pendingTTL = d
		}
	}
}

// NewIdempotencyCache keeps completed responses for ttl. Claims of requests in
// progress expire after the pending TTL, never later than ttl.
func NewIdempotencyCache(client *redis.Client, ttl time.Duration, opts ...IdempotencyOption) *IdempotencyCache {
	c := &IdempotencyCache{redis: client, ttl: ttl, pendingTTL: defaultPendingTTL}
	for _, opt := range opts {
		opt(c)
	}
	if ttl > 0 && c.pendingTTL > ttl {
		c.pendingTTL = ttl
	}
	return c
}

// Enabled reports whether responses can be cached.
func (c *IdempotencyCache) Enabled() bool {
	return c != nil && c.redis != nil
}

// Key builds the Redis key for an operation on an account.
func (c *IdempotencyCache) Key(op string, accountID int64, key string) string {
	return fmt.Sprintf("idem:%s:%d:%s", op, accountID, key)
}

// Begin claims key. It returns a stored response when the request already
// completed, ErrRequestInFlight while another request holds the claim, and
// (nil, nil) when the caller now owns the key and must Complete or Release it.
func (c *IdempotencyCache) Begin(ctx context.Context, key string) (*StoredResponse, error) {
	claimed, err := c.redis.SetNX(ctx, key, pendingMarker, c.pendingTTL).Result()
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, nil
	}

	raw, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		// expired between SETNX and GET
		return nil, ErrRequestInFlight
	}
	if err != nil {
		return nil, err
	}
	if raw == pendingMarker {
		return nil, ErrRequestInFlight
	}

	var stored StoredResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// Complete stores the response for key.
func (c *IdempotencyCache) Complete(ctx context.Context, key string, resp StoredResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, key, string(data), c.ttl).Err()
}

// Release drops the claim so the request can be retried.
func (c *IdempotencyCache) Release(ctx context.Context, key string) error {
	return c.redis.Del(ctx, key).Err()
}
