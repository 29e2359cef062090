package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyCache_Enabled(t *testing.T) {
	var nilCache *IdempotencyCache
	assert.False(t, nilCache.Enabled())
	assert.False(t, NewIdempotencyCache(nil, time.Hour).Enabled())

	db, _ := redismock.NewClientMock()
	assert.True(t, NewIdempotencyCache(db, time.Hour).Enabled())
}

func TestIdempotencyCache_Key(t *testing.T) {
	c := NewIdempotencyCache(nil, time.Hour)
	assert.Equal(t, "idem:debit:42:abc", c.Key("debit", 42, "abc"))
}

func TestIdempotencyCache_Begin(t *testing.T) {
	ctx := context.Background()
	ttl := 24 * time.Hour
	key := "idem:credit:1:k1"

	t.Run("first request claims the key", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		c := NewIdempotencyCache(db, ttl)

		mock.ExpectSetNX(key, pendingMarker, defaultPendingTTL).SetVal(true)

		stored, err := c.Begin(ctx, key)
		assert.NoError(t, err)
		assert.Nil(t, stored)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("completed request is replayed", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		c := NewIdempotencyCache(db, ttl)

		mock.ExpectSetNX(key, pendingMarker, defaultPendingTTL).SetVal(false)
		mock.ExpectGet(key).SetVal(`{"status":200,"body":{"message":"Points added","newBalance":1050}}`)

		stored, err := c.Begin(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, 200, stored.Status)
		assert.JSONEq(t, `{"message":"Points added","newBalance":1050}`, string(stored.Body))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("request still in flight", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		c := NewIdempotencyCache(db, ttl)

		mock.ExpectSetNX(key, pendingMarker, defaultPendingTTL).SetVal(false)
		mock.ExpectGet(key).SetVal(pendingMarker)

		_, err := c.Begin(ctx, key)
		assert.ErrorIs(t, err, ErrRequestInFlight)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("claim expired between calls", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		c := NewIdempotencyCache(db, ttl)

		mock.ExpectSetNX(key, pendingMarker, defaultPendingTTL).SetVal(false)
		mock.ExpectGet(key).SetErr(redis.Nil)

		_, err := c.Begin(ctx, key)
		assert.ErrorIs(t, err, ErrRequestInFlight)
	})

	t.Run("redis down", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		c := NewIdempotencyCache(db, ttl)

		mock.ExpectSetNX(key, pendingMarker, defaultPendingTTL).SetErr(errors.New("connection refused"))

		_, err := c.Begin(ctx, key)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrRequestInFlight)
	})
}

func TestIdempotencyCache_PendingTTL(t *testing.T) {
	ctx := context.Background()
	key := "idem:credit:1:k3"

	t.Run("claim uses the pending ttl", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		c := NewIdempotencyCache(db, 24*time.Hour, WithPendingTTL(time.Minute))

		mock.ExpectSetNX(key, pendingMarker, time.Minute).SetVal(true)

		_, err := c.Begin(ctx, key)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("claim never outlives the response ttl", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		c := NewIdempotencyCache(db, 30*time.Second)

		mock.ExpectSetNX(key, pendingMarker, 30*time.Second).SetVal(true)

		_, err := c.Begin(ctx, key)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-positive pending ttl keeps the default", func(t *testing.T) {
		c := NewIdempotencyCache(nil, time.Hour, WithPendingTTL(0))
		assert.Equal(t, defaultPendingTTL, c.pendingTTL)
	})
}

func TestIdempotencyCache_CompleteAndRelease(t *testing.T) {
	ctx := context.Background()
	ttl := time.Hour
	key := "idem:debit:1:k2"

	db, mock := redismock.NewClientMock()
	c := NewIdempotencyCache(db, ttl)

	mock.ExpectSet(key, `{"status":200,"body":{"newBalance":5}}`, ttl).SetVal("OK")
	mock.ExpectDel(key).SetVal(1)

	err := c.Complete(ctx, key, StoredResponse{Status: 200, Body: []byte(`{"newBalance":5}`)})
	assert.NoError(t, err)
	assert.NoError(t, c.Release(ctx, key))
	assert.NoError(t, mock.ExpectationsWereMet())
}
