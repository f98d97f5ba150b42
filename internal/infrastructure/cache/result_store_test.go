package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"pay-router.backend/internal/domain/entities"
	domainrepos "pay-router.backend/internal/domain/repositories"
)

var (
	_ domainrepos.TransactionResultStore = (*RedisResultStore)(nil)
	_ domainrepos.TransactionResultStore = (*MemoryResultStore)(nil)
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisResultStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisResultStore(client, ttl), mr
}

func successResult(id string) *entities.TransactionResult {
	return &entities.TransactionResult{
		TransactionID: id,
		Success:       true,
		AcquirerUsed:  null.StringFrom("inter"),
		ExternalRef:   null.StringFrom("ext-42"),
		Attempts:      2,
	}
}

func TestRedisResultStore_SaveAndGet(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()

	missing, err := store.Get(ctx, "txn-1")
	require.NoError(t, err)
	require.Nil(t, missing)

	require.NoError(t, store.Save(ctx, successResult("txn-1")))
	require.True(t, mr.Exists("txn:result:txn-1"))

	got, err := store.Get(ctx, "txn-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, got.Success)
	require.Equal(t, "inter", got.AcquirerUsed.String)
	require.Equal(t, 2, got.Attempts)

	mr.FastForward(2 * time.Hour)
	expired, err := store.Get(ctx, "txn-1")
	require.NoError(t, err)
	require.Nil(t, expired)
}

func TestRedisResultStore_CorruptPayload(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	require.NoError(t, mr.Set("txn:result:bad", "{not-json"))

	_, err := store.Get(context.Background(), "bad")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode cached result")
}

func TestRedisResultStore_AcquireRelease(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()

	token, ok, err := store.Acquire(ctx, "txn-2", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, token)
	stored, err := mr.Get("txn:lock:txn-2")
	require.NoError(t, err)
	require.Equal(t, token, stored)

	_, ok, err = store.Acquire(ctx, "txn-2", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Release(ctx, "txn-2", token))
	_, ok, err = store.Acquire(ctx, "txn-2", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)
	_, ok, err = store.Acquire(ctx, "txn-2", time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "lock expires with its ttl")
}

func TestRedisResultStore_ReleaseKeepsForeignLock(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()

	expired, ok, err := store.Acquire(ctx, "txn-3", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	mr.FastForward(2 * time.Minute)

	current, ok, err := store.Acquire(ctx, "txn-3", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Release(ctx, "txn-3", expired))
	require.True(t, mr.Exists("txn:lock:txn-3"), "a stale holder must not drop the new lock")
	_, ok, err = store.Acquire(ctx, "txn-3", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Release(ctx, "txn-3", current))
	require.False(t, mr.Exists("txn:lock:txn-3"))
}

func TestRedisResultStore_ConnectionError(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	mr.Close()

	_, err := store.Get(context.Background(), "txn")
	require.Error(t, err)
	_, _, err = store.Acquire(context.Background(), "txn", time.Second)
	require.Error(t, err)
	require.Error(t, store.Release(context.Background(), "txn", "tok"))
}

func TestMemoryResultStore(t *testing.T) {
	store := NewMemoryResultStore(time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	got, err := store.Get(ctx, "txn")
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, store.Save(ctx, successResult("txn")))
	got, err = store.Get(ctx, "txn")
	require.NoError(t, err)
	require.Equal(t, "ext-42", got.ExternalRef.String)

	got.Attempts = 99
	again, _ := store.Get(ctx, "txn")
	require.Equal(t, 2, again.Attempts, "callers receive copies")

	token, ok, _ := store.Acquire(ctx, "txn", time.Minute)
	require.True(t, ok)
	_, ok, _ = store.Acquire(ctx, "txn", time.Minute)
	require.False(t, ok)
	require.NoError(t, store.Release(ctx, "txn", "someone-else"))
	_, ok, _ = store.Acquire(ctx, "txn", time.Minute)
	require.False(t, ok, "release with a foreign token keeps the lock")
	require.NoError(t, store.Release(ctx, "txn", token))
	_, ok, _ = store.Acquire(ctx, "txn", time.Minute)
	require.True(t, ok)

	now = now.Add(2 * time.Hour)
	got, err = store.Get(ctx, "txn")
	require.NoError(t, err)
	require.Nil(t, got)

	_, ok, _ = store.Acquire(ctx, "txn", time.Minute)
	require.True(t, ok, "stale lock is replaced")
}
