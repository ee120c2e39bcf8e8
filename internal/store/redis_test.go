package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *RedisStore {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	kv := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "user:u1", []byte(`{"id":"u1"}`)))

	value, err := kv.Get(ctx, "user:u1")
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"u1"}`, string(value))
}

func TestRedisStoreGetMissingKey(t *testing.T) {
	kv := newTestStore(t)

	_, err := kv.Get(context.Background(), "user:nope")
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisStoreDelete(t *testing.T) {
	kv := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "room:r1", []byte("x")))
	require.NoError(t, kv.Delete(ctx, "room:r1"))

	_, err := kv.Get(ctx, "room:r1")
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisStoreGetByPrefix(t *testing.T) {
	kv := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "room:r1", []byte("a")))
	require.NoError(t, kv.Set(ctx, "room:r2", []byte("b")))
	require.NoError(t, kv.Set(ctx, "room_messages:r1", []byte("c")))
	require.NoError(t, kv.Set(ctx, "user:u1", []byte("d")))

	result, err := kv.GetByPrefix(ctx, "room:")
	require.NoError(t, err)
	require.Len(t, result, 2)
	require.Equal(t, []byte("a"), result["room:r1"])
	require.Equal(t, []byte("b"), result["room:r2"])
}
