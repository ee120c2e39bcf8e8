package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestPebble(t *testing.T) *PebbleStore {
	t.Helper()

	kv, err := OpenPebble(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	return kv
}

func TestPebbleStoreRoundTrip(t *testing.T) {
	kv := newTestPebble(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "message:m1", []byte(`{"id":"m1"}`)))

	value, err := kv.Get(ctx, "message:m1")
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"m1"}`, string(value))

	_, err = kv.Get(ctx, "message:nope")
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestPebbleStoreDelete(t *testing.T) {
	kv := newTestPebble(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "poll:p1", []byte("x")))
	require.NoError(t, kv.Delete(ctx, "poll:p1"))

	_, err := kv.Get(ctx, "poll:p1")
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestPebbleStoreGetByPrefix(t *testing.T) {
	kv := newTestPebble(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "dm:u1:u2", []byte("a")))
	require.NoError(t, kv.Set(ctx, "dm:u1:u3", []byte("b")))
	require.NoError(t, kv.Set(ctx, "dm_messages:u1:u2", []byte("c")))
	require.NoError(t, kv.Set(ctx, "user:u1", []byte("d")))

	result, err := kv.GetByPrefix(ctx, "dm:")
	require.NoError(t, err)
	require.Len(t, result, 2)
	require.Equal(t, []byte("a"), result["dm:u1:u2"])
	require.Equal(t, []byte("b"), result["dm:u1:u3"])
}

func TestUpperBound(t *testing.T) {
	require.Equal(t, []byte("room;"), upperBound([]byte("room:")))
	require.Nil(t, upperBound([]byte{0xff, 0xff}))
}
