package store

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get when no record exists under the key.
var ErrKeyNotFound = errors.New("key not found")

// KV is the persistence primitive the engine is built on. It offers no
// transactions and no locking; callers read-modify-write whole records and
// accept that concurrent writers on the same key can interleave.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	GetByPrefix(ctx context.Context, prefix string) (map[string][]byte, error)
	Delete(ctx context.Context, key string) error
	Close() error
}
