package store

import (
	"context"
	"errors"

	"github.com/cockroachdb/pebble"
)

// PebbleStore implements KV on an embedded Pebble database for single-node
// deployments without a Redis instance. Prefix reads use a bounded iterator
// over the ordered keyspace.
type PebbleStore struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) a Pebble database at the given path.
func OpenPebble(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Get(_ context.Context, key string) ([]byte, error) {
	value, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *PebbleStore) Set(_ context.Context, key string, value []byte) error {
	return s.db.Set([]byte(key), value, pebble.Sync)
}

func (s *PebbleStore) GetByPrefix(_ context.Context, prefix string) (map[string][]byte, error) {
	lower := []byte(prefix)
	upper := upperBound(lower)

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	result := make(map[string][]byte)
	for iter.First(); iter.Valid(); iter.Next() {
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		result[string(iter.Key())] = value
	}

	return result, iter.Error()
}

func (s *PebbleStore) Delete(_ context.Context, key string) error {
	return s.db.Delete([]byte(key), pebble.Sync)
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}

// upperBound returns the smallest key strictly greater than every key with
// the given prefix, or nil when the prefix is all 0xff bytes.
func upperBound(prefix []byte) []byte {
	out := make([]byte, len(prefix))
	copy(out, prefix)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] < 0xff {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}
