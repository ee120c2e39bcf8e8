package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const scanBatchSize = 200

// RedisStore implements KV on top of a Redis client. Prefix reads use SCAN
// with a glob match rather than KEYS so large keyspaces do not block the
// server.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) GetByPrefix(ctx context.Context, prefix string) (map[string][]byte, error) {
	result := make(map[string][]byte)

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, prefix+"*", scanBatchSize).Result()
		if err != nil {
			return nil, err
		}

		for _, key := range keys {
			value, err := s.client.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				// Deleted between SCAN and GET.
				continue
			}
			if err != nil {
				return nil, err
			}
			result[key] = value
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return result, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
