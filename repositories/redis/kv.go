package redis

import (
	// Go Internal Packages
	"context"
	"time"

	// External Packages
	"github.com/redis/go-redis/v9"
)

// KVStore is the TTL key-value store behind the idempotency guard. Being
// redis-backed, duplicate requests landing on another instance still hit
// the same cache.
type KVStore struct {
	client *redis.Client
}

func NewKVStore(client *redis.Client) *KVStore {
	return &KVStore{client: client}
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (s *KVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}
