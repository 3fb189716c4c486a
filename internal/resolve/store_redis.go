package resolve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces cache entries away from the bare counter keys.
const keyPrefix = "key:"

// RedisStore is the production cache tier.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore wraps a redis client as a CacheStore.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func (s *RedisStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Increment(ctx context.Context, counterKey string) (int64, error) {
	n, err := s.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}
	return n, nil
}

// Invalidate drops a cache entry so the next resolve refreshes from an
// authoritative tier. Used by explicit update paths.
func (s *RedisStore) Invalidate(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}
