package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the Store contract with Redis, for multi-node deployments
// where every worker must observe the same failure streaks. Works with both
// single-node and clustered clients through redis.UniversalClient.
type RedisStore struct {
	db redis.UniversalClient
}

// NewRedisStore wraps an established Redis client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{db: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.db.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.db.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return s.db.SetNX(ctx, key, value, ttl).Result()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.db.Del(ctx, key).Err()
}
