package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the record in a single Redis hash.
//
//	Key layout: <prefix>:account
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a [RedisStore] backed by the given client. prefix sets the key
// namespace so several hosts can share one Redis.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ga"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
	}
}

func (s *RedisStore) key() string {
	return s.prefix + ":account"
}

// ReadAll fetches the record.
//
//	Performance: 1 Redis HGETALL.
func (s *RedisStore) ReadAll(ctx context.Context) (Fields, error) {
	values, err := s.redis.HGetAll(ctx, s.key()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Fields(values), nil
}

// WriteAll replaces the record inside one MULTI/EXEC transaction so a concurrent
// HGETALL never sees a partially written hash.
//
//	Performance: 1 round-trip (DEL + HSET in a transaction).
func (s *RedisStore) WriteAll(ctx context.Context, fields Fields) error {
	key := s.key()
	values := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		values = append(values, k, v)
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.HSet(ctx, key, values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
