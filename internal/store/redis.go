package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/ayush/pdf-chat/backend/internal/models"
)

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

// RedisUsageStore keeps usage counters in one hash per user, usage:<userID>,
// with one field per dimension. HINCRBY makes increments atomic across sessions.
type RedisUsageStore struct {
	rdb *redis.Client
}

func NewRedisUsageStore(rdb *redis.Client) *RedisUsageStore {
	return &RedisUsageStore{rdb: rdb}
}

func usageKey(userID string) string {
	return "usage:" + userID
}

func (s *RedisUsageStore) Get(ctx context.Context, userID string) (models.UsageCounters, error) {
	fields, err := s.rdb.HGetAll(ctx, usageKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}

	out := models.UsageCounters{}
	for field, raw := range fields {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("redis usage field %s: %w", field, err)
		}
		out[models.LimitDimension(field)] = n
	}
	return out, nil
}

func (s *RedisUsageStore) Increment(ctx context.Context, userID string, dim models.LimitDimension, delta int) (int, error) {
	n, err := s.rdb.HIncrBy(ctx, usageKey(userID), string(dim), int64(delta)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis hincrby: %w", err)
	}
	return int(n), nil
}

func (s *RedisUsageStore) Set(ctx context.Context, userID string, dim models.LimitDimension, value int) error {
	if err := s.rdb.HSet(ctx, usageKey(userID), string(dim), value).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}
