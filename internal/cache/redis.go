package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/bookedbarber/bookedbarber-api/internal/config"
)

type Cache struct {
	Rdb *redis.Client
}

func New(ctx context.Context, cfg config.RedisConfig) (*Cache, error) {
	const op = "cache.New"

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Rdb: rdb}, nil
}

func (c *Cache) Get(ctx context.Context, key string, result any) (bool, error) {
	const op = "cache.Get"

	val, err := c.Rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal([]byte(val), result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Rdb.Set(ctx, key, data, expiration).Err()
}

func (c *Cache) Invalidate(ctx context.Context, key string) error {
	return c.Rdb.Del(ctx, key).Err()
}

// Incr bumps a counter and sets the TTL on first use. Used by the login
// rate limiter; works across API instances, unlike an in-process limiter.
func (c *Cache) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	n, err := c.Rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		c.Rdb.Expire(ctx, key, window)
	}
	return n, nil
}
