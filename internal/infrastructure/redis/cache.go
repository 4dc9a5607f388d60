package redis

import (
	"context"
	"time"

	"github.com/avatarctic/voter-email/go/internal/core/ports"
	"github.com/go-redis/redis/v8"
)

// RedisCache implements ports.Cache on top of any redis.Cmdable.
type RedisCache struct {
	r      redis.Cmdable
	prefix string
}

// NewRedisCache creates a cache whose keys are namespaced under prefix.
func NewRedisCache(r redis.Cmdable, prefix string) *RedisCache {
	return &RedisCache{r: r, prefix: prefix}
}

func (c *RedisCache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.r.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.r.Set(ctx, c.key(key), value, ttl).Err()
}

// Delete removes the key; a missing key is not an error.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.r.Del(ctx, c.key(key)).Err()
}

var _ ports.Cache = (*RedisCache)(nil)
