package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces stakeflow entries in a shared Redis instance.
const keyPrefix = "stakeflow:"

// RedisCache is a Cache backed by Redis (or Valkey). Connection errors
// degrade to cache misses on read so an unavailable Redis never takes the
// ticket views down.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to the given Redis address and verifies it responds.
func NewRedisCache(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisCache{client: client}, nil
}

// Get returns the stored value. Redis handles expiry server-side; any error
// is treated as a miss.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return value, true
}

// Set stores value under key for ttl. A non-positive ttl removes the key,
// matching the memory cache (go-redis treats zero expiration as "keep
// forever").
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return r.client.Del(ctx, keyPrefix+key).Err()
	}
	return r.client.Set(ctx, keyPrefix+key, value, ttl).Err()
}

// Invalidate removes a single entry.
func (r *RedisCache) Invalidate(ctx context.Context, key string) error {
	return r.client.Del(ctx, keyPrefix+key).Err()
}

// Clear removes all stakeflow entries.
func (r *RedisCache) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close releases the underlying client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
