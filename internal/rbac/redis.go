// ABOUTME: Redis-backed decision cache shared between console processes
// ABOUTME: Entries carry a native TTL matching their expiry and are cleared by prefix scan

package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "hris:"

// RedisCache stores decisions in Redis under "hris:" + CacheKey.
type RedisCache struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, now: time.Now}
}

// SetClock sets the clock that key TTLs are measured against. The
// resolver passes its own clock so TTLs agree with decision expiry.
func (c *RedisCache) SetClock(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

// ttl is how long the key for d should live.
func (c *RedisCache) ttl(d Decision) time.Duration {
	return d.ExpiresAt.Sub(c.now())
}

// DialRedis connects using a redis:// URL and pings the server.
func DialRedis(ctx context.Context, rawURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedisCache(client), nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (Decision, bool, error) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Decision{}, false, nil
	}
	if err != nil {
		return Decision{}, false, fmt.Errorf("reading decision: %w", err)
	}

	var d Decision
	if err := json.Unmarshal(raw, &d); err != nil {
		return Decision{}, false, fmt.Errorf("decoding decision: %w", err)
	}
	return d, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, d Decision) error {
	ttl := c.ttl(d)
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding decision: %w", err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("writing decision: %w", err)
	}
	return nil
}

// Clear deletes every decision key found by SCAN.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"rbac:*", 256).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 256 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("clearing decisions: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning decisions: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("clearing decisions: %w", err)
		}
	}
	return nil
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
