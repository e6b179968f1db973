// ABOUTME: Tests for decision caches
// ABOUTME: Covers the memory cache's eviction, sweep, and clear, plus Redis when REDIS_ADDR is set

package rbac

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "rbac:emp-1:comp-1:leave:approve", CacheKey("emp-1", "comp-1", "leave", "approve"))
}

func TestMemoryCache_SetGetClear(t *testing.T) {
	c := NewMemoryCache(10)
	defer c.Close()
	ctx := context.Background()

	d := Decision{Allowed: true, ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, c.Set(ctx, "x", d))

	got, ok, err := c.Get(ctx, "x")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, d, got)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Clear(ctx))
	_, ok, _ = c.Get(ctx, "x")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_EvictsOldestWrite(t *testing.T) {
	c := NewMemoryCache(3)
	defer c.Close()
	ctx := context.Background()
	exp := time.Now().Add(time.Minute)

	for i := range 3 {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("k%d", i), Decision{ExpiresAt: exp}))
	}
	// rewriting k0 makes k1 the oldest
	require.NoError(t, c.Set(ctx, "k0", Decision{Allowed: true, ExpiresAt: exp}))
	require.NoError(t, c.Set(ctx, "k3", Decision{ExpiresAt: exp}))

	_, ok, _ := c.Get(ctx, "k1")
	assert.False(t, ok)
	d, ok, _ := c.Get(ctx, "k0")
	assert.True(t, ok)
	assert.True(t, d.Allowed)
	assert.Equal(t, 3, c.Len())
}

func TestMemoryCache_SweepDropsExpired(t *testing.T) {
	c := NewMemoryCache(10)
	defer c.Close()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "expired", Decision{ExpiresAt: now}))
	require.NoError(t, c.Set(ctx, "live", Decision{ExpiresAt: now.Add(time.Second)}))

	c.sweep()

	_, ok, _ := c.Get(ctx, "expired")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "live")
	assert.True(t, ok)
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	c := NewMemoryCache(0)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	assert.Equal(t, DefaultMaxEntries, c.maxSize)
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	c := NewRedisCache(client)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Clear(ctx))

	key := CacheKey("emp-redis", "comp-redis", "leave", "read")
	d := Decision{Allowed: true, ExpiresAt: time.Now().Add(time.Minute).UTC().Truncate(time.Millisecond)}
	require.NoError(t, c.Set(ctx, key, d))

	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Allowed)
	assert.True(t, d.ExpiresAt.Equal(got.ExpiresAt))

	ttl, err := client.TTL(ctx, redisKeyPrefix+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Clear(ctx))
	_, ok, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	// already expired decisions are not written
	require.NoError(t, c.Set(ctx, key, Decision{ExpiresAt: time.Now().Add(-time.Second)}))
	_, ok, _ = c.Get(ctx, key)
	assert.False(t, ok)
}

func TestRedisCache_TTLFollowsResolverClock(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	c := NewRedisCache(client)
	defer c.Close()

	fixed := time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC)
	NewResolver(nil, WithCache(c), WithNow(func() time.Time { return fixed }), WithTTL(30*time.Second))

	assert.Equal(t, 30*time.Second, c.ttl(Decision{ExpiresAt: fixed.Add(30 * time.Second)}))
	assert.LessOrEqual(t, c.ttl(Decision{ExpiresAt: fixed}), time.Duration(0))
}
