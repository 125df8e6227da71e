//go:build integration

package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/mithai/pkg/ratelimit"
	"github.com/shashiranjanraj/mithai/pkg/testkit"
)

func TestRedisStoreDeniesOverLimit(t *testing.T) {
	rdb := testkit.Redis(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 10, 0, 5, 0, time.UTC)
	limiter := ratelimit.New(ratelimit.NewRedisStore(rdb), 3, time.Minute).WithClock(func() time.Time { return now })

	for i := 1; i <= 3; i++ {
		res, err := limiter.Allow(ctx, "ip:198.51.100.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "hit %d", i)
		assert.Equal(t, 3-i, res.Remaining)
	}

	res, err := limiter.Allow(ctx, "ip:198.51.100.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	key := ratelimit.Key("ip:198.51.100.4", now.UnixNano()/int64(time.Minute))
	ttl, err := rdb.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	other, err := limiter.Allow(ctx, "ip:198.51.100.5")
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	now = now.Add(time.Minute)
	res, err = limiter.Allow(ctx, "ip:198.51.100.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "next window starts fresh")
}
