//go:build integration

package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/mithai/pkg/cache"
	"github.com/shashiranjanraj/mithai/pkg/testkit"
)

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := cache.New(testkit.Redis(t), "catalog")
	require.True(t, s.Enabled())

	var out []string
	assert.False(t, s.Get(ctx, "sweets", &out), "empty cache misses")

	require.NoError(t, s.Set(ctx, "sweets", []string{"Kaju Katli", "Peda"}, time.Minute))
	require.True(t, s.Get(ctx, "sweets", &out))
	assert.Equal(t, []string{"Kaju Katli", "Peda"}, out)

	require.NoError(t, s.Del(ctx, "sweets"))
	assert.False(t, s.Get(ctx, "sweets", &out))
}

func TestRedisRememberHitsAfterFirstLoad(t *testing.T) {
	ctx := context.Background()
	s := cache.New(testkit.Redis(t), "catalog")

	calls := 0
	load := func() ([]string, error) {
		calls++
		return []string{"Jalebi"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := cache.Remember(ctx, s, "list", time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, []string{"Jalebi"}, got)
	}
	assert.Equal(t, 1, calls)
}

func TestRedisBumpStalesVersionedKeys(t *testing.T) {
	ctx := context.Background()
	s := cache.New(testkit.Redis(t), "catalog")
	key := func() string { return fmt.Sprintf("catalog:v%d:list", s.Version(ctx, "catalog")) }

	assert.Zero(t, s.Version(ctx, "catalog"))
	require.NoError(t, s.Set(ctx, key(), 5, time.Minute))

	var n int
	require.True(t, s.Get(ctx, key(), &n))
	assert.Equal(t, 5, n)

	require.NoError(t, s.Bump(ctx, "catalog"))
	assert.EqualValues(t, 1, s.Version(ctx, "catalog"))
	assert.False(t, s.Get(ctx, key(), &n), "reads after a bump miss")
}
