package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/game-rental-service/internal/config"
	"github.com/magabrotheeeer/game-rental-service/internal/models"
)

func setupTestCache(t *testing.T) *Cache {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
		Password:     "",
		DB:           0,
		User:         "",
	}

	cache, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	return cache
}

func TestSetAndGet(t *testing.T) {
	cache := setupTestCache(t)

	plan := models.PlanMonthly
	expires := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	expected := models.PremiumStatus{
		Role:      models.RolePremium,
		Plan:      &plan,
		ExpiresAt: &expires,
		AutoRenew: true,
	}
	err := cache.Set("premium-status:uid-1", expected, time.Minute)
	require.NoError(t, err)

	var actual models.PremiumStatus
	found, err := cache.Get("premium-status:uid-1", &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected.Role, actual.Role)
	assert.Equal(t, *expected.Plan, *actual.Plan)
	assert.True(t, expected.ExpiresAt.Equal(*actual.ExpiresAt))
}

func TestGetNotFound(t *testing.T) {
	cache := setupTestCache(t)

	var out models.PremiumStatus
	found, err := cache.Get("no_such_key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidate(t *testing.T) {
	cache := setupTestCache(t)

	err := cache.Set("key", "value", time.Minute)
	require.NoError(t, err)

	err = cache.Invalidate("key")
	require.NoError(t, err)

	var out string
	found, err := cache.Get("key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}
