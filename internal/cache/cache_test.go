package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrLoadLoadsOnMiss(t *testing.T) {
	c := New[string, string](5 * time.Minute)

	calls := 0
	load := func(ctx context.Context) (string, error) {
		calls++
		return "value", nil
	}

	v, err := c.GetOrLoad(context.Background(), "k", load)
	require.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, calls)

	// Second call is served from cache.
	v, err = c.GetOrLoad(context.Background(), "k", load)
	require.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, calls)
}

func TestLoaderFailureStoresNothing(t *testing.T) {
	c := New[string, int](5 * time.Minute)

	_, err := c.GetOrLoad(context.Background(), "k", func(ctx context.Context) (int, error) {
		return 0, errors.New("backend down")
	})
	require.Error(t, err)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestTTLBoundary(t *testing.T) {
	c := New[string, string](300 * time.Second)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	c.SetClock(func() time.Time { return now })

	c.Set("k", "v")

	// Fresh just before TTL.
	now = base.Add(299 * time.Second)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	// Stale entry is a miss, never returned.
	now = base.Add(301 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)

	// A miss triggers a fresh synchronous load.
	calls := 0
	v, err := c.GetOrLoad(context.Background(), "k", func(ctx context.Context) (string, error) {
		calls++
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, 1, calls)
}
