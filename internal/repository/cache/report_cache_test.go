package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Требует живой Redis: REDIS_ADDR=localhost:6379 go test ./internal/repository/cache
func TestReportCacheGenerations(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR is not set")
	}

	ctx := context.Background()
	c, err := NewReportCache(ctx, Config{Addr: addr, DB: 15, TTL: 10 * time.Second})
	require.NoError(t, err)
	defer c.Close()

	type payload struct {
		Total int `json:"total"`
	}

	require.NoError(t, c.Set(ctx, "all:test", payload{Total: 7}))

	var got payload
	ok, err := c.Get(ctx, "all:test", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, got.Total)

	require.NoError(t, c.Invalidate(ctx))
	ok, err = c.Get(ctx, "all:test", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}
