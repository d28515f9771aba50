package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"geminiproxy/internal/config"
)

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	ctx := context.Background()
	require.ErrorIs(t, c.Set(ctx, "k", "v", time.Second), errNotInitialized)
	_, err := c.Get(ctx, "k")
	require.ErrorIs(t, err, errNotInitialized)
	require.ErrorIs(t, c.Del(ctx, "k"), errNotInitialized)
	_, err = c.Incr(ctx, "k")
	require.ErrorIs(t, err, errNotInitialized)
	require.ErrorIs(t, c.Ping(ctx), errNotInitialized)
	require.NoError(t, c.Close())
}

func TestNewRedisClientRequiresAddr(t *testing.T) {
	_, err := NewRedisClient(config.RedisConfig{})
	require.Error(t, err)
}

func TestClientRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis-backed tests")
	}
	client, err := NewRedisClient(config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Set(ctx, "geminiproxy:test", "value", time.Minute))
	got, err := client.Get(ctx, "geminiproxy:test")
	require.NoError(t, err)
	require.Equal(t, "value", string(got))

	require.NoError(t, client.Del(ctx, "geminiproxy:test"))
	_, err = client.Get(ctx, "geminiproxy:test")
	require.True(t, errors.Is(err, ErrCacheMiss))

	defer client.Del(ctx, "geminiproxy:counter")
	n, err := client.Incr(ctx, "geminiproxy:counter")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}
