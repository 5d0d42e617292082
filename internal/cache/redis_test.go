package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *Redis {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	r, err := DialRedis(ctx, endpoint)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRedisGetSet(t *testing.T) {
	r := setupRedis(t)
	ctx := context.Background()

	_, found, err := r.Get(ctx, PriceMetricsKey())
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, r.Set(ctx, PriceMetricsKey(), []byte{0x81, 0xa1, 0x61}, time.Minute))
	got, found, err := r.Get(ctx, PriceMetricsKey())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte{0x81, 0xa1, 0x61}, got)
}

func TestRedisExpiry(t *testing.T) {
	r := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "poolscope:ttl", []byte("v"), time.Second))
	require.Eventually(t, func() bool {
		_, found, err := r.Get(ctx, "poolscope:ttl")
		return err == nil && !found
	}, 5*time.Second, 100*time.Millisecond)
}
