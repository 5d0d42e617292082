package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	h := uint64(123)
	assert.Equal(t, "poolscope:candles:ABC-XYZ:daily:30", CandlesKey("ABC-XYZ", "daily", 30, nil))
	assert.Equal(t, "poolscope:candles:all:hourly:5:h123", CandlesKey("all", "hourly", 5, &h))
	assert.Equal(t, "poolscope:pool:ABC-XYZ", PoolDetailKey("ABC-XYZ", nil))
	assert.Equal(t, "poolscope:pool:ABC-XYZ:h123", PoolDetailKey("ABC-XYZ", &h))
	assert.Equal(t, "poolscope:metrics:price", PriceMetricsKey())
	assert.NotEqual(t, CandlesKey("a", "daily", 30, nil), CandlesKey("a", "daily", 31, nil))
}

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, found, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	value := []byte("payload")
	require.NoError(t, m.Set(ctx, "k", value, time.Minute))
	value[0] = 'X'

	got, found, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("payload"), got)

	require.NoError(t, m.Set(ctx, "k", []byte("second"), time.Minute))
	got, _, _ = m.Get(ctx, "k")
	assert.Equal(t, []byte("second"), got)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "short", []byte("v"), time.Minute))
	require.NoError(t, m.Set(ctx, "forever", []byte("v"), 0))

	now = now.Add(59 * time.Second)
	_, found, _ := m.Get(ctx, "short")
	assert.True(t, found)

	now = now.Add(time.Second)
	_, found, _ = m.Get(ctx, "short")
	assert.False(t, found)
	assert.Equal(t, 1, m.Len())

	now = now.Add(24 * time.Hour)
	_, found, _ = m.Get(ctx, "forever")
	assert.True(t, found)
}

func TestMemorySetSweepsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	m := NewMemory()
	m.now = func() time.Time { return now }

	for h := uint64(0); h < 100; h++ {
		require.NoError(t, m.Set(ctx, PoolDetailKey("ABC-XYZ", &h), []byte("v"), time.Minute))
	}
	require.NoError(t, m.Set(ctx, "forever", []byte("v"), 0))
	assert.Equal(t, 101, m.Len())

	now = now.Add(2 * time.Minute)
	require.NoError(t, m.Set(ctx, "fresh", []byte("v"), time.Minute))
	assert.Equal(t, 2, m.Len())

	_, found, _ := m.Get(ctx, "forever")
	assert.True(t, found)
}
