package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickerKey(t *testing.T) {
	assert.Equal(t, "ticker:lobby", TickerKey("lobby"))
}

func TestTickerStoreIntegration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDRESS")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDRESS not set")
	}
	ctx := context.Background()
	rdb := NewClient(addr, "", "")
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, Ping(ctx, rdb))

	store := NewTickerStore(rdb)
	group := "test-group-" + time.Now().Format("150405.000")
	rdb.Del(ctx, globalTickerKey)
	t.Cleanup(func() { rdb.Del(ctx, TickerKey(group), globalTickerKey) })

	text, err := store.TickerText(ctx, group)
	require.NoError(t, err)
	assert.Empty(t, text)

	require.NoError(t, store.Set(ctx, "", "GOAL! 1-0", time.Minute))
	text, err = store.TickerText(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, "GOAL! 1-0", text)

	require.NoError(t, store.Set(ctx, group, "Half time 2-1", time.Minute))
	text, err = store.TickerText(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, "Half time 2-1", text)
}
