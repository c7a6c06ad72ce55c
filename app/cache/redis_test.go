package cache

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionKey(t *testing.T) {
	store := newOptionStore(nil, "")
	assert.Equal(t, "sitemap:option:sitemap_pending_years", store.OptionKey("sitemap_pending_years"))

	store = newOptionStore(nil, "blog")
	assert.Equal(t, "blog:option:x", store.OptionKey("x"))
}

// TestOptionStoreRoundTrip needs a live server, e.g. REDIS_ADDR=localhost:6379.
func TestOptionStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	store, err := NewOptionStore(ctx, Options{Addr: addr, Prefix: "sitemap-test"})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(ctx, "flag", "1"))

	value, ok, err := store.Get(ctx, "flag")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", value)

	require.NoError(t, store.Delete(ctx, "flag"))

	_, ok, err = store.Get(ctx, "flag")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, "healthy", store.Health(ctx)["status"])
}
