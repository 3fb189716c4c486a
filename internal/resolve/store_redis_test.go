//go:build integration

package resolve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issuer-agent/pkg/testutil/containers"
)

func TestRedisStore(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	store := NewRedisStore(rc.Client)

	t.Run("set and get with ttl", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		require.NoError(t, store.SetWithTTL(ctx, "profile:addr-1", []byte("v1"), time.Minute))

		got, ok, err := store.Get(ctx, "profile:addr-1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte("v1"), got)
	})

	t.Run("missing key", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		_, ok, err := store.Get(ctx, "profile:addr-nowhere")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("expired key is a miss", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		require.NoError(t, store.SetWithTTL(ctx, "profile:addr-1", []byte("v1"), 50*time.Millisecond))
		time.Sleep(100 * time.Millisecond)

		_, ok, err := store.Get(ctx, "profile:addr-1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("counters increment", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		for range 2 {
			_, err := store.Increment(ctx, "cache_hits")
			require.NoError(t, err)
		}
		n, err := store.Increment(ctx, "cache_misses")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		hits, err := rc.Client.Get(ctx, "cache_hits").Int()
		require.NoError(t, err)
		assert.Equal(t, 2, hits)
	})

	t.Run("invalidate", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		require.NoError(t, store.SetWithTTL(ctx, "profile:addr-1", []byte("v1"), time.Minute))
		require.NoError(t, store.Invalidate(ctx, "profile:addr-1"))

		_, ok, err := store.Get(ctx, "profile:addr-1")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
