package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestFetchJSONPopulatesAndReuses(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	calls := 0
	loader := func(ctx context.Context) (any, error) {
		calls++
		return map[string]string{"name": "Maize Flour"}, nil
	}

	key, err := cache.BuildKey(ctx, "masterdata", "products", "x")
	require.NoError(t, err)

	var first map[string]string
	require.NoError(t, cache.FetchJSON(ctx, key, &first, loader))
	var second map[string]string
	require.NoError(t, cache.FetchJSON(ctx, key, &second, loader))

	require.Equal(t, 1, calls)
	require.Equal(t, first, second)
}

func TestBumpRotatesKeys(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	before, err := cache.BuildKey(ctx, "masterdata", "products", "x")
	require.NoError(t, err)
	require.NoError(t, cache.Bump(ctx))
	after, err := cache.BuildKey(ctx, "masterdata", "products", "x")
	require.NoError(t, err)

	require.NotEqual(t, before, after)
}

func TestNilCacheFallsThrough(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	calls := 0
	var out map[string]int
	err := cache.FetchJSON(ctx, "any", &out, func(ctx context.Context) (any, error) {
		calls++
		return map[string]int{"n": 7}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, 7, out["n"])
}

func TestNormalizeFilters(t *testing.T) {
	f := ListFilters{Page: -3, PerPage: 1000}.Normalize()
	require.Equal(t, 1, f.Page)
	require.Equal(t, 100, f.PerPage)
}
