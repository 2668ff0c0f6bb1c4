package localcart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/cart"
)

func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedis(client, time.Hour), mr
}

func backends(t *testing.T) map[string]Store {
	r, _ := setupTestRedis(t)
	return map[string]Store{
		"memory": NewMemory(),
		"redis":  r,
	}
}

func quantities(t *testing.T, s cart.EntryStore) map[int64]int {
	t.Helper()
	entries, err := s.Entries(context.Background())
	require.NoError(t, err)

	out := make(map[int64]int, len(entries))
	for _, e := range entries {
		out[e.ProductID] = e.Quantity
	}
	return out
}

func TestLocalCart_AddAccumulates(t *testing.T) {
	for name, store := range backends(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := store.For("sess-1")

			require.NoError(t, c.Add(ctx, 1, 2))
			require.NoError(t, c.Add(ctx, 1, 3))
			require.NoError(t, c.Add(ctx, 2, 1))

			assert.Equal(t, map[int64]int{1: 5, 2: 1}, quantities(t, c))
		})
	}
}

func TestLocalCart_AddDropsNonPositive(t *testing.T) {
	for name, store := range backends(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := store.For("sess-1")

			require.NoError(t, c.Add(ctx, 1, 2))
			require.NoError(t, c.Add(ctx, 1, -2))
			require.NoError(t, c.Add(ctx, 3, -1))

			assert.Empty(t, quantities(t, c))
		})
	}
}

func TestLocalCart_SetQuantityAndRemove(t *testing.T) {
	for name, store := range backends(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := store.For("sess-1")

			require.NoError(t, c.Add(ctx, 1, 2))
			require.NoError(t, c.SetQuantity(ctx, 1, 7))
			assert.Equal(t, map[int64]int{1: 7}, quantities(t, c))

			require.NoError(t, c.SetQuantity(ctx, 1, 0))
			require.NoError(t, c.SetQuantity(ctx, 1, 0))
			assert.Empty(t, quantities(t, c))

			require.NoError(t, c.Add(ctx, 2, 1))
			require.NoError(t, c.Remove(ctx, 2))
			require.NoError(t, c.Remove(ctx, 2))
			assert.Empty(t, quantities(t, c))
		})
	}
}

func TestLocalCart_SetQuantityMissingEntry(t *testing.T) {
	for name, store := range backends(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := store.For("sess-1")

			require.NoError(t, c.Add(ctx, 2, 1))
			assert.ErrorIs(t, c.SetQuantity(ctx, 1, 4), cart.ErrEntryNotFound)
			require.NoError(t, c.SetQuantity(ctx, 1, 0))

			assert.Equal(t, map[int64]int{2: 1}, quantities(t, c))
		})
	}
}

func TestLocalCart_DrainEmptiesOnlyOwnSession(t *testing.T) {
	for name, store := range backends(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			mine := store.For("sess-1")
			other := store.For("sess-2")

			require.NoError(t, mine.Add(ctx, 1, 2))
			require.NoError(t, mine.Add(ctx, 4, 1))
			require.NoError(t, other.Add(ctx, 9, 1))

			drained, err := mine.Drain(ctx)
			require.NoError(t, err)
			require.Len(t, drained, 2)
			assert.Equal(t, int64(1), drained[0].ProductID)
			assert.Equal(t, 2, drained[0].Quantity)
			assert.False(t, drained[0].UpdatedAt.IsZero())

			again, err := mine.Drain(ctx)
			require.NoError(t, err)
			assert.Empty(t, again)

			assert.Equal(t, map[int64]int{9: 1}, quantities(t, other))
		})
	}
}

func TestLocalCart_SessionsShareByToken(t *testing.T) {
	for name, store := range backends(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.For("sess-1").Add(ctx, 1, 1))
			require.NoError(t, store.For("sess-1").Add(ctx, 1, 1))

			assert.Equal(t, map[int64]int{1: 2}, quantities(t, store.For("sess-1")))
		})
	}
}

func TestRedis_WritesRefreshTTL(t *testing.T) {
	r, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, r.For("sess-1").Add(ctx, 1, 1))
	assert.Equal(t, time.Hour, mr.TTL(cartKey("sess-1")))

	mr.FastForward(30 * time.Minute)
	require.NoError(t, r.For("sess-1").SetQuantity(ctx, 1, 3))
	assert.Equal(t, time.Hour, mr.TTL(cartKey("sess-1")))

	mr.FastForward(2 * time.Hour)
	assert.Empty(t, quantities(t, r.For("sess-1")))
}

func TestRedis_ConnectionFailure(t *testing.T) {
	r, mr := setupTestRedis(t)
	mr.Close()

	err := r.For("sess-1").Add(context.Background(), 1, 1)
	require.Error(t, err)
}
