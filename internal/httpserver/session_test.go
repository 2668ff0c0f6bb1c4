package httpserver

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/Skotchmaster/storefront/internal/transport"
)

func TestSessionEstablished_MergesGuestCart(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	p := testutil.SeedProduct(t, h.db, "tea", "8.50")
	c := h.guest()

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/v1/cart", transport.AddToCartRequest{ProductID: p.ID, Quantity: 2}, nil))
	require.NoError(t, h.cart.Local.For(c.session).Add(context.Background(), 404, 1))

	var skipped transport.MergeResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/v1/session/established", nil, &skipped))
	assert.True(t, skipped.Skipped)

	c.login(9, "user")

	var merged transport.MergeResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/v1/session/established", nil, &merged))
	assert.False(t, merged.Skipped)
	assert.Equal(t, 1, merged.Merged)
	assert.Equal(t, 2, merged.Count)
	require.Len(t, merged.Failed, 1)
	assert.Equal(t, int64(404), merged.Failed[0].ProductID)

	assert.Equal(t, map[int64]int{p.ID: 2}, testutil.CartRows(t, h.db, 9))

	var again transport.MergeResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/v1/session/established", nil, &again))
	assert.Zero(t, again.Merged)
	assert.Equal(t, map[int64]int{p.ID: 2}, testutil.CartRows(t, h.db, 9))
}
