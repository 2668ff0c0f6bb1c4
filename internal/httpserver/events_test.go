package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/bus"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

type sseEvent struct {
	name string
	data bus.Event
}

func readEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()

	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")

		switch {
		case line == "" && ev.name != "":
			return ev
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev.data))
		}
	}
}

func TestEvents_StreamsBadgeUpdates(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	p := testutil.SeedProduct(t, h.db, "tea", "8.50")
	c := h.guest()

	require.NoError(t, h.cart.Local.For(c.session).Add(context.Background(), p.ID, 1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := c.request(http.MethodGet, "/api/v1/cart/events", nil).WithContext(ctx)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)

	first := readEvent(t, r)
	assert.Equal(t, "authoritative", first.name)
	assert.Equal(t, 1, first.data.Count)

	_, err = h.cart.AddToCart(context.Background(), c.sess(), p.ID, 2)
	require.NoError(t, err)

	opt := readEvent(t, r)
	assert.Equal(t, "optimistic", opt.name)
	assert.Equal(t, 2, opt.data.Delta)

	done := readEvent(t, r)
	assert.Equal(t, "authoritative", done.name)
	assert.Equal(t, opt.data.Action, done.data.Action)
	assert.Equal(t, 3, done.data.Count)
}
