// Package localcart keeps carts for sessions that have no durable identity.
// Carts are keyed by the browser session token so every tab of one browser
// shares the same cart.
package localcart

import (
	"context"
	"sync"
	"time"

	"github.com/Skotchmaster/storefront/internal/cart"
)

// Store hands out a cart bound to one browser session.
type Store interface {
	For(session string) cart.LocalStore
}

type Memory struct {
	mu    sync.Mutex
	carts map[string]map[int64]cart.Entry
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		carts: make(map[string]map[int64]cart.Entry),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) For(session string) cart.LocalStore {
	return &memoryCart{m: m, session: session}
}

type memoryCart struct {
	m       *Memory
	session string
}

func (c *memoryCart) entries() map[int64]cart.Entry {
	items, ok := c.m.carts[c.session]
	if !ok {
		items = make(map[int64]cart.Entry)
		c.m.carts[c.session] = items
	}
	return items
}

func (c *memoryCart) Add(_ context.Context, productID int64, qty int) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()

	items := c.entries()
	e := items[productID]
	e.ProductID = productID
	e.Quantity += qty
	if e.Quantity <= 0 {
		delete(items, productID)
		return nil
	}
	e.UpdatedAt = c.m.now()
	items[productID] = e
	return nil
}

func (c *memoryCart) SetQuantity(ctx context.Context, productID int64, qty int) error {
	if qty <= 0 {
		return c.Remove(ctx, productID)
	}

	c.m.mu.Lock()
	defer c.m.mu.Unlock()

	items := c.entries()
	if _, ok := items[productID]; !ok {
		return cart.ErrEntryNotFound
	}
	items[productID] = cart.Entry{ProductID: productID, Quantity: qty, UpdatedAt: c.m.now()}
	return nil
}

func (c *memoryCart) Remove(_ context.Context, productID int64) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()

	if items, ok := c.m.carts[c.session]; ok {
		delete(items, productID)
	}
	return nil
}

func (c *memoryCart) Entries(_ context.Context) ([]cart.Entry, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()

	return collect(c.m.carts[c.session]), nil
}

func (c *memoryCart) Drain(_ context.Context) ([]cart.Entry, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()

	out := collect(c.m.carts[c.session])
	delete(c.m.carts, c.session)
	return out, nil
}

func collect(items map[int64]cart.Entry) []cart.Entry {
	out := make([]cart.Entry, 0, len(items))
	for _, e := range items {
		out = append(out, e)
	}
	cart.SortEntries(out)
	return out
}
