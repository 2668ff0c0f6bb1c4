// Package cart holds the types shared by the local and the server cart stores.
package cart

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrEntryNotFound is returned by SetQuantity when the product is not in the cart.
var ErrEntryNotFound = errors.New("cart entry not found")

// Entry is one (owner, product) row. Quantity is always positive; a
// mutation that would leave it at zero or below deletes the entry instead.
type Entry struct {
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Line is an entry joined with live catalog attributes for display.
type Line struct {
	Entry
	Name   string          `json:"name,omitempty"`
	Price  decimal.Decimal `json:"price"`
	Photos []string        `json:"photos,omitempty"`
}

// EntryStore is the capability both cart authorities implement. A value is
// bound to a single owner (browser session or durable identity).
type EntryStore interface {
	// Add accumulates qty onto the entry.
	Add(ctx context.Context, productID int64, qty int) error
	// SetQuantity replaces the quantity of an existing entry and returns
	// ErrEntryNotFound when there is none. qty <= 0 removes the entry and
	// never fails on a missing one.
	SetQuantity(ctx context.Context, productID int64, qty int) error
	// Remove deletes the entry. Removing a missing entry is not an error.
	Remove(ctx context.Context, productID int64) error
	Entries(ctx context.Context) ([]Entry, error)
}

// LocalStore is the browser-session cart. Drain returns and clears every
// entry in one step and is reserved for the reconciliation merge.
type LocalStore interface {
	EntryStore
	Drain(ctx context.Context) ([]Entry, error)
}

func TotalQuantity(entries []Entry) int {
	total := 0
	for _, e := range entries {
		total += e.Quantity
	}
	return total
}

func LinesQuantity(lines []Line) int {
	total := 0
	for _, l := range lines {
		total += l.Quantity
	}
	return total
}

func SortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int { return cmp.Compare(a.ProductID, b.ProductID) })
}

type idempotencyKey struct{}

// WithIdempotencyKey marks an add as retry-safe. Stores that support it
// apply a given key at most once per owner.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, idempotencyKey{}, key)
}

func IdempotencyKey(ctx context.Context) string {
	if v, ok := ctx.Value(idempotencyKey{}).(string); ok {
		return v
	}
	return ""
}
