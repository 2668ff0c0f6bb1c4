package service

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/identity"
)

type CartRepository interface {
	AddToCart(ctx context.Context, userID, productID int64, qty int, key string) (bool, error)
	SetCartQuantity(ctx context.Context, userID, productID int64, qty int) error
	RemoveFromCart(ctx context.Context, userID, productID int64) error
	CartEntries(ctx context.Context, userID int64) ([]cart.Entry, error)
	ListCart(ctx context.Context, userID int64) ([]cart.Line, error)
	CartCount(ctx context.Context, userID int64) (int, error)
}

// ServerCart is the authoritative cart of one identity. Guest identities are
// refused before any statement reaches the database.
type ServerCart struct {
	repo  CartRepository
	ident identity.Identity
}

var _ cart.EntryStore = (*ServerCart)(nil)

func NewServerCart(r CartRepository, ident identity.Identity) *ServerCart {
	return &ServerCart{repo: r, ident: ident}
}

func (s *ServerCart) check(productID int64) error {
	if !s.ident.Durable() {
		return errGuestWrite
	}
	if productID <= 0 {
		return validationf("product_id must be positive")
	}
	return nil
}

// Add accumulates qty. An idempotency key carried by ctx makes a retried
// request a no-op.
func (s *ServerCart) Add(ctx context.Context, productID int64, qty int) error {
	if err := s.check(productID); err != nil {
		return err
	}
	if qty <= 0 {
		return validationf("quantity must be positive")
	}

	_, err := s.repo.AddToCart(ctx, s.ident.ID(), productID, qty, cart.IdempotencyKey(ctx))
	return translate("add to cart", err)
}

func (s *ServerCart) SetQuantity(ctx context.Context, productID int64, qty int) error {
	if err := s.check(productID); err != nil {
		return err
	}
	return translate("set cart quantity", s.repo.SetCartQuantity(ctx, s.ident.ID(), productID, qty))
}

func (s *ServerCart) Remove(ctx context.Context, productID int64) error {
	if err := s.check(productID); err != nil {
		return err
	}
	return translate("remove from cart", s.repo.RemoveFromCart(ctx, s.ident.ID(), productID))
}

func (s *ServerCart) Entries(ctx context.Context) ([]cart.Entry, error) {
	if !s.ident.Durable() {
		return nil, nil
	}
	entries, err := s.repo.CartEntries(ctx, s.ident.ID())
	return entries, translate("cart entries", err)
}

func (s *ServerCart) Lines(ctx context.Context) ([]cart.Line, error) {
	if !s.ident.Durable() {
		return nil, nil
	}
	lines, err := s.repo.ListCart(ctx, s.ident.ID())
	return lines, translate("list cart", err)
}

func (s *ServerCart) Count(ctx context.Context) (int, error) {
	if !s.ident.Durable() {
		return 0, nil
	}
	n, err := s.repo.CartCount(ctx, s.ident.ID())
	return n, translate("cart count", err)
}
