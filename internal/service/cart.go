package service

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/bus"
	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/localcart"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const DefaultMaxQuantity = 999

// Session is the caller of one request: the browser session token that keys
// the local cart and the bus topic, plus the identity resolved from auth.
type Session struct {
	Token    string
	Identity identity.Identity
}

type ProductReader interface {
	GetProductsByID(ctx context.Context, ids []int64) (map[int64]models.Product, error)
}

// CartService routes cart operations to the server cart for durable
// identities and to the local cart otherwise, and mirrors every mutation on
// the bus as an optimistic delta followed by its outcome.
type CartService struct {
	Repo     CartRepository
	Products ProductReader
	Local    localcart.Store
	Bus      *bus.Bus
	Events   mykafka.Publisher
	// MaxQuantity bounds the quantity of a single add request.
	MaxQuantity int
}

func (s *CartService) store(sess Session) cart.EntryStore {
	if sess.Identity.Durable() {
		return NewServerCart(s.Repo, sess.Identity)
	}
	return s.Local.For(sess.Token)
}

func (s *CartService) maxQuantity() int {
	if s.MaxQuantity > 0 {
		return s.MaxQuantity
	}
	return DefaultMaxQuantity
}

// AddToCart returns the authoritative item count after the add.
func (s *CartService) AddToCart(ctx context.Context, sess Session, productID int64, qty int) (int, error) {
	if productID <= 0 {
		return 0, validationf("product_id must be positive")
	}
	if qty < 1 || qty > s.maxQuantity() {
		return 0, validationf("quantity must be between 1 and %d", s.maxQuantity())
	}

	return s.mutate(ctx, sess, qty, func(st cart.EntryStore) error {
		// The server store checks the catalog inside its upsert.
		if !sess.Identity.Durable() {
			if err := s.checkProduct(ctx, productID); err != nil {
				return err
			}
		}
		return st.Add(ctx, productID, qty)
	}, mykafka.CartEvent{Type: mykafka.EventCartItemAdded, ProductID: productID, Quantity: qty})
}

func (s *CartService) checkProduct(ctx context.Context, productID int64) error {
	products, err := s.Products.GetProductsByID(ctx, []int64{productID})
	if err != nil {
		return err
	}
	if _, ok := products[productID]; !ok {
		return &ProductNotFoundError{ProductID: productID}
	}
	return nil
}

func (s *CartService) SetCartQuantity(ctx context.Context, sess Session, productID int64, qty int) (int, error) {
	if productID <= 0 {
		return 0, validationf("product_id must be positive")
	}
	if qty < 0 || qty > s.maxQuantity() {
		return 0, validationf("quantity must be between 0 and %d", s.maxQuantity())
	}

	delta := qty - s.currentQuantity(ctx, sess, productID)
	kind := mykafka.EventCartItemUpdated
	if qty == 0 {
		kind = mykafka.EventCartItemRemoved
	}
	return s.mutate(ctx, sess, delta, func(st cart.EntryStore) error {
		return st.SetQuantity(ctx, productID, qty)
	}, mykafka.CartEvent{Type: kind, ProductID: productID, Quantity: qty})
}

func (s *CartService) RemoveFromCart(ctx context.Context, sess Session, productID int64) (int, error) {
	if productID <= 0 {
		return 0, validationf("product_id must be positive")
	}

	delta := -s.currentQuantity(ctx, sess, productID)
	return s.mutate(ctx, sess, delta, func(st cart.EntryStore) error {
		return st.Remove(ctx, productID)
	}, mykafka.CartEvent{Type: mykafka.EventCartItemRemoved, ProductID: productID})
}

func (s *CartService) mutate(ctx context.Context, sess Session, delta int, op func(cart.EntryStore) error, ev mykafka.CartEvent) (int, error) {
	l := logging.FromContext(ctx)

	action := s.Bus.Begin(sess.Token, delta)
	if err := op(s.store(sess)); err != nil {
		_ = action.Revert()
		return 0, translate("cart mutation", err)
	}

	count, err := s.Count(ctx, sess)
	if err != nil {
		l.Warn("cart_count_refresh_failed", "action", action.ID(), "error", err)
		_ = action.Revert()
		return 0, err
	}
	_ = action.Confirm(count)

	if sess.Identity.Durable() {
		ev.UserID = sess.Identity.ID()
		ev.At = time.Now().UTC()
		s.publish(ctx, strconv.FormatInt(ev.UserID, 10), ev)
	}
	return count, nil
}

// currentQuantity is a best-effort read used only to size the optimistic
// delta; the authoritative count settles any difference.
func (s *CartService) currentQuantity(ctx context.Context, sess Session, productID int64) int {
	entries, err := s.store(sess).Entries(ctx)
	if err != nil {
		return 0
	}
	for _, e := range entries {
		if e.ProductID == productID {
			return e.Quantity
		}
	}
	return 0
}

// ListCart returns the cart with live product attributes.
func (s *CartService) ListCart(ctx context.Context, sess Session) ([]cart.Line, error) {
	if sess.Identity.Durable() {
		return NewServerCart(s.Repo, sess.Identity).Lines(ctx)
	}

	entries, err := s.Local.For(sess.Token).Entries(ctx)
	if err != nil {
		return nil, translate("list local cart", err)
	}

	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ProductID)
	}
	products, err := s.Products.GetProductsByID(ctx, ids)
	if err != nil {
		return nil, translate("load products", err)
	}

	lines := make([]cart.Line, 0, len(entries))
	for _, e := range entries {
		line := cart.Line{Entry: e}
		if p, ok := products[e.ProductID]; ok {
			line.Name = p.Name
			line.Price = p.Price
			line.Photos = p.Photos
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Count is the total quantity shown on the cart badge.
func (s *CartService) Count(ctx context.Context, sess Session) (int, error) {
	if sess.Identity.Durable() {
		return NewServerCart(s.Repo, sess.Identity).Count(ctx)
	}

	entries, err := s.Local.For(sess.Token).Entries(ctx)
	if err != nil {
		return 0, translate("count local cart", err)
	}
	return cart.TotalQuantity(entries), nil
}

func LinesTotal(lines []cart.Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total.Round(2)
}

func (s *CartService) publish(ctx context.Context, key string, ev any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishEvent(ctx, mykafka.TopicCartEvents, key, ev); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_error", "topic", mykafka.TopicCartEvents, "error", err)
	}
}
