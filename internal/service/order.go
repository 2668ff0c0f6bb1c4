package service

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/bus"
	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const (
	maxAddressLen = 500
	maxNotesLen   = 1000
)

var phonePattern = regexp.MustCompile(`^\+?[0-9 ()\-]{5,32}$`)

type OrderRepository interface {
	CommitOrder(ctx context.Context, userID int64, draft repo.OrderDraft) (*models.Order, error)
	ListOrders(ctx context.Context, userID int64, offset, limit int) (int64, []models.Order, error)
	GetOrder(ctx context.Context, userID int64, id uuid.UUID) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus) error
}

type OrderService struct {
	Repo   OrderRepository
	Bus    *bus.Bus
	Events mykafka.Publisher
}

type OrderPage struct {
	Orders []models.Order
	Total  int64
	Offset int
	Limit  int
}

func validateDraft(req transport.CreateOrderRequest) (repo.OrderDraft, error) {
	draft := repo.OrderDraft{
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		Phone:           strings.TrimSpace(req.Phone),
		Notes:           strings.TrimSpace(req.Notes),
	}

	if draft.DeliveryAddress == "" {
		return draft, validationf("delivery_address required")
	}
	if utf8.RuneCountInString(draft.DeliveryAddress) > maxAddressLen {
		return draft, validationf("delivery_address longer than %d characters", maxAddressLen)
	}
	if draft.Phone == "" {
		return draft, validationf("phone required")
	}
	if !phonePattern.MatchString(draft.Phone) {
		return draft, validationf("phone has invalid format")
	}
	if utf8.RuneCountInString(draft.Notes) > maxNotesLen {
		return draft, validationf("notes longer than %d characters", maxNotesLen)
	}
	return draft, nil
}

// CommitOrder converts the server cart of the session identity into a
// pending order. The cart is emptied in the same transaction; on any error
// it is left untouched.
func (s *OrderService) CommitOrder(ctx context.Context, sess Session, req transport.CreateOrderRequest) (*models.Order, error) {
	if !sess.Identity.Durable() {
		return nil, errors.Wrap(ErrForbidden, "guest identity cannot place orders")
	}

	draft, err := validateDraft(req)
	if err != nil {
		return nil, err
	}

	order, err := s.Repo.CommitOrder(ctx, sess.Identity.ID(), draft)
	if err != nil {
		return nil, translate("commit order", err)
	}

	s.Bus.PublishAuthoritative(sess.Token, 0)
	s.publish(ctx, order, mykafka.EventOrderCreated, true)
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, ident identity.Identity, page, size int) (*OrderPage, error) {
	if !ident.Durable() {
		return nil, errors.Wrap(ErrForbidden, "guest identity has no orders")
	}

	offset, limit := util.Calculate(page, size)
	total, orders, err := s.Repo.ListOrders(ctx, ident.ID(), offset, limit)
	if err != nil {
		return nil, translate("list orders", err)
	}
	return &OrderPage{Orders: orders, Total: total, Offset: offset, Limit: limit}, nil
}

func (s *OrderService) GetOrder(ctx context.Context, ident identity.Identity, id uuid.UUID) (*models.Order, error) {
	if !ident.Durable() {
		return nil, errors.Wrap(ErrForbidden, "guest identity has no orders")
	}

	order, err := s.Repo.GetOrder(ctx, ident.ID(), id)
	if err != nil {
		return nil, translate("get order", err)
	}
	return order, nil
}

// UpdateStatus is used by the fulfillment side. It applies a legal
// transition only if nobody changed the status in between.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, next models.OrderStatus) (*models.Order, error) {
	if !next.Valid() {
		return nil, validationf("unknown status %q", next)
	}

	order, err := s.Repo.GetOrder(ctx, 0, id)
	if err != nil {
		return nil, translate("get order", err)
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, validationf("cannot move order from %s to %s", order.Status, next)
	}

	if err := s.Repo.UpdateOrderStatus(ctx, id, order.Status, next); err != nil {
		return nil, translate("update order status", err)
	}

	order.Status = next
	order.UpdatedAt = time.Now().UTC()
	s.publish(ctx, order, mykafka.EventOrderStatusChanged, false)
	return order, nil
}

func (s *OrderService) publish(ctx context.Context, order *models.Order, kind string, withItems bool) {
	if s.Events == nil {
		return
	}

	ev := mykafka.OrderEvent{
		Type:        kind,
		OrderID:     order.ID,
		UserID:      order.UserID,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount,
		At:          time.Now().UTC(),
	}
	if withItems {
		for _, it := range order.Items {
			ev.Items = append(ev.Items, mykafka.OrderLine{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.PriceAtOrderTime})
		}
	}

	if err := s.Events.PublishEvent(ctx, mykafka.TopicOrderEvents, strconv.FormatInt(order.UserID, 10), ev); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_error", "topic", mykafka.TopicOrderEvents, "order_id", order.ID, "error", err)
	}
}
