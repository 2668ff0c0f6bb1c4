package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const HeaderIdempotencyKey = "Idempotency-Key"

// MaxIdempotencyKeyLen matches the width of the stored key column.
const MaxIdempotencyKeyLen = 128

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.cart")

	lines, err := h.Svc.ListCart(ctx, sessionOf(c))
	if err != nil {
		return writeError(c, l, "get_cart_error", err)
	}
	if lines == nil {
		lines = []cart.Line{}
	}

	return c.JSON(http.StatusOK, transport.CartResponse{
		Items: lines,
		Count: cart.LinesQuantity(lines),
		Total: service.LinesTotal(lines),
	})
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "add.cart")

	var req transport.AddToCartRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, l, "add_to_cart_error", "invalid body", err)
	}

	if key := c.Request().Header.Get(HeaderIdempotencyKey); key != "" {
		if len(key) > MaxIdempotencyKeyLen {
			return badRequest(c, l, "add_to_cart_error", fmt.Sprintf("%s longer than %d characters", HeaderIdempotencyKey, MaxIdempotencyKeyLen), nil)
		}
		ctx = cart.WithIdempotencyKey(ctx, key)
	}

	count, err := h.Svc.AddToCart(ctx, sessionOf(c), req.ProductID, req.Quantity)
	if err != nil {
		return writeError(c, l, "add_to_cart_error", err)
	}

	l.Info("item added to cart", "product_id", req.ProductID, "quantity", req.Quantity)
	return c.JSON(http.StatusOK, transport.CountResponse{Count: count})
}

func (h *CartHTTP) SetQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "set.quantity.cart")

	productID, err := productIDParam(c)
	if err != nil {
		return badRequest(c, l, "set_quantity_error", "invalid product_id", err)
	}

	var req transport.SetQuantityRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, l, "set_quantity_error", "invalid body", err)
	}
	if req.Quantity == nil {
		return badRequest(c, l, "set_quantity_error", "quantity required", nil)
	}

	count, err := h.Svc.SetCartQuantity(ctx, sessionOf(c), productID, *req.Quantity)
	if err != nil {
		return writeError(c, l, "set_quantity_error", err)
	}
	return c.JSON(http.StatusOK, transport.CountResponse{Count: count})
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "remove.item.cart")

	productID, err := productIDParam(c)
	if err != nil {
		return badRequest(c, l, "remove_item_error", "invalid product_id", err)
	}

	count, err := h.Svc.RemoveFromCart(ctx, sessionOf(c), productID)
	if err != nil {
		return writeError(c, l, "remove_item_error", err)
	}
	return c.JSON(http.StatusOK, transport.CountResponse{Count: count})
}

func (h *CartHTTP) Count(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "count.cart")

	count, err := h.Svc.Count(ctx, sessionOf(c))
	if err != nil {
		return writeError(c, l, "count_cart_error", err)
	}
	return c.JSON(http.StatusOK, transport.CountResponse{Count: count})
}
