package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "create.order")

	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, l, "create_order_error", "invalid body", err)
	}

	order, err := h.Svc.CommitOrder(ctx, sessionOf(c), req)
	if err != nil {
		return writeError(c, l, "create_order_error", err)
	}

	l.Info("order created", "order_id", order.ID, "total", order.TotalAmount.String())
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "list.orders")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	res, err := h.Svc.ListOrders(ctx, sessionOf(c).Identity, page, size)
	if err != nil {
		return writeError(c, l, "list_orders_error", err)
	}

	orders := res.Orders
	if orders == nil {
		orders = []models.Order{}
	}
	return c.JSON(http.StatusOK, transport.OrderListResponse{
		Orders:     orders,
		Total:      res.Total,
		Page:       res.Offset/res.Limit + 1,
		Size:       res.Limit,
		TotalPages: util.TotalPages(res.Total, res.Limit),
	})
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.order")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, l, "get_order_error", "invalid order id", err)
	}

	order, err := h.Svc.GetOrder(ctx, sessionOf(c).Identity, id)
	if err != nil {
		return writeError(c, l, "get_order_error", err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "update.order.status")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, l, "update_order_status_error", "invalid order id", err)
	}

	var req transport.UpdateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, l, "update_order_status_error", "invalid body", err)
	}

	order, err := h.Svc.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		return writeError(c, l, "update_order_status_error", err)
	}

	l.Info("order status updated", "order_id", order.ID, "status", order.Status)
	return c.JSON(http.StatusOK, order)
}
