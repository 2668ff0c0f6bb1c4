package transport

import (
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/models"
)

type AddToCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type SetQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type CartResponse struct {
	Items []cart.Line     `json:"items"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type CreateOrderRequest struct {
	DeliveryAddress string `json:"delivery_address"`
	Phone           string `json:"phone"`
	Notes           string `json:"notes"`
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

type MergeFailure struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Error     string `json:"error"`
}

type MergeResponse struct {
	Skipped bool           `json:"skipped"`
	Merged  int            `json:"merged"`
	Failed  []MergeFailure `json:"failed,omitempty"`
	Count   int            `json:"count"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable,omitempty"`
}

type OrderListResponse struct {
	Orders     []models.Order `json:"orders"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Size       int            `json:"size"`
	TotalPages int64          `json:"total_pages"`
}
