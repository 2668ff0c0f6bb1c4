package mykafka

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventCartItemAdded      = "cart_item_added"
	EventCartItemUpdated    = "cart_item_updated"
	EventCartItemRemoved    = "cart_item_removed"
	EventCartMerged         = "cart_merged"
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
)

type CartEvent struct {
	Type      string    `json:"type"`
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id,omitempty"`
	Quantity  int       `json:"quantity,omitempty"`
	Merged    int       `json:"merged,omitempty"`
	Failed    int       `json:"failed,omitempty"`
	At        time.Time `json:"at"`
}

type OrderLine struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderEvent struct {
	Type        string          `json:"type"`
	OrderID     uuid.UUID       `json:"order_id"`
	UserID      int64           `json:"user_id"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []OrderLine     `json:"items,omitempty"`
	At          time.Time       `json:"at"`
}
