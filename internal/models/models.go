package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User is the local placeholder for a principal owned by the auth service.
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	CreatedAt time.Time `gorm:"not null"                       json:"created_at"`
}

type Product struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name        string          `gorm:"not null"                  json:"name"`
	Description string          `gorm:"not null;default:''"       json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Photos      []string        `gorm:"type:text;serializer:json" json:"photos"`
}

type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"                  json:"id"`
	UserID    int64     `gorm:"uniqueIndex:idx_user_product;not null"    json:"user_id"`
	ProductID int64     `gorm:"uniqueIndex:idx_user_product;not null"    json:"product_id"`
	Quantity  int       `gorm:"not null;check:quantity>0"                json:"quantity"`
	UpdatedAt time.Time `gorm:"not null"                                 json:"updated_at"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// CartRequest records an idempotency key that has already been applied.
type CartRequest struct {
	UserID    int64     `gorm:"primaryKey;autoIncrement:false"`
	Key       string    `gorm:"primaryKey;size:128"`
	CreatedAt time.Time `gorm:"not null"`
}

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

var statusRank = map[OrderStatus]int{
	StatusPending:   0,
	StatusConfirmed: 1,
	StatusPreparing: 2,
	StatusReady:     3,
	StatusDelivered: 4,
}

func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == StatusCancelled
}

func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo allows forward moves along the fulfillment chain and
// cancellation from any non-terminal status.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.Terminal() || !next.Valid() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	return statusRank[next] > statusRank[s]
}

type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"          json:"id"`
	UserID          int64           `gorm:"index;not null"                json:"user_id"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null"   json:"total_amount"`
	Status          OrderStatus     `gorm:"size:16;not null;index"        json:"status"`
	DeliveryAddress string          `gorm:"not null"                      json:"delivery_address"`
	Phone           string          `gorm:"size:32;not null"              json:"phone"`
	Notes           string          `gorm:"not null;default:''"           json:"notes,omitempty"`
	CreatedAt       time.Time       `gorm:"not null"                      json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null"                      json:"updated_at"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID"            json:"items,omitempty"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

type OrderItem struct {
	ID               int64           `gorm:"primaryKey;autoIncrement"      json:"id"`
	OrderID          uuid.UUID       `gorm:"type:uuid;index;not null"      json:"order_id"`
	ProductID        int64           `gorm:"not null"                      json:"product_id"`
	ProductName      string          `gorm:"not null"                      json:"product_name"`
	Quantity         int             `gorm:"not null;check:quantity>0"     json:"quantity"`
	PriceAtOrderTime decimal.Decimal `gorm:"type:decimal(12,2);not null"   json:"price_at_order_time"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// All lists the tables this service migrates.
func All() []any {
	return []any{&User{}, &Product{}, &CartItem{}, &CartRequest{}, &Order{}, &OrderItem{}}
}
