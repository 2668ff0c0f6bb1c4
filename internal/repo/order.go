package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

type OrderDraft struct {
	DeliveryAddress string
	Phone           string
	Notes           string
}

// CommitOrder turns the whole cart of userID into a pending order in one
// transaction. Deleting the cart rows with RETURNING claims the snapshot
// first, so a concurrent commit for the same user finds nothing and fails
// with ErrEmptyCart. Any error rolls everything back.
func (r *GormRepo) CommitOrder(ctx context.Context, userID int64, draft OrderDraft) (*models.Order, error) {
	var order models.Order

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var claimed []models.CartItem
		if err := tx.Clauses(clause.Returning{}).
			Where("user_id = ?", userID).
			Delete(&claimed).Error; err != nil {
			return err
		}
		if len(claimed) == 0 {
			return ErrEmptyCart
		}

		ids := make([]int64, 0, len(claimed))
		for _, it := range claimed {
			ids = append(ids, it.ProductID)
		}
		products, err := productsByID(tx, ids)
		if err != nil {
			return err
		}

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(claimed))
		for _, it := range claimed {
			p, ok := products[it.ProductID]
			if !ok {
				return &MissingProductError{ProductID: it.ProductID}
			}
			total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
			items = append(items, models.OrderItem{
				ProductID:        it.ProductID,
				ProductName:      p.Name,
				Quantity:         it.Quantity,
				PriceAtOrderTime: p.Price,
			})
		}

		order = models.Order{
			UserID:          userID,
			TotalAmount:     total.Round(2),
			Status:          models.StatusPending,
			DeliveryAddress: draft.DeliveryAddress,
			Phone:           draft.Phone,
			Notes:           draft.Notes,
		}
		if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		order.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, userID int64, offset, limit int) (int64, []models.Order, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var orders []models.Order
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&orders).Error
	if err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

// GetOrder loads an order with its line items. userID 0 skips the owner
// check and is used by the fulfillment side.
func (r *GormRepo) GetOrder(ctx context.Context, userID int64, id uuid.UUID) (*models.Order, error) {
	q := r.DB.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_items.id ASC")
	}).Where("id = ?", id)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}

	var order models.Order
	if err := q.First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus moves an order from one status to the next only if it
// is still in the expected one.
func (r *GormRepo) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus) error {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}
