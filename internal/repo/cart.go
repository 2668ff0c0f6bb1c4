package repo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/models"
)

// AddToCart accumulates qty with a single upsert keyed by (user, product).
// When key is set the add is applied at most once; a replay returns
// applied=false and leaves the cart unchanged.
func (r *GormRepo) AddToCart(ctx context.Context, userID, productID int64, qty int, key string) (applied bool, err error) {
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var found int64
		if err := tx.Model(&models.Product{}).Where("id = ?", productID).Count(&found).Error; err != nil {
			return err
		}
		if found == 0 {
			return &MissingProductError{ProductID: productID}
		}

		if err := ensureUser(tx, userID); err != nil {
			return err
		}

		if key != "" {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.CartRequest{UserID: userID, Key: key})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
		}

		item := models.CartItem{
			UserID:    userID,
			ProductID: productID,
			Quantity:  qty,
			UpdatedAt: time.Now().UTC(),
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
				"updated_at": gorm.Expr("excluded.updated_at"),
			}),
		}).Create(&item).Error
		if err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}

// SetCartQuantity replaces the quantity of an existing entry. A missing entry
// yields cart.ErrEntryNotFound; qty <= 0 removes.
func (r *GormRepo) SetCartQuantity(ctx context.Context, userID, productID int64, qty int) error {
	if qty <= 0 {
		return r.RemoveFromCart(ctx, userID, productID)
	}

	db := r.DB.WithContext(ctx)
	if err := ensureUser(db, userID); err != nil {
		return err
	}

	res := db.Model(&models.CartItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Updates(map[string]any{"quantity": qty, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return cart.ErrEntryNotFound
	}
	return nil
}

func (r *GormRepo) RemoveFromCart(ctx context.Context, userID, productID int64) error {
	db := r.DB.WithContext(ctx)
	if err := ensureUser(db, userID); err != nil {
		return err
	}
	return db.Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItem{}).Error
}

func (r *GormRepo) CartEntries(ctx context.Context, userID int64) ([]cart.Entry, error) {
	var items []models.CartItem
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("product_id ASC").Find(&items).Error; err != nil {
		return nil, err
	}

	out := make([]cart.Entry, 0, len(items))
	for _, it := range items {
		out = append(out, cart.Entry{ProductID: it.ProductID, Quantity: it.Quantity, UpdatedAt: it.UpdatedAt})
	}
	return out, nil
}

type cartLineRow struct {
	ProductID int64
	Quantity  int
	UpdatedAt time.Time
	Name      string
	Price     decimal.Decimal
	Photos    []string `gorm:"serializer:json"`
}

// ListCart joins the cart with live product attributes. Prices here are not
// frozen; only a committed order snapshots them.
func (r *GormRepo) ListCart(ctx context.Context, userID int64) ([]cart.Line, error) {
	var rows []cartLineRow
	err := r.DB.WithContext(ctx).
		Table("cart_items AS ci").
		Select(`ci.product_id, ci.quantity, ci.updated_at,
			COALESCE(p.name, '') AS name,
			COALESCE(p.price, 0) AS price,
			COALESCE(p.photos, '[]') AS photos`).
		Joins("LEFT JOIN products p ON p.id = ci.product_id").
		Where("ci.user_id = ?", userID).
		Order("ci.product_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	lines := make([]cart.Line, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, cart.Line{
			Entry:  cart.Entry{ProductID: row.ProductID, Quantity: row.Quantity, UpdatedAt: row.UpdatedAt},
			Name:   row.Name,
			Price:  row.Price,
			Photos: row.Photos,
		})
	}
	return lines, nil
}

func (r *GormRepo) CartCount(ctx context.Context, userID int64) (int, error) {
	var total int64
	err := r.DB.WithContext(ctx).Model(&models.CartItem{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return int(total), nil
}
