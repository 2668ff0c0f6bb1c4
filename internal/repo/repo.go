package repo

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrStatusChanged = errors.New("order status changed concurrently")
)

// MissingProductError reports a cart or order line whose product is not in
// the catalog.
type MissingProductError struct {
	ProductID int64
}

func (e *MissingProductError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

type GormRepo struct {
	DB *gorm.DB
}

// ensureUser creates the placeholder identity row for first-time writers.
func ensureUser(tx *gorm.DB, userID int64) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.User{ID: userID}).Error
}

func (r *GormRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
