// Package testutil builds throwaway databases for package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	pkgdb "github.com/Skotchmaster/storefront/pkg/db"
)

// NewDB opens a private in-memory SQLite database with every table migrated.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := pkgdb.Open(context.Background(), pkgdb.SQLitePrefix+":memory:")
	require.NoError(t, err)
	require.NoError(t, pkgdb.Migrate(db, models.All()...))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func SeedProduct(t testing.TB, db *gorm.DB, name, price string) models.Product {
	t.Helper()

	p := models.Product{
		Name:   name,
		Price:  decimal.RequireFromString(price),
		Photos: []string{name + ".jpg"},
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func SetPrice(t testing.TB, db *gorm.DB, productID int64, price string) {
	t.Helper()
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", productID).
		Update("price", decimal.RequireFromString(price)).Error)
}

func CartRows(t testing.TB, db *gorm.DB, userID int64) map[int64]int {
	t.Helper()

	var items []models.CartItem
	require.NoError(t, db.Where("user_id = ?", userID).Find(&items).Error)

	out := make(map[int64]int, len(items))
	for _, it := range items {
		out[it.ProductID] = it.Quantity
	}
	return out
}
