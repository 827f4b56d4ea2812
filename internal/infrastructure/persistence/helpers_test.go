package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/salesengine/internal/domain/catalog"
	"github.com/erp/salesengine/internal/domain/sales"
	"github.com/erp/salesengine/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

// newSQLiteDatabase opens a migrated in-memory database. One connection
// keeps every statement on the same memory database.
func newSQLiteDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := Open(sqlite.Open(":memory:"), &config.DatabaseConfig{MaxOpenConns: 1, MaxIdleConns: 1}, Options{LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedProduct(t *testing.T, db *Database, code, price, rate string, stock int64) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(code, "Product "+code, decimal.RequireFromString(price), decimal.RequireFromString(rate), stock)
	require.NoError(t, err)
	require.NoError(t, NewGormProductRepository(db.DB).Create(context.Background(), p))
	return p
}

func newSale(t *testing.T, number string, day time.Time, products ...*catalog.Product) *sales.Sale {
	t.Helper()
	sale, err := sales.NewSale(uuid.New(), uuid.New(), day, "")
	require.NoError(t, err)
	require.NoError(t, sale.AssignNumber(number))
	for _, p := range products {
		_, err := sale.AddLineItem(p.Snapshot(), 2)
		require.NoError(t, err)
	}
	return sale
}
