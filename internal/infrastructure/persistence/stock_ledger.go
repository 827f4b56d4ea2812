package persistence

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/erp/salesengine/internal/domain/catalog"
	"github.com/erp/salesengine/internal/domain/inventory"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/erp/salesengine/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockLedger keeps product stock in products.stock_quantity. Reserve
// locks the product row (SELECT ... FOR UPDATE) before checking and
// decrementing, so concurrent reservations on one product serialize on the
// row lock and the non-negative check constraint is never hit in practice.
type GormStockLedger struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStockLedger creates a ledger bound to db, which may be a transaction
func NewGormStockLedger(db *gorm.DB) *GormStockLedger {
	return &GormStockLedger{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (l *GormStockLedger) Reserve(ctx context.Context, productID uuid.UUID, quantity int64) error {
	if quantity <= 0 {
		return shared.NewInvalidArgument("quantity", "must be positive")
	}
	available, err := l.lockedQuantity(ctx, productID)
	if err != nil {
		return err
	}
	if available < quantity {
		return inventory.NewInsufficientStockError(productID, available, quantity)
	}

	result := l.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity - ?", quantity),
			"updated_at":     l.now(),
		})
	if result.Error != nil {
		if isCheckViolation(result.Error) {
			return inventory.NewInsufficientStockError(productID, available, quantity)
		}
		return classify("reserve stock", "product", result.Error)
	}
	return nil
}

func (l *GormStockLedger) Release(ctx context.Context, productID uuid.UUID, quantity int64) error {
	if quantity <= 0 {
		return shared.NewInvalidArgument("quantity", "must be positive")
	}
	result := l.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("id = ? AND stock_quantity <= ?", productID, int64(math.MaxInt64)-quantity).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity + ?", quantity),
			"updated_at":     l.now(),
		})
	if result.Error != nil {
		return classify("release stock", "product", result.Error)
	}
	if result.RowsAffected == 0 {
		// either the product is gone or the release would overflow
		if _, err := l.Available(ctx, productID); err != nil {
			return err
		}
		return shared.NewInvalidArgument("quantity", "total is out of range")
	}
	return nil
}

func (l *GormStockLedger) Available(ctx context.Context, productID uuid.UUID) (int64, error) {
	var row struct{ StockQuantity int64 }
	err := l.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Select("stock_quantity").
		Where("id = ?", productID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, catalog.NewProductNotFound(productID)
		}
		return 0, classify("read stock", "product", err)
	}
	return row.StockQuantity, nil
}

// lockedQuantity reads the stock of productID holding its row lock until the
// surrounding transaction ends
func (l *GormStockLedger) lockedQuantity(ctx context.Context, productID uuid.UUID) (int64, error) {
	var row struct{ StockQuantity int64 }
	err := l.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Select("stock_quantity").
		Where("id = ?", productID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, catalog.NewProductNotFound(productID)
		}
		return 0, classify("lock product stock", "product", err)
	}
	return row.StockQuantity, nil
}

var _ inventory.StockLedger = (*GormStockLedger)(nil)
