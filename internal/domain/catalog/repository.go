package catalog

import (
	"context"

	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductFilter narrows product list queries
type ProductFilter struct {
	Search string // matches code or name
	Page   shared.Page
}

// ProductRepository persists products. Stock quantity changes go through the
// inventory.StockLedger, not Save.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Product, error)
	FindByCode(ctx context.Context, code string) (*Product, error)
	FindAll(ctx context.Context, filter ProductFilter) ([]Product, int64, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	// Create inserts a new product including its opening stock
	Create(ctx context.Context, product *Product) error
	// SavePricing persists price and tax rate with an optimistic version check
	SavePricing(ctx context.Context, product *Product) error
}
