package memstore

import (
	"context"
	"time"

	"github.com/erp/salesengine/internal/domain/catalog"
	"github.com/erp/salesengine/internal/domain/inventory"
	"github.com/erp/salesengine/internal/domain/sales"
	"github.com/google/uuid"
)

// StockLedger serializes stock movements with one mutex per product
type StockLedger struct {
	store *Store
}

func (l *StockLedger) Reserve(ctx context.Context, productID uuid.UUID, quantity int64) error {
	return l.apply(ctx, productID, func(p *catalog.Product) error {
		return p.Reserve(quantity)
	})
}

func (l *StockLedger) Release(ctx context.Context, productID uuid.UUID, quantity int64) error {
	return l.apply(ctx, productID, func(p *catalog.Product) error {
		return p.Release(quantity)
	})
}

func (l *StockLedger) Available(_ context.Context, productID uuid.UUID) (int64, error) {
	rec, ok := l.store.product(productID)
	if !ok {
		return 0, catalog.NewProductNotFound(productID)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.product.StockQuantity, nil
}

func (l *StockLedger) apply(ctx context.Context, productID uuid.UUID, move func(p *catalog.Product) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec, ok := l.store.product(productID)
	if !ok {
		return catalog.NewProductNotFound(productID)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return move(&rec.product)
}

// SaleNumberGenerator keeps one counter per day
type SaleNumberGenerator struct {
	store *Store
}

func (g *SaleNumberGenerator) Next(_ context.Context, day time.Time) (int64, error) {
	key := day.Format("20060102")
	g.store.mu.Lock()
	defer g.store.mu.Unlock()
	g.store.sequences[key]++
	return g.store.sequences[key], nil
}

var (
	_ inventory.StockLedger     = (*StockLedger)(nil)
	_ sales.SaleNumberGenerator = (*SaleNumberGenerator)(nil)
)
