package inventory

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/google/uuid"
)

// StockLedger tracks available quantity per product.
//
// Reserve and Release must be safe under concurrent callers: two reservations
// against the same product never both succeed when their sum exceeds what is
// available. Implementations backed by a database operate inside the caller's
// transaction when one is active.
type StockLedger interface {
	// Reserve decrements available stock or fails with *InsufficientStockError
	// leaving the quantity untouched.
	Reserve(ctx context.Context, productID uuid.UUID, quantity int64) error
	// Release increments available stock unconditionally.
	Release(ctx context.Context, productID uuid.UUID, quantity int64) error
	// Available returns the current available quantity.
	Available(ctx context.Context, productID uuid.UUID) (int64, error)
}

// InsufficientStockError is returned by Reserve when the product cannot cover
// the requested quantity.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Available int64
	Requested int64
}

// NewInsufficientStockError creates an InsufficientStockError
func NewInsufficientStockError(productID uuid.UUID, available, requested int64) *InsufficientStockError {
	return &InsufficientStockError{
		ProductID: productID,
		Available: available,
		Requested: requested,
	}
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return shared.ErrInsufficientStock }

// Details returns the product and quantities involved
func (e *InsufficientStockError) Details() map[string]any {
	return map[string]any{
		"product_id": e.ProductID.String(),
		"available":  e.Available,
		"requested":  e.Requested,
	}
}

// Direction says which way a stock movement goes
type Direction string

const (
	DirectionReserve Direction = "reserve"
	DirectionRelease Direction = "release"
)

// Movement is one reserve or release applied to a single product
type Movement struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int64     `json:"quantity"`
	Direction Direction `json:"direction"`
}

// Inverse returns the movement that undoes m
func (m Movement) Inverse() Movement {
	inv := m
	if m.Direction == DirectionReserve {
		inv.Direction = DirectionRelease
	} else {
		inv.Direction = DirectionReserve
	}
	return inv
}

// Apply executes the movement against ledger
func (m Movement) Apply(ctx context.Context, ledger StockLedger) error {
	if m.Direction == DirectionReserve {
		return ledger.Reserve(ctx, m.ProductID, m.Quantity)
	}
	return ledger.Release(ctx, m.ProductID, m.Quantity)
}

// MaxQuantity is the largest quantity a single request may move. Totals
// built from several requests may exceed it; they are only checked for
// int64 overflow.
const MaxQuantity int64 = 1_000_000_000

// ValidateQuantity rejects quantities outside 1..MaxQuantity for field
func ValidateQuantity(field string, quantity int64) error {
	if quantity <= 0 {
		return shared.NewInvalidArgument(field, "must be positive")
	}
	if quantity > MaxQuantity {
		return shared.NewInvalidArgument(field, fmt.Sprintf("must not exceed %d", MaxQuantity))
	}
	return nil
}

// AddQuantity returns a+b, failing instead of wrapping around
func AddQuantity(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, shared.NewInvalidArgument("quantity", "total is out of range")
	}
	return a + b, nil
}

// Plan accumulates net per-product quantity changes. Positive values are
// reservations, negative values releases. The first overflow sticks and is
// reported by Err.
type Plan struct {
	net map[uuid.UUID]int64
	err error
}

// NewPlan creates an empty plan
func NewPlan() *Plan {
	return &Plan{net: make(map[uuid.UUID]int64)}
}

// Reserve adds quantity to be taken from productID
func (p *Plan) Reserve(productID uuid.UUID, quantity int64) {
	p.add(productID, quantity)
}

// Release adds quantity to be returned to productID
func (p *Plan) Release(productID uuid.UUID, quantity int64) {
	if quantity == math.MinInt64 {
		p.fail(productID)
		return
	}
	p.add(productID, -quantity)
}

// Err reports a quantity that could not be added without overflowing
func (p *Plan) Err() error { return p.err }

func (p *Plan) add(productID uuid.UUID, delta int64) {
	if p.err != nil {
		return
	}
	next, err := AddQuantity(p.net[productID], delta)
	if err != nil {
		p.fail(productID)
		return
	}
	p.net[productID] = next
}

func (p *Plan) fail(productID uuid.UUID) {
	if p.err != nil {
		return
	}
	p.err = shared.NewInvalidArgument("quantity", fmt.Sprintf("total for product %s is out of range", productID))
}

// Movements returns the non-zero net movements ordered by product id.
// Releases come before reservations so freed stock is visible first, and a
// stable product order keeps concurrent row-lock acquisition deadlock free.
func (p *Plan) Movements() []Movement {
	releases := make([]Movement, 0, len(p.net))
	reserves := make([]Movement, 0, len(p.net))
	for id, qty := range p.net {
		switch {
		case qty > 0:
			reserves = append(reserves, Movement{ProductID: id, Quantity: qty, Direction: DirectionReserve})
		case qty < 0:
			releases = append(releases, Movement{ProductID: id, Quantity: -qty, Direction: DirectionRelease})
		}
	}
	byID := func(ms []Movement) {
		sort.Slice(ms, func(i, j int) bool {
			return ms[i].ProductID.String() < ms[j].ProductID.String()
		})
	}
	byID(releases)
	byID(reserves)
	return append(releases, reserves...)
}
