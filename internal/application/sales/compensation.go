package sales

import (
	"context"
	"sync"

	"github.com/erp/salesengine/internal/domain/inventory"
	"github.com/google/uuid"
)

// trackingLedger forwards to the scope's ledger and remembers every movement
// that succeeded, in order, so they can be undone if the unit of work fails
// on a scope without rollback.
type trackingLedger struct {
	base    inventory.StockLedger
	mu      sync.Mutex
	applied []inventory.Movement
}

func newTrackingLedger(base inventory.StockLedger) *trackingLedger {
	return &trackingLedger{base: base}
}

func (l *trackingLedger) Reserve(ctx context.Context, productID uuid.UUID, quantity int64) error {
	if err := l.base.Reserve(ctx, productID, quantity); err != nil {
		return err
	}
	l.record(inventory.Movement{ProductID: productID, Quantity: quantity, Direction: inventory.DirectionReserve})
	return nil
}

func (l *trackingLedger) Release(ctx context.Context, productID uuid.UUID, quantity int64) error {
	if err := l.base.Release(ctx, productID, quantity); err != nil {
		return err
	}
	l.record(inventory.Movement{ProductID: productID, Quantity: quantity, Direction: inventory.DirectionRelease})
	return nil
}

func (l *trackingLedger) Available(ctx context.Context, productID uuid.UUID) (int64, error) {
	return l.base.Available(ctx, productID)
}

func (l *trackingLedger) record(m inventory.Movement) {
	l.mu.Lock()
	l.applied = append(l.applied, m)
	l.mu.Unlock()
}

// undoPlan returns the inverse of every applied movement, most recent first
func (l *trackingLedger) undoPlan() []inventory.Movement {
	l.mu.Lock()
	defer l.mu.Unlock()
	undo := make([]inventory.Movement, 0, len(l.applied))
	for i := len(l.applied) - 1; i >= 0; i-- {
		undo = append(undo, l.applied[i].Inverse())
	}
	return undo
}

// applyPlan executes movements in order through ledger
func applyPlan(ctx context.Context, ledger inventory.StockLedger, movements []inventory.Movement) error {
	for _, m := range movements {
		if err := m.Apply(ctx, ledger); err != nil {
			return err
		}
	}
	return nil
}

var _ inventory.StockLedger = (*trackingLedger)(nil)
