package memstore

import (
	"context"

	"github.com/erp/salesengine/internal/domain/inventory"
	"github.com/erp/salesengine/internal/domain/sales"
	"github.com/google/uuid"
)

// ReconciliationRepository keeps failed compensations in memory, in the
// order they were recorded
type ReconciliationRepository struct {
	store *Store
}

func (r *ReconciliationRepository) Create(_ context.Context, rec *sales.Reconciliation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.records = append(r.store.records, cloneReconciliation(rec))
	return nil
}

func (r *ReconciliationRepository) FindByID(_ context.Context, id uuid.UUID) (*sales.Reconciliation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for i := range r.store.records {
		if r.store.records[i].ID == id {
			c := cloneReconciliation(&r.store.records[i])
			return &c, nil
		}
	}
	return nil, sales.NewReconciliationNotFound(id)
}

func (r *ReconciliationRepository) ListOpen(_ context.Context) ([]sales.Reconciliation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]sales.Reconciliation, 0, len(r.store.records))
	for i := range r.store.records {
		if r.store.records[i].Status == sales.ReconciliationOpen {
			out = append(out, cloneReconciliation(&r.store.records[i]))
		}
	}
	return out, nil
}

func (r *ReconciliationRepository) MarkResolved(_ context.Context, rec *sales.Reconciliation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range r.store.records {
		if r.store.records[i].ID == rec.ID {
			r.store.records[i] = cloneReconciliation(rec)
			return nil
		}
	}
	return sales.NewReconciliationNotFound(rec.ID)
}

func cloneReconciliation(rec *sales.Reconciliation) sales.Reconciliation {
	c := *rec
	c.Pending = append([]inventory.Movement(nil), rec.Pending...)
	return c
}

var _ sales.ReconciliationRepository = (*ReconciliationRepository)(nil)
