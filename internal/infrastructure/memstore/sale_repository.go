package memstore

import (
	"context"
	"sort"

	"github.com/erp/salesengine/internal/domain/sales"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/google/uuid"
)

// SaleRepository implements sales.SaleRepository in memory. Sales are stored
// and returned as copies so callers never share state with the store.
type SaleRepository struct {
	store *Store
	sess  *session
}

func (r *SaleRepository) FindByID(_ context.Context, id uuid.UUID) (*sales.Sale, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	sale, ok := r.store.sales[id]
	if !ok {
		return nil, sales.NewSaleNotFound(id)
	}
	return cloneSale(sale), nil
}

// FindByIDForUpdate locks the sale for the rest of the session. Without a
// session it behaves like FindByID.
func (r *SaleRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	if r.sess != nil {
		if err := r.sess.lock(ctx, id); err != nil {
			return nil, err
		}
	}
	return r.FindByID(ctx, id)
}

func (r *SaleRepository) FindBySaleNumber(ctx context.Context, number string) (*sales.Sale, error) {
	r.store.mu.RLock()
	id, ok := r.store.saleNumbers[number]
	r.store.mu.RUnlock()
	if !ok {
		return nil, sales.NewSaleNumberNotFound(number)
	}
	return r.FindByID(ctx, id)
}

func (r *SaleRepository) FindAll(_ context.Context, filter sales.SaleFilter) ([]sales.Sale, int64, error) {
	r.store.mu.RLock()
	matched := make([]sales.Sale, 0, len(r.store.sales))
	for _, sale := range r.store.sales {
		if matches(sale, filter) {
			matched = append(matched, *cloneSale(sale))
		}
	}
	r.store.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].SaleDate.Equal(matched[j].SaleDate) {
			return matched[i].SaleNumber > matched[j].SaleNumber
		}
		return matched[i].SaleDate.After(matched[j].SaleDate)
	})
	return paginate(matched, filter.Page), int64(len(matched)), nil
}

func matches(sale *sales.Sale, f sales.SaleFilter) bool {
	if f.Status != nil && sale.Status != *f.Status {
		return false
	}
	if f.CustomerID != nil && sale.CustomerID != *f.CustomerID {
		return false
	}
	if f.EmployeeID != nil && sale.EmployeeID != *f.EmployeeID {
		return false
	}
	if f.From != nil && sale.SaleDate.Before(*f.From) {
		return false
	}
	if f.To != nil && !sale.SaleDate.Before(*f.To) {
		return false
	}
	return true
}

func (r *SaleRepository) Save(_ context.Context, sale *sales.Sale) error {
	if sale.SaleNumber == "" {
		return shared.NewInvalidArgument("sale_number", "is required")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if owner, ok := r.store.saleNumbers[sale.SaleNumber]; ok && owner != sale.ID {
		return shared.NewPersistenceError("save sale",
			shared.NewDomainError(shared.ErrAlreadyExists.Code, "sale number "+sale.SaleNumber+" already exists"))
	}
	r.store.sales[sale.ID] = cloneSale(sale)
	r.store.saleNumbers[sale.SaleNumber] = sale.ID
	return nil
}

func (r *SaleRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	sale, ok := r.store.sales[id]
	if !ok {
		return sales.NewSaleNotFound(id)
	}
	delete(r.store.saleNumbers, sale.SaleNumber)
	delete(r.store.sales, id)
	return nil
}

var _ sales.SaleRepository = (*SaleRepository)(nil)
