package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/erp/salesengine/internal/domain/catalog"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductRepository implements catalog.ProductRepository in memory
type ProductRepository struct {
	store *Store
}

func (r *ProductRepository) FindByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	rec, ok := r.store.product(id)
	if !ok {
		return nil, catalog.NewProductNotFound(id)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return cloneProduct(&rec.product), nil
}

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	out := make(map[uuid.UUID]*catalog.Product, len(ids))
	for _, id := range ids {
		p, err := r.FindByID(ctx, id)
		if err != nil {
			continue
		}
		out[id] = p
	}
	return out, nil
}

func (r *ProductRepository) FindByCode(ctx context.Context, code string) (*catalog.Product, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	r.store.mu.RLock()
	id, ok := r.store.codes[code]
	r.store.mu.RUnlock()
	if !ok {
		return nil, &catalog.ProductNotFoundError{Code: code}
	}
	return r.FindByID(ctx, id)
}

func (r *ProductRepository) FindAll(_ context.Context, filter catalog.ProductFilter) ([]catalog.Product, int64, error) {
	r.store.mu.RLock()
	recs := make([]*productRecord, 0, len(r.store.products))
	for _, rec := range r.store.products {
		recs = append(recs, rec)
	}
	r.store.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]catalog.Product, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		p := *cloneProduct(&rec.product)
		rec.mu.Unlock()
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Code), search) &&
			!strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Code < matched[j].Code })

	return paginate(matched, filter.Page), int64(len(matched)), nil
}

func (r *ProductRepository) ExistsByCode(_ context.Context, code string) (bool, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	_, ok := r.store.codes[code]
	return ok, nil
}

func (r *ProductRepository) Create(_ context.Context, product *catalog.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.codes[product.Code]; ok {
		return shared.NewDomainError(shared.ErrAlreadyExists.Code, "product code "+product.Code+" already exists")
	}
	if _, ok := r.store.products[product.ID]; ok {
		return shared.NewDomainError(shared.ErrAlreadyExists.Code, "product "+product.ID.String()+" already exists")
	}
	r.store.products[product.ID] = &productRecord{product: *cloneProduct(product)}
	r.store.codes[product.Code] = product.ID
	return nil
}

// SavePricing stores price and tax rate when the stored version is the one
// product was loaded at
func (r *ProductRepository) SavePricing(_ context.Context, product *catalog.Product) error {
	rec, ok := r.store.product(product.ID)
	if !ok {
		return catalog.NewProductNotFound(product.ID)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.product.Version != product.Version-1 {
		return shared.NewConcurrencyConflict("product", nil)
	}
	rec.product.UnitPrice = product.UnitPrice
	rec.product.TaxRate = product.TaxRate
	rec.product.Version = product.Version
	rec.product.UpdatedAt = product.UpdatedAt
	return nil
}

func paginate[T any](items []T, page shared.Page) []T {
	page = page.Normalize()
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + page.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

var _ catalog.ProductRepository = (*ProductRepository)(nil)
