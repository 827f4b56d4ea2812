// Package memstore is an in-process store for products, sales and stock.
// It backs the service when no database is configured and serves as the
// non-transactional scope in tests: writes are applied immediately and the
// sale coordinator compensates stock movements on failure.
package memstore

import (
	"context"
	"sync"

	"github.com/erp/salesengine/internal/domain/catalog"
	"github.com/erp/salesengine/internal/domain/sales"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/google/uuid"
)

// Store holds all in-memory state
type Store struct {
	mu          sync.RWMutex
	products    map[uuid.UUID]*productRecord
	codes       map[string]uuid.UUID
	sales       map[uuid.UUID]*sales.Sale
	saleNumbers map[string]uuid.UUID
	sequences   map[string]int64
	records     []sales.Reconciliation

	locks *keyedLocks
}

// productRecord guards one product. Its mutex serializes stock movements
// for that product only.
type productRecord struct {
	mu      sync.Mutex
	product catalog.Product
}

// New creates an empty store
func New() *Store {
	return &Store{
		products:    make(map[uuid.UUID]*productRecord),
		codes:       make(map[string]uuid.UUID),
		sales:       make(map[uuid.UUID]*sales.Sale),
		saleNumbers: make(map[string]uuid.UUID),
		sequences:   make(map[string]int64),
		locks:       newKeyedLocks(),
	}
}

// Products returns the product repository
func (s *Store) Products() *ProductRepository {
	return &ProductRepository{store: s}
}

// Sales returns a sale repository that takes no locks
func (s *Store) Sales() *SaleRepository {
	return &SaleRepository{store: s}
}

// Ledger returns the stock ledger
func (s *Store) Ledger() *StockLedger {
	return &StockLedger{store: s}
}

// Reconciliations returns the reconciliation repository
func (s *Store) Reconciliations() *ReconciliationRepository {
	return &ReconciliationRepository{store: s}
}

// SaleNumbers returns the sale number generator
func (s *Store) SaleNumbers() *SaleNumberGenerator {
	return &SaleNumberGenerator{store: s}
}

func (s *Store) product(id uuid.UUID) (*productRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.products[id]
	return rec, ok
}

func cloneProduct(p *catalog.Product) *catalog.Product {
	c := *p
	c.PullEvents()
	return &c
}

func cloneSale(sale *sales.Sale) *sales.Sale {
	c := *sale
	c.Items = make([]sales.SaleLineItem, len(sale.Items))
	copy(c.Items, sale.Items)
	c.PullEvents()
	return &c
}

// keyedLocks hands out one context-aware mutex per id
type keyedLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]chan struct{}
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[uuid.UUID]chan struct{})}
}

// acquire blocks until the lock for id is held or ctx is done
func (k *keyedLocks) acquire(ctx context.Context, id uuid.UUID) (func(), error) {
	k.mu.Lock()
	ch, ok := k.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		k.locks[id] = ch
	}
	k.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, shared.NewConcurrencyConflict("sale", ctx.Err())
	}
}
