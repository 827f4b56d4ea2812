package memstore

import (
	"context"

	appsales "github.com/erp/salesengine/internal/application/sales"
	"github.com/erp/salesengine/internal/domain/catalog"
	"github.com/erp/salesengine/internal/domain/inventory"
	"github.com/erp/salesengine/internal/domain/sales"
	"github.com/google/uuid"
)

// Scope runs units of work directly against the store. Writes are not
// rolled back; sales loaded for update stay locked until the unit ends.
type Scope struct {
	store *Store
}

// NewScope creates a Scope over store
func NewScope(store *Store) *Scope {
	return &Scope{store: store}
}

// Execute runs fn with a session that releases its sale locks afterwards
func (s *Scope) Execute(_ context.Context, fn func(repos appsales.TransactionalRepositories) error) error {
	sess := &session{store: s.store, held: make(map[uuid.UUID]func())}
	defer sess.unlockAll()
	return fn(sess)
}

// SupportsRollback reports false
func (s *Scope) SupportsRollback() bool { return false }

type session struct {
	store *Store
	held  map[uuid.UUID]func()
}

func (s *session) SaleRepo() sales.SaleRepository {
	return &SaleRepository{store: s.store, sess: s}
}

func (s *session) ProductRepo() catalog.ProductRepository { return s.store.Products() }
func (s *session) Ledger() inventory.StockLedger          { return s.store.Ledger() }
func (s *session) SaleNumbers() sales.SaleNumberGenerator { return s.store.SaleNumbers() }

func (s *session) lock(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.held[id]; ok {
		return nil
	}
	unlock, err := s.store.locks.acquire(ctx, id)
	if err != nil {
		return err
	}
	s.held[id] = unlock
	return nil
}

func (s *session) unlockAll() {
	for id, unlock := range s.held {
		unlock()
		delete(s.held, id)
	}
}

var (
	_ appsales.TransactionScope          = (*Scope)(nil)
	_ appsales.TransactionalRepositories = (*session)(nil)
)
