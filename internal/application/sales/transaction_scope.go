package sales

import (
	"context"

	"github.com/erp/salesengine/internal/domain/catalog"
	"github.com/erp/salesengine/internal/domain/inventory"
	"github.com/erp/salesengine/internal/domain/sales"
)

// TransactionScope runs a unit of work over the sale, product and stock stores.
type TransactionScope interface {
	// Execute runs fn as one unit of work. With a rollback-capable scope a
	// returned error undoes every write fn made.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error

	// SupportsRollback reports whether Execute undoes writes on error. When it
	// does not, the coordinator compensates stock movements itself.
	SupportsRollback() bool
}

// TransactionalRepositories gives access to the stores inside one unit of work.
// All of them share the same underlying transaction when the scope has one.
type TransactionalRepositories interface {
	SaleRepo() sales.SaleRepository
	ProductRepo() catalog.ProductRepository
	Ledger() inventory.StockLedger
	SaleNumbers() sales.SaleNumberGenerator
}

// NoOpTransactionScope runs fn directly against the given stores without any
// transaction. Writes are not rolled back.
type NoOpTransactionScope struct {
	saleRepo    sales.SaleRepository
	productRepo catalog.ProductRepository
	ledger      inventory.StockLedger
	numbers     sales.SaleNumberGenerator
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given stores.
func NewNoOpTransactionScope(
	saleRepo sales.SaleRepository,
	productRepo catalog.ProductRepository,
	ledger inventory.StockLedger,
	numbers sales.SaleNumberGenerator,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		saleRepo:    saleRepo,
		productRepo: productRepo,
		ledger:      ledger,
		numbers:     numbers,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// SupportsRollback always reports false.
func (s *NoOpTransactionScope) SupportsRollback() bool { return false }

func (s *NoOpTransactionScope) SaleRepo() sales.SaleRepository         { return s.saleRepo }
func (s *NoOpTransactionScope) ProductRepo() catalog.ProductRepository { return s.productRepo }
func (s *NoOpTransactionScope) Ledger() inventory.StockLedger          { return s.ledger }
func (s *NoOpTransactionScope) SaleNumbers() sales.SaleNumberGenerator { return s.numbers }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
