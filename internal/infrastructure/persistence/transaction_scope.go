package persistence

import (
	"context"
	"fmt"
	"time"

	appsales "github.com/erp/salesengine/internal/application/sales"
	"github.com/erp/salesengine/internal/domain/catalog"
	"github.com/erp/salesengine/internal/domain/inventory"
	"github.com/erp/salesengine/internal/domain/sales"
	"gorm.io/gorm"
)

// GormTransactionScope implements appsales.TransactionScope using GORM
// transactions. Every store handed to the unit of work shares the
// transaction, so an error rolls back stock, sale rows and the sale number
// sequence together.
type GormTransactionScope struct {
	db          *gorm.DB
	prefix      string
	lockTimeout time.Duration
}

// NewGormTransactionScope creates a new GormTransactionScope. lockTimeout
// bounds row lock waits inside the transaction on PostgreSQL; zero leaves
// the server default.
func NewGormTransactionScope(db *gorm.DB, numberPrefix string, lockTimeout time.Duration) *GormTransactionScope {
	return &GormTransactionScope{db: db, prefix: numberPrefix, lockTimeout: lockTimeout}
}

// Execute runs fn within a database transaction
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appsales.TransactionalRepositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.setLockTimeout(tx); err != nil {
			return err
		}
		return fn(&gormTransactionalRepositories{tx: tx, prefix: s.prefix})
	})
	if err != nil {
		if isDomainError(err) {
			return err
		}
		return classify("commit sale transaction", "sale", err)
	}
	return nil
}

// SupportsRollback reports true; the database undoes every write on error
func (s *GormTransactionScope) SupportsRollback() bool { return true }

func (s *GormTransactionScope) setLockTimeout(tx *gorm.DB) error {
	if s.lockTimeout <= 0 || tx.Dialector.Name() != "postgres" {
		return nil
	}
	stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
	if err := tx.Exec(stmt).Error; err != nil {
		return classify("set lock timeout", "sale", err)
	}
	return nil
}

// gormTransactionalRepositories provides the stores bound to one transaction
type gormTransactionalRepositories struct {
	tx     *gorm.DB
	prefix string
}

func (r *gormTransactionalRepositories) SaleRepo() sales.SaleRepository {
	return NewGormSaleRepository(r.tx)
}

func (r *gormTransactionalRepositories) ProductRepo() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

func (r *gormTransactionalRepositories) Ledger() inventory.StockLedger {
	return NewGormStockLedger(r.tx)
}

func (r *gormTransactionalRepositories) SaleNumbers() sales.SaleNumberGenerator {
	return NewGormSaleNumberGenerator(r.tx, r.prefix)
}

var (
	_ appsales.TransactionScope          = (*GormTransactionScope)(nil)
	_ appsales.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
