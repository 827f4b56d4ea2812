package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	appsales "github.com/erp/salesengine/internal/application/sales"
	"github.com/erp/salesengine/internal/domain/inventory"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormTransactionScope_RollsBackEveryStore(t *testing.T) {
	db := newSQLiteDatabase(t)
	scope := db.Scope("")
	ctx := context.Background()
	p := seedProduct(t, db, "P-001", "10.00", "0", 5)
	boom := errors.New("boom")

	err := scope.Execute(ctx, func(repos appsales.TransactionalRepositories) error {
		require.NoError(t, repos.Ledger().Reserve(ctx, p.ID, 3))
		_, err := repos.SaleNumbers().Next(ctx, saleDay)
		require.NoError(t, err)
		require.NoError(t, repos.SaleRepo().Save(ctx, newSale(t, "SL20260105001", saleDay, p)))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, shared.ErrPersistenceFailure)

	available, err := NewGormStockLedger(db.DB).Available(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), available)

	_, err = NewGormSaleRepository(db.DB).FindBySaleNumber(ctx, "SL20260105001")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	next, err := NewGormSaleNumberGenerator(db.DB, "").Next(ctx, saleDay)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next, "rolled back sequence value is handed out again")
}

func TestGormTransactionScope_PassesDomainErrorsThrough(t *testing.T) {
	db := newSQLiteDatabase(t)
	ctx := context.Background()
	p := seedProduct(t, db, "P-001", "10.00", "0", 1)

	err := db.Scope("").Execute(ctx, func(repos appsales.TransactionalRepositories) error {
		return repos.Ledger().Reserve(ctx, p.ID, 2)
	})

	var insufficient *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.NotErrorIs(t, err, shared.ErrPersistenceFailure)
	assert.True(t, db.Scope("").SupportsRollback())
}

func TestGormTransactionScope_SetsLockTimeoutOnPostgres(t *testing.T) {
	gdb, mock := newMockPostgres(t)
	scope := NewGormTransactionScope(gdb, "", 1500*time.Millisecond)

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout = '1500ms'`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := scope.Execute(context.Background(), func(appsales.TransactionalRepositories) error { return nil })
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// The coordinator runs unchanged on top of the gorm scope; these cases cover
// the stock bookkeeping against real SQL.
func TestCoordinator_OverGormScope(t *testing.T) {
	db := newSQLiteDatabase(t)
	ctx := context.Background()
	lamp := seedProduct(t, db, "LAMP", "10.00", "18", 10)
	chair := seedProduct(t, db, "CHAIR", "25.00", "0", 1)
	ledger := NewGormStockLedger(db.DB)

	coord := appsales.NewCoordinator(db.Scope(""), NewGormSaleRepository(db.DB), appsales.DefaultConfig(), nil)
	coord.SetReconciliationRepository(NewGormReconciliationRepository(db.DB))
	coord.SetClock(func() time.Time { return saleDay })

	created, err := coord.CreateSale(ctx, appsales.CreateSaleRequest{
		CustomerID: uuid.New(),
		EmployeeID: uuid.New(),
		Items:      []appsales.SaleItemInput{{ProductID: lamp.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, "SL20260105001", created.SaleNumber)
	assert.True(t, created.GrandTotal.Equal(decimal.RequireFromString("47.20")), created.GrandTotal.String())
	assertStock(t, ledger, lamp.ID, 6)

	t.Run("insufficient stock leaves nothing behind", func(t *testing.T) {
		_, err := coord.CreateSale(ctx, appsales.CreateSaleRequest{
			CustomerID: uuid.New(),
			EmployeeID: uuid.New(),
			Items: []appsales.SaleItemInput{
				{ProductID: lamp.ID, Quantity: 2},
				{ProductID: chair.ID, Quantity: 5},
			},
		})
		var insufficient *inventory.InsufficientStockError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, int64(1), insufficient.Available)
		assert.Equal(t, int64(5), insufficient.Requested)
		assertStock(t, ledger, lamp.ID, 6)
		assertStock(t, ledger, chair.ID, 1)
	})

	t.Run("edit moves only the delta", func(t *testing.T) {
		updated, err := coord.UpdateLineItem(ctx, created.ID, created.Items[0].ID, appsales.UpdateSaleItemRequest{
			ProductID: lamp.ID,
			Quantity:  7,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(7), updated.Items[0].Quantity)
		assertStock(t, ledger, lamp.ID, 3)
	})

	t.Run("deleting the sale restores stock", func(t *testing.T) {
		require.NoError(t, coord.DeleteSale(ctx, created.ID))
		assertStock(t, ledger, lamp.ID, 10)
		_, err := coord.GetSale(ctx, created.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func assertStock(t *testing.T, ledger *GormStockLedger, productID uuid.UUID, want int64) {
	t.Helper()
	available, err := ledger.Available(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, want, available)
}
