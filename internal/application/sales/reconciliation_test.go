package sales_test

import (
	"context"
	"testing"
	"time"

	appsales "github.com/erp/salesengine/internal/application/sales"
	"github.com/erp/salesengine/internal/domain/inventory"
	"github.com/erp/salesengine/internal/domain/sales"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/erp/salesengine/internal/infrastructure/memstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestReconciliationService(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New().Reconciliations()
	svc := appsales.NewReconciliationService(repo, nil)

	saleID := uuid.New()
	rec := sales.NewReconciliation(&sales.ReconciliationRequiredError{
		Operation: appsales.OpDeleteSale,
		SaleID:    saleID,
		Pending:   []inventory.Movement{{ProductID: uuid.New(), Quantity: 3, Direction: inventory.DirectionRelease}},
	}, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, rec))

	open, err := svc.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.NotNil(t, open[0].SaleID)
	assert.Equal(t, saleID, *open[0].SaleID)
	assert.Equal(t, "OPEN", open[0].Status)

	resolved, err := svc.Resolve(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "RESOLVED", resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)

	open, err = svc.ListOpen(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	t.Run("resolving twice is rejected", func(t *testing.T) {
		_, err := svc.Resolve(ctx, rec.ID)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("unknown record", func(t *testing.T) {
		_, err := svc.Resolve(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestReconciliationService_Run(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New().Reconciliations()
	core, logs := observer.New(zap.WarnLevel)
	svc := appsales.NewReconciliationService(repo, zap.New(core))
	assert.Equal(t, "reconciliation-monitor", svc.Name())

	require.NoError(t, svc.Run(ctx))
	assert.Zero(t, logs.Len(), "empty queue stays quiet")

	for i := 0; i < 2; i++ {
		rec := sales.NewReconciliation(&sales.ReconciliationRequiredError{
			Operation: appsales.OpUpdateItem,
			SaleID:    uuid.New(),
			Pending: []inventory.Movement{
				{ProductID: uuid.New(), Quantity: 1, Direction: inventory.DirectionReserve},
				{ProductID: uuid.New(), Quantity: 2, Direction: inventory.DirectionRelease},
			},
		}, time.Now().UTC().Add(-time.Duration(i+1)*time.Hour))
		require.NoError(t, repo.Create(ctx, rec))
	}

	require.NoError(t, svc.Run(ctx))
	entries := logs.FilterMessage("stock reconciliations awaiting an operator").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(2), fields["open"])
	assert.Equal(t, int64(4), fields["pending_movements"])
	assert.GreaterOrEqual(t, fields["oldest_age"].(time.Duration), 2*time.Hour)
}
