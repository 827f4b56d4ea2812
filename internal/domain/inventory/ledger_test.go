package inventory

import (
	"context"
	"math"
	"testing"

	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Reserve(ctx context.Context, productID uuid.UUID, quantity int64) error {
	return m.Called(ctx, productID, quantity).Error(0)
}

func (m *mockLedger) Release(ctx context.Context, productID uuid.UUID, quantity int64) error {
	return m.Called(ctx, productID, quantity).Error(0)
}

func (m *mockLedger) Available(ctx context.Context, productID uuid.UUID) (int64, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(int64), args.Error(1)
}

func TestInsufficientStockError(t *testing.T) {
	id := uuid.New()
	err := NewInsufficientStockError(id, 1, 5)

	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "available 1, requested 5")
	assert.Equal(t, map[string]any{
		"product_id": id.String(),
		"available":  int64(1),
		"requested":  int64(5),
	}, err.Details())
}

func TestMovement_InverseAndApply(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	ledger := new(mockLedger)
	ledger.On("Reserve", ctx, id, int64(3)).Return(nil).Once()
	ledger.On("Release", ctx, id, int64(3)).Return(nil).Once()

	m := Movement{ProductID: id, Quantity: 3, Direction: DirectionReserve}
	inv := m.Inverse()
	assert.Equal(t, DirectionRelease, inv.Direction)
	assert.Equal(t, m, inv.Inverse())

	require.NoError(t, m.Apply(ctx, ledger))
	require.NoError(t, inv.Apply(ctx, ledger))
	ledger.AssertExpectations(t)
}

func TestPlan_Movements(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	c := uuid.MustParse("00000000-0000-0000-0000-00000000000c")

	t.Run("aggregates per product", func(t *testing.T) {
		plan := NewPlan()
		plan.Reserve(b, 2)
		plan.Reserve(b, 3)
		plan.Reserve(a, 1)

		assert.Equal(t, []Movement{
			{ProductID: a, Quantity: 1, Direction: DirectionReserve},
			{ProductID: b, Quantity: 5, Direction: DirectionReserve},
		}, plan.Movements())
	})

	t.Run("nets reserve against release", func(t *testing.T) {
		plan := NewPlan()
		plan.Release(a, 2)
		plan.Reserve(a, 5)
		plan.Release(c, 4)
		plan.Reserve(b, 1)
		plan.Release(b, 1)

		assert.Equal(t, []Movement{
			{ProductID: c, Quantity: 4, Direction: DirectionRelease},
			{ProductID: a, Quantity: 3, Direction: DirectionReserve},
		}, plan.Movements())
	})

	t.Run("empty plan", func(t *testing.T) {
		assert.Empty(t, NewPlan().Movements())
	})
}

func TestPlan_Overflow(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")

	t.Run("reserves that wrap the total", func(t *testing.T) {
		plan := NewPlan()
		plan.Reserve(a, math.MaxInt64)
		plan.Reserve(a, math.MaxInt64)
		plan.Reserve(b, 1)
		assert.ErrorIs(t, plan.Err(), shared.ErrInvalidInput)
	})

	t.Run("release of the minimum value", func(t *testing.T) {
		plan := NewPlan()
		plan.Release(a, math.MinInt64)
		assert.ErrorIs(t, plan.Err(), shared.ErrInvalidInput)
	})

	t.Run("large totals that stay in range", func(t *testing.T) {
		plan := NewPlan()
		plan.Release(a, math.MaxInt64)
		plan.Reserve(a, math.MaxInt64)
		plan.Reserve(b, 3*MaxQuantity)
		require.NoError(t, plan.Err())
		assert.Equal(t, []Movement{
			{ProductID: b, Quantity: 3 * MaxQuantity, Direction: DirectionReserve},
		}, plan.Movements())
	})
}

func TestValidateQuantity(t *testing.T) {
	assert.NoError(t, ValidateQuantity("quantity", 1))
	assert.NoError(t, ValidateQuantity("quantity", MaxQuantity))
	assert.ErrorIs(t, ValidateQuantity("quantity", 0), shared.ErrInvalidInput)
	assert.ErrorIs(t, ValidateQuantity("quantity", MaxQuantity+1), shared.ErrInvalidInput)
}

func TestAddQuantity(t *testing.T) {
	sum, err := AddQuantity(2, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), sum)

	_, err = AddQuantity(math.MaxInt64, 1)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = AddQuantity(math.MinInt64, -1)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
