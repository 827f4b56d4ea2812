package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/salesengine/internal/domain/catalog"
	"github.com/erp/salesengine/internal/domain/inventory"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProductRepository is a mock implementation of catalog.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(map[uuid.UUID]*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByCode(ctx context.Context, code string) (*catalog.Product, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]catalog.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) SavePricing(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

// MockStockLedger is a mock implementation of inventory.StockLedger
type MockStockLedger struct {
	mock.Mock
}

func (m *MockStockLedger) Reserve(ctx context.Context, productID uuid.UUID, quantity int64) error {
	return m.Called(ctx, productID, quantity).Error(0)
}

func (m *MockStockLedger) Release(ctx context.Context, productID uuid.UUID, quantity int64) error {
	return m.Called(ctx, productID, quantity).Error(0)
}

func (m *MockStockLedger) Available(ctx context.Context, productID uuid.UUID) (int64, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(int64), args.Error(1)
}

// MockEventPublisher captures published events
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	return m.Called(ctx, events).Error(0)
}

func newTestProduct(t *testing.T) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct("SKU-1", "Widget", decimal.NewFromInt(10), decimal.NewFromInt(18), 5)
	require.NoError(t, err)
	p.PullEvents()
	return p
}

func TestProductService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates product with opening stock", func(t *testing.T) {
		repo := new(MockProductRepository)
		pub := new(MockEventPublisher)
		svc := NewProductService(repo, new(MockStockLedger), nil)
		svc.SetEventPublisher(pub)

		repo.On("ExistsByCode", ctx, "sku-1").Return(false, nil)
		repo.On("Create", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil)
		pub.On("Publish", ctx, mock.MatchedBy(func(events []shared.DomainEvent) bool {
			return len(events) == 1 && events[0].EventType() == catalog.EventTypeProductCreated
		})).Return(nil)

		resp, err := svc.Create(ctx, CreateProductRequest{
			Code:          "sku-1",
			Name:          "Widget",
			UnitPrice:     decimal.NewFromInt(10),
			TaxRate:       decimal.NewFromInt(18),
			StockQuantity: 100,
		})
		require.NoError(t, err)
		assert.Equal(t, "SKU-1", resp.Code)
		assert.Equal(t, int64(100), resp.StockQuantity)
		assert.Equal(t, 1, resp.Version)
		repo.AssertExpectations(t)
		pub.AssertExpectations(t)
	})

	t.Run("rejects duplicate code", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo, new(MockStockLedger), nil)
		repo.On("ExistsByCode", ctx, "SKU-1").Return(true, nil)

		_, err := svc.Create(ctx, CreateProductRequest{Code: "SKU-1", Name: "Widget", UnitPrice: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo, new(MockStockLedger), nil)
		repo.On("ExistsByCode", ctx, "SKU-2").Return(false, nil)

		_, err := svc.Create(ctx, CreateProductRequest{Code: "SKU-2", Name: "Widget", UnitPrice: decimal.NewFromInt(-1)})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestProductService_ChangePrice(t *testing.T) {
	ctx := context.Background()

	t.Run("saves new pricing at the next version", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo, new(MockStockLedger), nil)
		product := newTestProduct(t)

		repo.On("FindByID", ctx, product.ID).Return(product, nil)
		repo.On("SavePricing", ctx, mock.MatchedBy(func(p *catalog.Product) bool {
			return p.Version == 2 && p.UnitPrice.Equal(decimal.NewFromInt(12))
		})).Return(nil)

		resp, err := svc.ChangePrice(ctx, product.ID, ChangePriceRequest{
			UnitPrice: decimal.NewFromInt(12),
			TaxRate:   decimal.NewFromInt(5),
			Version:   1,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, resp.Version)
		assert.True(t, decimal.NewFromInt(5).Equal(resp.TaxRate))
		repo.AssertExpectations(t)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo, new(MockStockLedger), nil)
		product := newTestProduct(t)
		repo.On("FindByID", ctx, product.ID).Return(product, nil)

		_, err := svc.ChangePrice(ctx, product.ID, ChangePriceRequest{UnitPrice: decimal.NewFromInt(12), Version: 3})
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		repo.AssertNotCalled(t, "SavePricing", mock.Anything, mock.Anything)
	})
}

func TestProductService_Restock(t *testing.T) {
	ctx := context.Background()

	t.Run("releases quantity through the ledger", func(t *testing.T) {
		repo := new(MockProductRepository)
		ledger := new(MockStockLedger)
		svc := NewProductService(repo, ledger, nil)
		product := newTestProduct(t)

		ledger.On("Release", ctx, product.ID, int64(20)).Return(nil)
		restocked := *product
		restocked.StockQuantity = 25
		repo.On("FindByID", ctx, product.ID).Return(&restocked, nil)

		resp, err := svc.Restock(ctx, product.ID, RestockRequest{Quantity: 20})
		require.NoError(t, err)
		assert.Equal(t, int64(25), resp.StockQuantity)
		ledger.AssertExpectations(t)
	})

	t.Run("unknown product", func(t *testing.T) {
		ledger := new(MockStockLedger)
		svc := NewProductService(new(MockProductRepository), ledger, nil)
		id := uuid.New()
		ledger.On("Release", ctx, id, int64(1)).Return(catalog.NewProductNotFound(id))

		_, err := svc.Restock(ctx, id, RestockRequest{Quantity: 1})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		svc := NewProductService(new(MockProductRepository), new(MockStockLedger), nil)
		_, err := svc.Restock(ctx, uuid.New(), RestockRequest{Quantity: 0})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("rejects quantity above the cap", func(t *testing.T) {
		ledger := new(MockStockLedger)
		svc := NewProductService(new(MockProductRepository), ledger, nil)
		_, err := svc.Restock(ctx, uuid.New(), RestockRequest{Quantity: inventory.MaxQuantity + 1})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		ledger.AssertNotCalled(t, "Release")
	})
}

func TestProductService_List(t *testing.T) {
	ctx := context.Background()
	repo := new(MockProductRepository)
	svc := NewProductService(repo, new(MockStockLedger), nil)
	product := newTestProduct(t)

	repo.On("FindAll", ctx, catalog.ProductFilter{Search: "wid", Page: shared.Page{Page: 1, PageSize: 20}}).
		Return([]catalog.Product{*product}, int64(1), nil)

	page, err := svc.List(ctx, ProductListFilter{Search: "wid"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, "SKU-1", page.Items[0].Code)
}

func TestProductService_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := new(MockProductRepository)
	svc := NewProductService(repo, new(MockStockLedger), nil)
	id := uuid.New()
	repo.On("FindByID", ctx, id).Return(nil, catalog.NewProductNotFound(id))

	_, err := svc.GetByID(ctx, id)
	var notFound *catalog.ProductNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, id, notFound.ProductID)
}
