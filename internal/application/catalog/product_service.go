package catalog

import (
	"context"

	"github.com/erp/salesengine/internal/domain/catalog"
	"github.com/erp/salesengine/internal/domain/inventory"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductService handles product-related business operations
type ProductService struct {
	productRepo    catalog.ProductRepository
	ledger         inventory.StockLedger
	logger         *zap.Logger
	eventPublisher shared.EventPublisher
}

// NewProductService creates a new ProductService. Restocking goes through
// ledger so it serializes with sale reservations.
func NewProductService(productRepo catalog.ProductRepository, ledger inventory.StockLedger, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		productRepo: productRepo,
		ledger:      ledger,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for product events
func (s *ProductService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a new product with its opening stock
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	exists, err := s.productRepo.ExistsByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError(shared.ErrAlreadyExists.Code, "Product with this code already exists")
	}

	product, err := catalog.NewProduct(req.Code, req.Name, req.UnitPrice, req.TaxRate, req.StockQuantity)
	if err != nil {
		return nil, err
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}
	s.publish(ctx, product)

	resp := ToProductResponse(product)
	return &resp, nil
}

// GetByID retrieves a product by ID
func (s *ProductService) GetByID(ctx context.Context, productID uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// GetByCode retrieves a product by code
func (s *ProductService) GetByCode(ctx context.Context, code string) (*ProductResponse, error) {
	product, err := s.productRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// List retrieves a page of products
func (s *ProductService) List(ctx context.Context, filter ProductListFilter) (shared.Paginated[ProductResponse], error) {
	page := shared.Page{Page: filter.Page, PageSize: filter.PageSize}.Normalize()
	products, total, err := s.productRepo.FindAll(ctx, catalog.ProductFilter{
		Search: filter.Search,
		Page:   page,
	})
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}

	items := make([]ProductResponse, len(products))
	for i := range products {
		items[i] = ToProductResponse(&products[i])
	}
	return shared.NewPaginated(items, total, page), nil
}

// ChangePrice sets a new list price and tax rate. Line items already on
// sales keep their price snapshot.
func (s *ProductService) ChangePrice(ctx context.Context, productID uuid.UUID, req ChangePriceRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Version != req.Version {
		return nil, shared.NewConcurrencyConflict("product", nil)
	}

	if err := product.ChangePricing(req.UnitPrice, req.TaxRate); err != nil {
		return nil, err
	}
	if err := s.productRepo.SavePricing(ctx, product); err != nil {
		return nil, err
	}
	s.publish(ctx, product)

	resp := ToProductResponse(product)
	return &resp, nil
}

// Restock adds quantity to the product's available stock
func (s *ProductService) Restock(ctx context.Context, productID uuid.UUID, req RestockRequest) (*ProductResponse, error) {
	if err := inventory.ValidateQuantity("quantity", req.Quantity); err != nil {
		return nil, err
	}
	if err := s.ledger.Release(ctx, productID, req.Quantity); err != nil {
		return nil, err
	}
	s.logger.Info("product restocked",
		zap.String("product_id", productID.String()),
		zap.Int64("quantity", req.Quantity),
	)
	return s.GetByID(ctx, productID)
}

func (s *ProductService) publish(ctx context.Context, product *catalog.Product) {
	events := product.PullEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish product events",
			zap.String("product_id", product.ID.String()),
			zap.Error(err),
		)
	}
}
