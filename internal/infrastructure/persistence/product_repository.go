package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/salesengine/internal/domain/catalog"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/erp/salesengine/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.NewProductNotFound(id)
		}
		return nil, classify("find product", "product", err)
	}
	return model.ToDomain(), nil
}

// FindByIDs loads the given products keyed by id. Unknown ids are absent
// from the result.
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	out := make(map[uuid.UUID]*catalog.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, classify("find products", "product", err)
	}
	for i := range rows {
		out[rows[i].ID] = rows[i].ToDomain()
	}
	return out, nil
}

// FindByCode finds a product by its code
func (r *GormProductRepository) FindByCode(ctx context.Context, code string) (*catalog.Product, error) {
	code = normalizeCode(code)
	var model models.ProductModel
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &catalog.ProductNotFoundError{Code: code}
		}
		return nil, classify("find product", "product", err)
	}
	return model.ToDomain(), nil
}

// FindAll lists products ordered by code, matching Search against code and name
func (r *GormProductRepository) FindAll(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ProductModel{})
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(code) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, classify("count products", "product", err)
	}

	page := filter.Page.Normalize()
	var rows []models.ProductModel
	if err := query.Order("code ASC").Offset(page.Offset()).Limit(page.PageSize).Find(&rows).Error; err != nil {
		return nil, 0, classify("list products", "product", err)
	}

	products := make([]catalog.Product, len(rows))
	for i := range rows {
		products[i] = *rows[i].ToDomain()
	}
	return products, total, nil
}

// ExistsByCode checks if a product code is taken
func (r *GormProductRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where("code = ?", normalizeCode(code)).
		Count(&count).Error
	if err != nil {
		return false, classify("check product code", "product", err)
	}
	return count > 0, nil
}

// Create inserts a new product including its opening stock
func (r *GormProductRepository) Create(ctx context.Context, product *catalog.Product) error {
	if err := r.db.WithContext(ctx).Create(models.ProductModelFromDomain(product)).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError(shared.ErrAlreadyExists.Code, "product code "+product.Code+" already exists")
		}
		return classify("create product", "product", err)
	}
	return nil
}

// SavePricing stores price and tax rate. The row must still be at the
// version the product was loaded at (product.Version - 1); stock is left to
// the ledger.
func (r *GormProductRepository) SavePricing(ctx context.Context, product *catalog.Product) error {
	result := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("id = ? AND version = ?", product.ID, product.Version-1).
		Updates(map[string]any{
			"unit_price": product.UnitPrice,
			"tax_rate":   product.TaxRate,
			"version":    product.Version,
			"updated_at": product.UpdatedAt,
		})
	if result.Error != nil {
		return classify("save product pricing", "product", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ProductModel{}).Where("id = ?", product.ID).Count(&count).Error; err != nil {
		return classify("save product pricing", "product", err)
	}
	if count == 0 {
		return catalog.NewProductNotFound(product.ID)
	}
	return shared.NewConcurrencyConflict("product", nil)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)
