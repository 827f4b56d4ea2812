package persistence

import (
	"context"
	"errors"

	"github.com/erp/salesengine/internal/domain/sales"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/erp/salesengine/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSaleRepository implements sales.SaleRepository using GORM. Line items
// live in sale_line_items and are always loaded in line order.
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

// FindByID finds a sale with its line items
func (r *GormSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	return r.findOne(ctx, r.db.WithContext(ctx), "id = ?", id)
}

// FindByIDForUpdate loads the sale holding the header row lock until the
// surrounding transaction ends
func (r *GormSaleRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	locked := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	return r.findOne(ctx, locked, "id = ?", id)
}

// FindBySaleNumber finds a sale by its number
func (r *GormSaleRepository) FindBySaleNumber(ctx context.Context, number string) (*sales.Sale, error) {
	sale, err := r.findOne(ctx, r.db.WithContext(ctx), "sale_number = ?", number)
	var notFound *sales.SaleNotFoundError
	if errors.As(err, &notFound) {
		return nil, sales.NewSaleNumberNotFound(number)
	}
	return sale, err
}

func (r *GormSaleRepository) findOne(ctx context.Context, db *gorm.DB, cond string, arg any) (*sales.Sale, error) {
	var model models.SaleModel
	if err := db.Where(cond, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			id, _ := arg.(uuid.UUID)
			return nil, sales.NewSaleNotFound(id)
		}
		return nil, classify("find sale", "sale", err)
	}
	if err := r.db.WithContext(ctx).Where("sale_id = ?", model.ID).Order("line_no ASC").Find(&model.Items).Error; err != nil {
		return nil, classify("load sale items", "sale", err)
	}
	return model.ToDomain(), nil
}

// FindAll lists sales newest first
func (r *GormSaleRepository) FindAll(ctx context.Context, filter sales.SaleFilter) ([]sales.Sale, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SaleModel{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.EmployeeID != nil {
		query = query.Where("employee_id = ?", *filter.EmployeeID)
	}
	if filter.From != nil {
		query = query.Where("sale_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("sale_date < ?", *filter.To)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, classify("count sales", "sale", err)
	}

	page := filter.Page.Normalize()
	var rows []models.SaleModel
	err := query.
		Preload("Items", preloadItems).
		Order("sale_date DESC").Order("sale_number DESC").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, classify("list sales", "sale", err)
	}

	out := make([]sales.Sale, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

// Save upserts the header and replaces the line items in one statement
// group. A second sale claiming an existing sale number fails as a
// persistence error.
func (r *GormSaleRepository) Save(ctx context.Context, sale *sales.Sale) error {
	if sale.SaleNumber == "" {
		return shared.NewInvalidArgument("sale_number", "is required")
	}
	model := models.SaleModelFromDomain(sale)
	items := model.Items
	model.Items = nil

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		if err := tx.Where("sale_id = ?", model.ID).Delete(&models.SaleItemModel{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return shared.NewPersistenceError("save sale",
				shared.NewDomainError(shared.ErrAlreadyExists.Code, "sale number "+sale.SaleNumber+" already exists"))
		}
		return classify("save sale", "sale", err)
	}
	return nil
}

// Delete removes the sale and its line items
func (r *GormSaleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sale_id = ?", id).Delete(&models.SaleItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.SaleModel{})
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return classify("delete sale", "sale", err)
	}
	if affected == 0 {
		return sales.NewSaleNotFound(id)
	}
	return nil
}

var _ sales.SaleRepository = (*GormSaleRepository)(nil)
