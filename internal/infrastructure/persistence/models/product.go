package models

import (
	"github.com/erp/salesengine/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for catalog.Product. StockQuantity
// is owned by the stock ledger and only changes through its row-locked
// updates.
type ProductModel struct {
	AggregateModel
	Code          string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_products_code"`
	Name          string          `gorm:"type:varchar(200);not null"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TaxRate       decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	StockQuantity int64           `gorm:"not null;default:0;check:chk_products_stock_non_negative,stock_quantity >= 0"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		Aggregate:     m.ToAggregate(),
		Code:          m.Code,
		Name:          m.Name,
		UnitPrice:     m.UnitPrice,
		TaxRate:       m.TaxRate,
		StockQuantity: m.StockQuantity,
	}
}

// FromDomain populates the persistence model from a domain Product
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromAggregate(p.Aggregate)
	m.Code = p.Code
	m.Name = p.Name
	m.UnitPrice = p.UnitPrice
	m.TaxRate = p.TaxRate
	m.StockQuantity = p.StockQuantity
}

// ProductModelFromDomain creates a persistence model from a domain Product
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
