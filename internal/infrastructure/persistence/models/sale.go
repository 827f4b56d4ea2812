package models

import (
	"time"

	"github.com/erp/salesengine/internal/domain/sales"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleModel is the persistence model for the sale header
type SaleModel struct {
	AggregateModel
	SaleNumber string           `gorm:"type:varchar(32);not null;uniqueIndex:idx_sales_number"`
	CustomerID uuid.UUID        `gorm:"type:uuid;not null;index"`
	EmployeeID uuid.UUID        `gorm:"type:uuid;not null;index"`
	SaleDate   time.Time        `gorm:"not null;index"`
	Status     sales.SaleStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	SubTotal   decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	TaxTotal   decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	GrandTotal decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	Notes      string           `gorm:"type:text"`
	Items      []SaleItemModel  `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (SaleModel) TableName() string {
	return "sales"
}

// ToDomain converts the header and its loaded items to a domain Sale
func (m *SaleModel) ToDomain() *sales.Sale {
	items := make([]sales.SaleLineItem, len(m.Items))
	for i := range m.Items {
		items[i] = m.Items[i].ToDomain()
	}
	return &sales.Sale{
		Aggregate:  m.ToAggregate(),
		SaleNumber: m.SaleNumber,
		CustomerID: m.CustomerID,
		EmployeeID: m.EmployeeID,
		SaleDate:   m.SaleDate,
		Status:     m.Status,
		SubTotal:   m.SubTotal,
		TaxTotal:   m.TaxTotal,
		GrandTotal: m.GrandTotal,
		Notes:      m.Notes,
		Items:      items,
	}
}

// FromDomain populates the header and item models from a domain Sale
func (m *SaleModel) FromDomain(s *sales.Sale) {
	m.FromAggregate(s.Aggregate)
	m.SaleNumber = s.SaleNumber
	m.CustomerID = s.CustomerID
	m.EmployeeID = s.EmployeeID
	m.SaleDate = s.SaleDate
	m.Status = s.Status
	m.SubTotal = s.SubTotal
	m.TaxTotal = s.TaxTotal
	m.GrandTotal = s.GrandTotal
	m.Notes = s.Notes
	m.Items = make([]SaleItemModel, len(s.Items))
	for i := range s.Items {
		m.Items[i].FromDomain(&s.Items[i], i+1)
	}
}

// SaleModelFromDomain creates a persistence model from a domain Sale
func SaleModelFromDomain(s *sales.Sale) *SaleModel {
	m := &SaleModel{}
	m.FromDomain(s)
	return m
}

// SaleItemModel is the persistence model for a sale line item. UnitPrice and
// TaxRate hold the snapshot taken when the line was created.
type SaleItemModel struct {
	BaseModel
	SaleID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo      int             `gorm:"not null"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	Quantity    int64           `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxRate     decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	SubTotal    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Total       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (SaleItemModel) TableName() string {
	return "sale_line_items"
}

// ToDomain converts the persistence model to a domain line item
func (m *SaleItemModel) ToDomain() sales.SaleLineItem {
	return sales.SaleLineItem{
		Entity:      m.ToEntity(),
		SaleID:      m.SaleID,
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		TaxRate:     m.TaxRate,
		SubTotal:    m.SubTotal,
		TaxAmount:   m.TaxAmount,
		Total:       m.Total,
	}
}

// FromDomain populates the model from a domain line item at position lineNo
func (m *SaleItemModel) FromDomain(item *sales.SaleLineItem, lineNo int) {
	m.FromEntity(item.Entity)
	m.SaleID = item.SaleID
	m.LineNo = lineNo
	m.ProductID = item.ProductID
	m.ProductName = item.ProductName
	m.Quantity = item.Quantity
	m.UnitPrice = item.UnitPrice
	m.TaxRate = item.TaxRate
	m.SubTotal = item.SubTotal
	m.TaxAmount = item.TaxAmount
	m.Total = item.Total
}
