package catalog

import (
	"strings"

	"github.com/erp/salesengine/internal/domain/inventory"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	maxCodeLength = 50
	maxNameLength = 200
)

// Product is a sellable catalog item. StockQuantity is the quantity still
// available for reservation and never drops below zero.
type Product struct {
	shared.Aggregate
	Code          string
	Name          string
	UnitPrice     decimal.Decimal
	TaxRate       decimal.Decimal // percent, e.g. 18 for 18%
	StockQuantity int64
}

// NewProduct creates a new product with an opening stock quantity
func NewProduct(code, name string, unitPrice, taxRate decimal.Decimal, openingStock int64) (*Product, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || len(code) > maxCodeLength {
		return nil, shared.NewInvalidArgument("code", "must be 1-50 characters")
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return nil, shared.NewInvalidArgument("name", "must be 1-200 characters")
	}
	if err := validatePricing(unitPrice, taxRate); err != nil {
		return nil, err
	}
	if openingStock < 0 {
		return nil, shared.NewInvalidArgument("stock_quantity", "cannot be negative")
	}

	p := &Product{
		Aggregate:     shared.NewAggregate(),
		Code:          code,
		Name:          name,
		UnitPrice:     unitPrice,
		TaxRate:       taxRate,
		StockQuantity: openingStock,
	}
	p.RecordEvent(NewProductCreatedEvent(p))
	return p, nil
}

// ChangePricing sets a new list price and tax rate. Line items already sold
// keep the price they were created with.
func (p *Product) ChangePricing(unitPrice, taxRate decimal.Decimal) error {
	if err := validatePricing(unitPrice, taxRate); err != nil {
		return err
	}
	old := p.UnitPrice
	p.UnitPrice = unitPrice
	p.TaxRate = taxRate
	p.Touch()
	p.IncrementVersion()
	p.RecordEvent(NewProductPriceChangedEvent(p, old))
	return nil
}

// Reserve takes quantity out of available stock. Stock moves do not bump
// Version; the ledger serializes them with row locks instead.
func (p *Product) Reserve(quantity int64) error {
	if quantity <= 0 {
		return shared.NewInvalidArgument("quantity", "must be positive")
	}
	if p.StockQuantity < quantity {
		return inventory.NewInsufficientStockError(p.ID, p.StockQuantity, quantity)
	}
	p.StockQuantity -= quantity
	p.Touch()
	return nil
}

// Release returns quantity to available stock. A release that would push
// stock past the int64 range is rejected.
func (p *Product) Release(quantity int64) error {
	if quantity <= 0 {
		return shared.NewInvalidArgument("quantity", "must be positive")
	}
	stock, err := inventory.AddQuantity(p.StockQuantity, quantity)
	if err != nil {
		return err
	}
	p.StockQuantity = stock
	p.Touch()
	return nil
}

// Snapshot captures the pricing a line item freezes at creation time
func (p *Product) Snapshot() Snapshot {
	return Snapshot{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.UnitPrice,
		TaxRate:   p.TaxRate,
	}
}

// Snapshot is the immutable view of a product's pricing at one point in time
type Snapshot struct {
	ProductID uuid.UUID
	Name      string
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal
}

func validatePricing(unitPrice, taxRate decimal.Decimal) error {
	if unitPrice.IsNegative() {
		return shared.NewInvalidArgument("unit_price", "cannot be negative")
	}
	if taxRate.IsNegative() {
		return shared.NewInvalidArgument("tax_rate", "cannot be negative")
	}
	if taxRate.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewInvalidArgument("tax_rate", "cannot exceed 100 percent")
	}
	return nil
}
