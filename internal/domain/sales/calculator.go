package sales

import (
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places line amounts are rounded to
const MoneyScale int32 = 2

var hundred = decimal.NewFromInt(100)

// LineAmounts holds the derived monetary values of one line item
type LineAmounts struct {
	SubTotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// CalculateLine derives subtotal, tax and total for one line.
//
//	subtotal = unitPrice * quantity
//	tax      = subtotal * taxRatePercent / 100
//	total    = subtotal + tax
//
// Subtotal and tax are each rounded half away from zero to MoneyScale places,
// so total always equals the sum of the two displayed values.
func CalculateLine(unitPrice decimal.Decimal, quantity int64, taxRatePercent decimal.Decimal) (LineAmounts, error) {
	if unitPrice.IsNegative() {
		return LineAmounts{}, shared.NewInvalidArgument("unit_price", "cannot be negative")
	}
	if quantity <= 0 {
		return LineAmounts{}, shared.NewInvalidArgument("quantity", "must be positive")
	}
	if taxRatePercent.IsNegative() {
		return LineAmounts{}, shared.NewInvalidArgument("tax_rate", "cannot be negative")
	}

	subtotal := unitPrice.Mul(decimal.NewFromInt(quantity)).Round(MoneyScale)
	tax := subtotal.Mul(taxRatePercent).Div(hundred).Round(MoneyScale)
	return LineAmounts{
		SubTotal:  subtotal,
		TaxAmount: tax,
		Total:     subtotal.Add(tax),
	}, nil
}
