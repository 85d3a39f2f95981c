// Package pricing derives per-unit prices and tax rates for order lines
// from the totals supplied by the source system.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/order-importer/internal/importer/core/domain"
)

// LineAmounts is the priced result attached to an order line.
type LineAmounts struct {
	Quantity               int
	TotalPrice             domain.TaxedMoney
	UnitPrice              domain.TaxedMoney
	UndiscountedTotalPrice domain.TaxedMoney
	UndiscountedUnitPrice  domain.TaxedMoney
	TaxRate                decimal.Decimal
}

var one = decimal.NewFromInt(1)

// Calculate validates quantity and the two total-price pairs, then derives
// unit prices (total / quantity, quantized to currency precision) and the
// tax rate (given, or gross/net - 1 when net > 0, else zero). All failures
// are collected; a non-empty error list means no amounts are produced.
func Calculate(line domain.OrderLineInput) (*LineAmounts, []domain.BulkError) {
	var errs []domain.BulkError

	if !line.Quantity.IsInteger() || line.Quantity.LessThan(one) {
		errs = append(errs, domain.BulkError{
			Message: "Invalid quantity. Must be integer greater then or equal to 1.",
			Field:   "quantity",
			Code:    domain.CodeInvalidQuantity,
		})
	}
	if line.TotalPrice.Gross.LessThan(line.TotalPrice.Net) {
		errs = append(errs, domain.BulkError{
			Message: "Net price can't be greater then gross price.",
			Field:   "total_price",
			Code:    domain.CodePriceError,
		})
	}
	if line.UndiscountedTotalPrice.Gross.LessThan(line.UndiscountedTotalPrice.Net) {
		errs = append(errs, domain.BulkError{
			Message: "Net price can't be greater then gross price.",
			Field:   "undiscounted_total_price",
			Code:    domain.CodePriceError,
		})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	quantity := line.Quantity.IntPart()
	total := domain.TaxedMoney{Gross: line.TotalPrice.Gross, Net: line.TotalPrice.Net}
	undiscounted := domain.TaxedMoney{
		Gross: line.UndiscountedTotalPrice.Gross,
		Net:   line.UndiscountedTotalPrice.Net,
	}

	taxRate := decimal.Zero
	switch {
	case line.TaxRate != nil:
		taxRate = *line.TaxRate
	case total.Net.IsPositive():
		taxRate = total.Gross.Div(total.Net).Sub(one)
	}

	return &LineAmounts{
		Quantity:               int(quantity),
		TotalPrice:             total.Quantize(),
		UnitPrice:              total.Div(quantity),
		UndiscountedTotalPrice: undiscounted.Quantize(),
		UndiscountedUnitPrice:  undiscounted.Div(quantity),
		TaxRate:                taxRate,
	}, nil
}
