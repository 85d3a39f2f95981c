package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/order-importer/internal/importer/core/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func lineInput(quantity, net, gross string) domain.OrderLineInput {
	return domain.OrderLineInput{
		Quantity: dec(quantity),
		TotalPrice: domain.TaxedMoneyInput{
			Net:   dec(net),
			Gross: dec(gross),
		},
		UndiscountedTotalPrice: domain.TaxedMoneyInput{
			Net:   dec(net),
			Gross: dec(gross),
		},
	}
}

func TestCalculateDerivesUnitPrices(t *testing.T) {
	amounts, errs := Calculate(lineInput("3", "10", "20"))
	require.Empty(t, errs)

	assert.Equal(t, 3, amounts.Quantity)
	// 20 / 3 and 10 / 3 rounded half-up to currency precision.
	assert.True(t, amounts.UnitPrice.Gross.Equal(dec("6.67")), "gross unit %s", amounts.UnitPrice.Gross)
	assert.True(t, amounts.UnitPrice.Net.Equal(dec("3.33")), "net unit %s", amounts.UnitPrice.Net)
	assert.True(t, amounts.TotalPrice.Gross.Equal(dec("20")))
	assert.True(t, amounts.TotalPrice.Net.Equal(dec("10")))
}

func TestCalculateRoundsHalfUp(t *testing.T) {
	amounts, errs := Calculate(lineInput("1", "0.125", "0.125"))
	require.Empty(t, errs)

	assert.True(t, amounts.TotalPrice.Net.Equal(dec("0.13")), "got %s", amounts.TotalPrice.Net)
	assert.True(t, amounts.UnitPrice.Net.Equal(dec("0.13")))
}

func TestCalculateDerivesTaxRate(t *testing.T) {
	amounts, errs := Calculate(lineInput("1", "100", "120"))
	require.Empty(t, errs)
	assert.True(t, amounts.TaxRate.Equal(dec("0.2")), "got %s", amounts.TaxRate)
}

func TestCalculateKeepsGivenTaxRate(t *testing.T) {
	in := lineInput("1", "100", "120")
	rate := dec("0.23")
	in.TaxRate = &rate

	amounts, errs := Calculate(in)
	require.Empty(t, errs)
	assert.True(t, amounts.TaxRate.Equal(rate))
}

func TestCalculateZeroNetMeansZeroTaxRate(t *testing.T) {
	amounts, errs := Calculate(lineInput("1", "0", "0"))
	require.Empty(t, errs)
	assert.True(t, amounts.TaxRate.IsZero())
}

func TestCalculateRejectsBadQuantity(t *testing.T) {
	for _, quantity := range []string{"0", "-1", "1.5"} {
		_, errs := Calculate(lineInput(quantity, "10", "12"))
		require.Len(t, errs, 1, "quantity %s", quantity)
		assert.Equal(t, "Invalid quantity. Must be integer greater then or equal to 1.", errs[0].Message)
		assert.Equal(t, "quantity", errs[0].Field)
		assert.Equal(t, domain.CodeInvalidQuantity, errs[0].Code)
	}
}

func TestCalculateRejectsNetAboveGross(t *testing.T) {
	in := lineInput("1", "120", "100")
	_, errs := Calculate(in)
	require.Len(t, errs, 2)

	assert.Equal(t, "Net price can't be greater then gross price.", errs[0].Message)
	assert.Equal(t, "total_price", errs[0].Field)
	assert.Equal(t, domain.CodePriceError, errs[0].Code)
	assert.Equal(t, "undiscounted_total_price", errs[1].Field)
}

func TestCalculateCollectsAllErrors(t *testing.T) {
	in := lineInput("0", "120", "100")
	_, errs := Calculate(in)
	assert.Len(t, errs, 3)
}
