package domain

import "github.com/shopspring/decimal"

// CurrencyPrecision is the number of decimal places monetary amounts are
// quantized to. Rounding is half-up (half away from zero); amounts here are
// never negative so the two coincide.
const CurrencyPrecision = 2

// Money is an amount in a specific currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// TaxedMoney is a gross/net amount pair. Invariant: net <= gross.
type TaxedMoney struct {
	Gross decimal.Decimal `json:"gross"`
	Net   decimal.Decimal `json:"net"`
}

// Quantize rounds both amounts to currency precision.
func (m TaxedMoney) Quantize() TaxedMoney {
	return TaxedMoney{
		Gross: m.Gross.Round(CurrencyPrecision),
		Net:   m.Net.Round(CurrencyPrecision),
	}
}

// Add returns the pair-wise sum of two taxed amounts.
func (m TaxedMoney) Add(other TaxedMoney) TaxedMoney {
	return TaxedMoney{
		Gross: m.Gross.Add(other.Gross),
		Net:   m.Net.Add(other.Net),
	}
}

// Div divides both amounts by the given quantity and quantizes the result.
func (m TaxedMoney) Div(quantity int64) TaxedMoney {
	q := decimal.NewFromInt(quantity)
	return TaxedMoney{
		Gross: m.Gross.Div(q).Round(CurrencyPrecision),
		Net:   m.Net.Div(q).Round(CurrencyPrecision),
	}
}
