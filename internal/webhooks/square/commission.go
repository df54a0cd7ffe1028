package squarewebhook

import "github.com/shopspring/decimal"

// Rates converts a card total back to the pre-fee subtotal and the
// commission owed on it.
type Rates struct {
	Commission decimal.Decimal
	Surcharge  decimal.Decimal
	SalesTax   decimal.Decimal
}

func (r Rates) valid() bool {
	return r.Commission.IsPositive() && r.Surcharge.IsPositive() && r.SalesTax.IsPositive()
}

// Split returns subtotal = round2(total / surcharge / tax) and
// commission = round2(subtotal * rate).
func (r Rates) Split(total decimal.Decimal) (subtotal, commission decimal.Decimal) {
	subtotal = total.Div(r.Surcharge).Div(r.SalesTax).Round(2)
	commission = subtotal.Mul(r.Commission).Round(2)
	return subtotal, commission
}
