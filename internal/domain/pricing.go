package domain

import "github.com/shopspring/decimal"

var (
	FreeShippingThreshold = decimal.NewFromInt(50)
	FlatShippingRate      = decimal.RequireFromString("9.99")
	TaxRate               = decimal.RequireFromString("0.08")
)

// Totals is the order summary shown in both the cart and the checkout views.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// FreeShipping reports whether the shipping line should read "Free".
func (t Totals) FreeShipping() bool {
	return t.Shipping.IsZero()
}

// ComputeTotals is the single shipping/tax formula. Cart and checkout views
// must both go through it.
func ComputeTotals(subtotal decimal.Decimal) Totals {
	shipping := FlatShippingRate
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(TaxRate)
	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}
