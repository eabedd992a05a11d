package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartEntry is a value copy of a product taken when it was added to the
// cart, plus a strictly positive quantity.
type CartEntry struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// LineTotal is price times quantity.
func (e CartEntry) LineTotal() decimal.Decimal {
	return e.Product.Price.Mul(decimal.NewFromInt(int64(e.Quantity)))
}

// Breakdown splits a VAT-inclusive gross amount into net and tax.
type Breakdown struct {
	Gross decimal.Decimal `json:"gross"`
	Net   decimal.Decimal `json:"net"`
	Tax   decimal.Decimal `json:"tax"`
}

// Receipt is what the cashier sees after confirming payment. There is no
// receipt number and receipts are not stored anywhere.
type Receipt struct {
	Total  decimal.Decimal `json:"total"`
	Net    decimal.Decimal `json:"net"`
	Tax    decimal.Decimal `json:"tax"`
	PaidAt time.Time       `json:"paid_at"`
}
