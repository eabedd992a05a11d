package pos

import (
	"github.com/shopspring/decimal"

	"cafe-pos-service/internal/domain"
)

// vatDivisor turns a 7% VAT-inclusive gross amount into its net part.
var vatDivisor = decimal.RequireFromString("1.07")

// Ledger is the cart of one session: an insertion-ordered map from product
// id to entry. It holds at most one entry per product id.
// A Ledger is not safe for concurrent use.
type Ledger struct {
	order   []string
	entries map[string]*domain.CartEntry
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]*domain.CartEntry)}
}

// Add puts one unit of product into the cart. Sold-out products are ignored.
// The product is copied, so later catalog changes do not affect the entry.
func (l *Ledger) Add(product domain.Product) {
	if product.SoldOut() {
		return
	}
	if e, ok := l.entries[product.ID]; ok {
		e.Quantity++
		return
	}
	l.entries[product.ID] = &domain.CartEntry{Product: product, Quantity: 1}
	l.order = append(l.order, product.ID)
}

// Remove deletes the entry for productID, if any.
func (l *Ledger) Remove(productID string) {
	if _, ok := l.entries[productID]; !ok {
		return
	}
	delete(l.entries, productID)
	for i, id := range l.order {
		if id == productID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// SetQuantityDelta adds delta to the quantity of productID. The quantity
// never drops below 1; use Remove to delete a line.
func (l *Ledger) SetQuantityDelta(productID string, delta int) {
	e, ok := l.entries[productID]
	if !ok {
		return
	}
	e.Quantity = max(1, e.Quantity+delta)
}

// Clear empties the ledger.
func (l *Ledger) Clear() {
	l.order = nil
	l.entries = make(map[string]*domain.CartEntry)
}

// Len is the number of lines in the cart.
func (l *Ledger) Len() int {
	return len(l.order)
}

// Entries returns copies of the cart lines in insertion order.
func (l *Ledger) Entries() []domain.CartEntry {
	out := make([]domain.CartEntry, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.entries[id])
	}
	return out
}

// Quantity returns the quantity for productID, or 0 if it is not in the cart.
func (l *Ledger) Quantity(productID string) int {
	if e, ok := l.entries[productID]; ok {
		return e.Quantity
	}
	return 0
}

// Total is the gross amount: the sum of price times quantity.
func (l *Ledger) Total() decimal.Decimal {
	total := decimal.Zero
	for _, id := range l.order {
		total = total.Add(l.entries[id].LineTotal())
	}
	return total
}

// Breakdown returns the total split into net and 7% VAT.
func (l *Ledger) Breakdown() domain.Breakdown {
	return SplitVAT(l.Total())
}

// SplitVAT splits a VAT-inclusive gross amount: net = gross / 1.07 and
// tax = gross - net, so net + tax is always exactly gross.
func SplitVAT(gross decimal.Decimal) domain.Breakdown {
	net := gross.Div(vatDivisor)
	return domain.Breakdown{
		Gross: gross,
		Net:   net,
		Tax:   gross.Sub(net),
	}
}
