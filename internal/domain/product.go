package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus is the availability of a product at the counter.
type ProductStatus string

const (
	StatusInStock ProductStatus = "In Stock"
	StatusSoldOut ProductStatus = "Sold Out"
)

// Valid reports whether s is one of the known statuses.
func (s ProductStatus) Valid() bool {
	return s == StatusInStock || s == StatusSoldOut
}

// UncategorizedLabel is shown for products whose category name no longer
// matches any category.
const UncategorizedLabel = "Uncategorized"

// DefaultUnit is used when a product is saved without a unit label.
const DefaultUnit = "piece"

// Category represents a product category in the system.
// Products reference a category by Name, not by ID.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Product represents a product in the catalog.
// The json tags correspond to the fields expected in API responses/requests.
type Product struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Subtype   string          `json:"type,omitempty"` // optional label, empty when absent
	Price     decimal.Decimal `json:"price"`
	Unit      string          `json:"unit"`
	Detail    string          `json:"detail"`
	Image     string          `json:"image"`
	Status    ProductStatus   `json:"status"`
	Category  string          `json:"category"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SoldOut reports whether the product can not be sold right now.
func (p Product) SoldOut() bool {
	return p.Status == StatusSoldOut
}

// ProductPatch carries a partial product update. Nil fields are left unchanged.
type ProductPatch struct {
	Title    *string
	Subtype  *string
	Price    *decimal.Decimal
	Unit     *string
	Detail   *string
	Image    *string
	Status   *ProductStatus
	Category *string
}

// Empty reports whether the patch would change nothing.
func (p ProductPatch) Empty() bool {
	return p.Title == nil && p.Subtype == nil && p.Price == nil && p.Unit == nil &&
		p.Detail == nil && p.Image == nil && p.Status == nil && p.Category == nil
}
