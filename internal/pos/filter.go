// Package pos holds the counter-side logic: catalog filtering, the cart
// ledger, and order finalization.
package pos

import (
	"sort"
	"strings"

	"cafe-pos-service/internal/domain"
)

// Filter returns the products of the given category that match query.
// Category matching is exact and case-sensitive. An empty query matches
// everything; otherwise it must be a case-insensitive substring of the title
// or of the subtype. Input order is preserved.
func Filter(products []domain.Product, category, query string) []domain.Product {
	out := make([]domain.Product, 0)
	q := strings.ToLower(query)
	for _, p := range products {
		if p.Category != category {
			continue
		}
		if matchesQuery(p, q) {
			out = append(out, p)
		}
	}
	return out
}

// FilterAll is Filter for the management view, where an empty category
// selects every category.
func FilterAll(products []domain.Product, category, query string) []domain.Product {
	if category != "" {
		return Filter(products, category, query)
	}
	out := make([]domain.Product, 0)
	q := strings.ToLower(query)
	for _, p := range products {
		if matchesQuery(p, q) {
			out = append(out, p)
		}
	}
	return out
}

func matchesQuery(p domain.Product, lowerQuery string) bool {
	if lowerQuery == "" {
		return true
	}
	if strings.Contains(strings.ToLower(p.Title), lowerQuery) {
		return true
	}
	return p.Subtype != "" && strings.Contains(strings.ToLower(p.Subtype), lowerQuery)
}

// DisplayCategory returns name if a category with that name exists, or
// domain.UncategorizedLabel for a dangling reference.
func DisplayCategory(name string, categories []domain.Category) string {
	for _, c := range categories {
		if c.Name == name {
			return name
		}
	}
	return domain.UncategorizedLabel
}

// SortCategories returns a copy of categories ordered by name.
func SortCategories(categories []domain.Category) []domain.Category {
	out := make([]domain.Category, len(categories))
	copy(out, categories)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
