package pos

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cafe-pos-service/internal/domain"
)

func sampleProducts() []domain.Product {
	return []domain.Product{
		{ID: "1", Title: "Latte", Category: "Drinks", Status: domain.StatusInStock},
		{ID: "2", Title: "Croissant", Category: "Bakery", Status: domain.StatusInStock},
		{ID: "3", Title: "Iced Tea", Subtype: "Thai Tea", Category: "Drinks", Status: domain.StatusSoldOut},
		{ID: "4", Title: "Mocha", Subtype: "Hot", Category: "drinks"},
	}
}

func titles(ps []domain.Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Title)
	}
	return out
}

func TestFilter(t *testing.T) {
	products := sampleProducts()

	tests := []struct {
		name     string
		category string
		query    string
		want     []string
	}{
		{name: "category only", category: "Drinks", want: []string{"Latte", "Iced Tea"}},
		{name: "case-insensitive title", category: "Drinks", query: "lat", want: []string{"Latte"}},
		{name: "matches subtype", category: "Drinks", query: "THAI", want: []string{"Iced Tea"}},
		{name: "category is case-sensitive", category: "drinks", want: []string{"Mocha"}},
		{name: "no match", category: "Drinks", query: "croissant", want: []string{}},
		{name: "unknown category", category: "Desserts", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, titles(Filter(products, tt.category, tt.query)))
		})
	}
}

func TestFilter_EmptyInput(t *testing.T) {
	assert.Empty(t, Filter(nil, "Drinks", ""))
	assert.NotNil(t, Filter(nil, "Drinks", ""))
}

func TestFilter_SearchWithinCategory(t *testing.T) {
	products := []domain.Product{
		{Title: "Latte", Category: "Drinks"},
		{Title: "Croissant", Category: "Bakery"},
	}
	assert.Equal(t, []string{"Latte"}, titles(Filter(products, "Drinks", "")))
	assert.Equal(t, []string{"Latte"}, titles(Filter(products, "Drinks", "lat")))
}

func TestFilterAll(t *testing.T) {
	products := sampleProducts()

	assert.Equal(t, []string{"Latte", "Croissant", "Iced Tea", "Mocha"}, titles(FilterAll(products, "", "")))
	assert.Equal(t, []string{"Mocha"}, titles(FilterAll(products, "", "hot")))
	assert.Equal(t, []string{"Croissant"}, titles(FilterAll(products, "Bakery", "")))
}

func TestDisplayCategory(t *testing.T) {
	cats := []domain.Category{{ID: "c1", Name: "Drinks"}, {ID: "c2", Name: "Bakery"}}

	assert.Equal(t, "Drinks", DisplayCategory("Drinks", cats))
	assert.Equal(t, domain.UncategorizedLabel, DisplayCategory("Seasonal", cats))
	assert.Equal(t, domain.UncategorizedLabel, DisplayCategory("Drinks", nil))
}

func TestSortCategoriesDoesNotMutate(t *testing.T) {
	cats := []domain.Category{{Name: "Drinks"}, {Name: "Bakery"}, {Name: "Desserts"}}

	sorted := SortCategories(cats)

	assert.Equal(t, "Bakery", sorted[0].Name)
	assert.Equal(t, "Desserts", sorted[1].Name)
	assert.Equal(t, "Drinks", sorted[2].Name)
	assert.Equal(t, "Drinks", cats[0].Name)
}
