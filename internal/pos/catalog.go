package pos

import (
	"sync"
	"time"

	"cafe-pos-service/internal/domain"
)

// Catalog is the read-only cached snapshot of the live product and category
// collections. Each store notification replaces a collection wholesale.
type Catalog struct {
	mu         sync.RWMutex
	products   []domain.Product
	categories []domain.Category
	updatedAt  time.Time
	// set once a real category snapshot has arrived
	categoriesLoaded bool
}

// NewCatalog returns an empty snapshot.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// ReplaceProducts installs a new product snapshot.
func (c *Catalog) ReplaceProducts(products []domain.Product) {
	cp := make([]domain.Product, len(products))
	copy(cp, products)
	c.mu.Lock()
	c.products = cp
	c.updatedAt = now()
	c.mu.Unlock()
}

// ReplaceCategories installs a new category snapshot.
func (c *Catalog) ReplaceCategories(categories []domain.Category) {
	cp := make([]domain.Category, len(categories))
	copy(cp, categories)
	c.mu.Lock()
	c.categories = cp
	c.categoriesLoaded = true
	c.updatedAt = now()
	c.mu.Unlock()
}

// FallbackCategories shows names as unsaved categories while no category
// snapshot has loaded, so the counter still has tabs. The next snapshot
// replaces them. It reports whether the fallback was installed.
func (c *Catalog) FallbackCategories(names []string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.categoriesLoaded {
		return false
	}
	c.categories = make([]domain.Category, 0, len(names))
	for _, name := range names {
		c.categories = append(c.categories, domain.Category{Name: name})
	}
	return true
}

// Products returns a copy of the current product snapshot.
func (c *Catalog) Products() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Categories returns the current categories ordered by name.
func (c *Catalog) Categories() []domain.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return SortCategories(c.categories)
}

// Lookup finds a product by id in the current snapshot.
func (c *Catalog) Lookup(id string) (domain.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

// UpdatedAt is when the snapshot last changed.
func (c *Catalog) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}
