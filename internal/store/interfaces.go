package store

import (
	"context"

	"cafe-pos-service/internal/domain"
)

// Collection names, also used as pg_notify payloads.
const (
	CollectionProducts   = "products"
	CollectionCategories = "categories"
)

// ChangeChannel is the Postgres NOTIFY channel every catalog mutation
// publishes on.
const ChangeChannel = "pos_catalog_changes"

// CategoryStorer defines the database operations for categories.
type CategoryStorer interface {
	CreateCategory(ctx context.Context, name string) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	UpdateCategory(ctx context.Context, id, name string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

// ProductStorer defines the database operations for products.
type ProductStorer interface {
	CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// UserStorer defines the database operations for identity records.
type UserStorer interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpsertExternalUser(ctx context.Context, user *domain.User) (*domain.User, error)
}

// CatalogReader loads full collection snapshots.
type CatalogReader interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}
