package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"cafe-pos-service/internal/domain"
	"cafe-pos-service/internal/logx"
)

// Predefined errors for store operations
var (
	ErrCategoryNotFound  = errors.New("store: category not found")
	ErrProductNotFound   = errors.New("store: product not found")
	ErrUserNotFound      = errors.New("store: user not found")
	ErrEmailExists       = errors.New("store: e-mail already registered")
	ErrPermissionDenied  = errors.New("store: permission denied")
	ErrInvalidRecord     = errors.New("store: record violates a constraint")
	ErrEmptyCategoryName = errors.New("store: category name is empty")
)

// Postgres error codes the store maps to sentinels.
const (
	pqUniqueViolation       = "23505"
	pqCheckViolation        = "23514"
	pqInsufficientPrivilege = "42501"
)

const notifyQuery = `SELECT pg_notify($1, $2);`

const productColumns = `id, title, subtype, price, unit, detail, image, status, category, created_at, updated_at`

// PostgresStore implements the catalog and user storers on PostgreSQL.
type PostgresStore struct {
	db    *sql.DB
	newID func() string
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, newID: uuid.NewString}
}

// DB exposes the underlying pool for health checks.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// mapPQError turns well-known Postgres failures into store sentinels.
func mapPQError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}
	switch pqErr.Code {
	case pqInsufficientPrivilege:
		return ErrPermissionDenied
	case pqCheckViolation:
		return ErrInvalidRecord
	}
	return nil
}

// mutate runs fn in a transaction and announces the change on ChangeChannel.
// The notification is only delivered to listeners once the transaction commits.
func (s *PostgresStore) mutate(ctx context.Context, collection string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		if mapped := mapPQError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, notifyQuery, ChangeChannel, collection); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("store: notify %s change: %w", collection, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit %s change: %w", collection, err)
	}
	return nil
}

// --- CategoryStorer Implementation ---

func (s *PostgresStore) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyCategoryName
	}
	query := `
		INSERT INTO pos.categories (id, name)
		VALUES ($1, $2)
		RETURNING id, name, created_at;
	`
	var created domain.Category
	err := s.mutate(ctx, CollectionCategories, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, query, s.newID(), name).Scan(&created.ID, &created.Name, &created.CreatedAt)
		if err != nil {
			if mapped := mapPQError(err); mapped != nil {
				return mapped
			}
			return fmt.Errorf("store: CreateCategory failed to scan row: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// ListCategories returns every category ordered by name.
func (s *PostgresStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	query := `
		SELECT id, name, created_at
		FROM pos.categories
		ORDER BY name ASC;
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		if mapped := mapPQError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("store: ListCategories failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: ListCategories failed to scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListCategories iteration error: %w", err)
	}
	return categories, nil
}

// UpdateCategory renames a category. Products keep the old name.
func (s *PostgresStore) UpdateCategory(ctx context.Context, id, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyCategoryName
	}
	query := `
		UPDATE pos.categories
		SET name = $1
		WHERE id = $2
		RETURNING id, name, created_at;
	`
	var updated domain.Category
	err := s.mutate(ctx, CollectionCategories, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, query, name, id).Scan(&updated.ID, &updated.Name, &updated.CreatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrCategoryNotFound
			}
			if mapped := mapPQError(err); mapped != nil {
				return mapped
			}
			return fmt.Errorf("store: UpdateCategory failed to scan row: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteCategory removes a category. It does not cascade to products.
func (s *PostgresStore) DeleteCategory(ctx context.Context, id string) error {
	query := `DELETE FROM pos.categories WHERE id = $1;`
	return s.mutate(ctx, CollectionCategories, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, id)
		if err != nil {
			if mapped := mapPQError(err); mapped != nil {
				return mapped
			}
			return fmt.Errorf("store: DeleteCategory failed to execute delete: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("store: DeleteCategory failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return ErrCategoryNotFound
		}
		return nil
	})
}

// --- ProductStorer Implementation ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner, p *domain.Product) error {
	return row.Scan(
		&p.ID, &p.Title, &p.Subtype, &p.Price, &p.Unit, &p.Detail,
		&p.Image, &p.Status, &p.Category, &p.CreatedAt, &p.UpdatedAt,
	)
}

func (s *PostgresStore) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
		INSERT INTO pos.products
			(id, title, subtype, price, unit, detail, image, status, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + productColumns + `;`

	var created domain.Product
	err := s.mutate(ctx, CollectionProducts, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, query,
			s.newID(), product.Title, product.Subtype, product.Price, product.Unit,
			product.Detail, product.Image, string(product.Status), product.Category,
		)
		if err := scanProduct(row, &created); err != nil {
			if mapped := mapPQError(err); mapped != nil {
				return mapped
			}
			return fmt.Errorf("store: CreateProduct failed to scan row: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// ListProducts returns the whole product collection, oldest first.
func (s *PostgresStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM pos.products ORDER BY created_at ASC, id ASC;`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		if mapped := mapPQError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("store: ListProducts failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("store: ListProducts failed to scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListProducts iteration error: %w", err)
	}
	return products, nil
}

func (s *PostgresStore) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM pos.products WHERE id = $1;`
	var product domain.Product
	if err := scanProduct(s.db.QueryRowContext(ctx, query, id), &product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		if mapped := mapPQError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("store: GetProductByID failed to scan row: %w", err)
	}
	return &product, nil
}

// UpdateProduct applies a partial update; nil patch fields keep their value.
func (s *PostgresStore) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	query := `
		UPDATE pos.products
		SET title = COALESCE($1, title), subtype = COALESCE($2, subtype), price = COALESCE($3, price),
			unit = COALESCE($4, unit), detail = COALESCE($5, detail), image = COALESCE($6, image),
			status = COALESCE($7, status), category = COALESCE($8, category), updated_at = CURRENT_TIMESTAMP
		WHERE id = $9
		RETURNING ` + productColumns + `;`

	var status *string
	if patch.Status != nil {
		v := string(*patch.Status)
		status = &v
	}

	var updated domain.Product
	err := s.mutate(ctx, CollectionProducts, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, query,
			patch.Title, patch.Subtype, patch.Price, patch.Unit, patch.Detail,
			patch.Image, status, patch.Category, id,
		)
		if err := scanProduct(row, &updated); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrProductNotFound
			}
			if mapped := mapPQError(err); mapped != nil {
				return mapped
			}
			return fmt.Errorf("store: UpdateProduct failed to scan row: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id string) error {
	query := `DELETE FROM pos.products WHERE id = $1;`
	return s.mutate(ctx, CollectionProducts, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, id)
		if err != nil {
			if mapped := mapPQError(err); mapped != nil {
				return mapped
			}
			return fmt.Errorf("store: DeleteProduct failed to execute delete: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("store: DeleteProduct failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return ErrProductNotFound
		}
		return nil
	})
}

func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	logx.Info().Msg("closing database connection pool")
	if err := s.db.Close(); err != nil {
		logx.Error().Err(err).Msg("failed to close database connection pool")
		return err
	}
	return nil
}
