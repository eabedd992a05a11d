package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"cafe-pos-service/internal/logx"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the pos schema and its tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		if mapped := mapPQError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("store: EnsureSchema: %w", err)
	}
	return nil
}

// SeedDefaultCategories inserts names when the category collection is empty.
// It reports whether anything was inserted. A permission-denied failure means
// this operator may not seed, and is skipped without error.
func (s *PostgresStore) SeedDefaultCategories(ctx context.Context, names []string) (bool, error) {
	existing, err := s.ListCategories(ctx)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return false, nil
		}
		return false, fmt.Errorf("store: seed check: %w", err)
	}
	if len(existing) > 0 || len(names) == 0 {
		return false, nil
	}

	logx.Info().Strs("categories", names).Msg("seeding default categories")
	for _, name := range names {
		if _, err := s.CreateCategory(ctx, name); err != nil {
			if errors.Is(err, ErrPermissionDenied) {
				return false, nil
			}
			return false, fmt.Errorf("store: seed category %q: %w", name, err)
		}
	}
	return true, nil
}
