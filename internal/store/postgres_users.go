package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"cafe-pos-service/internal/domain"
)

const userColumns = `id, email, password_hash, display_name, avatar_url, provider, created_at`

func scanUser(row rowScanner, u *domain.User) error {
	return row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.AvatarURL, &u.Provider, &u.CreatedAt)
}

// CreateUser registers a new identity. E-mails are stored lower-cased.
func (s *PostgresStore) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO pos.users (id, email, password_hash, display_name, avatar_url, provider)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns + `;`

	var created domain.User
	row := s.db.QueryRowContext(ctx, query,
		s.newID(), strings.ToLower(user.Email), user.PasswordHash, user.DisplayName, user.AvatarURL, user.Provider,
	)
	if err := scanUser(row, &created); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			if strings.Contains(pqErr.Constraint, "users_email_key") || strings.Contains(pqErr.Detail, "Key (email)") {
				return nil, ErrEmailExists
			}
		}
		if mapped := mapPQError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("store: CreateUser failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM pos.users WHERE email = $1;`
	var user domain.User
	if err := scanUser(s.db.QueryRowContext(ctx, query, strings.ToLower(email)), &user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		if mapped := mapPQError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("store: GetUserByEmail failed to scan row: %w", err)
	}
	return &user, nil
}

// UpsertExternalUser records an identity verified by an external provider,
// refreshing its profile on every sign-in.
func (s *PostgresStore) UpsertExternalUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO pos.users (id, email, password_hash, display_name, avatar_url, provider)
		VALUES ($1, $2, '', $3, $4, $5)
		ON CONFLICT (email) DO UPDATE
		SET display_name = EXCLUDED.display_name, avatar_url = EXCLUDED.avatar_url
		RETURNING ` + userColumns + `;`

	var saved domain.User
	row := s.db.QueryRowContext(ctx, query,
		s.newID(), strings.ToLower(user.Email), user.DisplayName, user.AvatarURL, user.Provider,
	)
	if err := scanUser(row, &saved); err != nil {
		if mapped := mapPQError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("store: UpsertExternalUser failed to scan row: %w", err)
	}
	return &saved, nil
}
