package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
)

const userColumns = `
	u.user_id, u.email, u.external_auth_id, u.first_name, u.last_name, u.display_name,
	u.is_active, u.is_system_admin, u.last_login_at, u.created_at, u.updated_at
`

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new PostgreSQL-backed user store.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{
		pool: pool,
	}
}

// Create creates a new user in the database.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (
			user_id, email, external_auth_id, first_name, last_name, display_name,
			is_active, is_system_admin, last_login_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := s.pool.Exec(ctx, query,
		user.UserID,
		user.Email,
		user.ExternalAuthID,
		user.FirstName,
		user.LastName,
		user.DisplayName,
		user.IsActive,
		user.IsSystemAdmin,
		user.LastLoginAt,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	log.Debug().
		Str("user_id", user.UserID.String()).
		Msg("Created user")

	return nil
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.getBy(ctx, `u.user_id = $1`, userID)
}

// GetByEmail retrieves a user by email, ignoring case.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getBy(ctx, `LOWER(u.email) = $1`, models.NormalizeEmail(email))
}

// GetByExternalID retrieves a user by external auth ID.
func (s *UserStore) GetByExternalID(ctx context.Context, externalAuthID string) (*models.User, error) {
	return s.getBy(ctx, `u.external_auth_id = $1`, externalAuthID)
}

func (s *UserStore) getBy(ctx context.Context, where string, arg any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE ` + where

	user, err := scanUser(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// Update updates an existing user.
func (s *UserStore) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()

	query := `
		UPDATE users SET
			email = $2,
			external_auth_id = $3,
			first_name = $4,
			last_name = $5,
			display_name = $6,
			is_active = $7,
			is_system_admin = $8,
			last_login_at = $9,
			updated_at = $10
		WHERE user_id = $1
	`

	result, err := s.pool.Exec(ctx, query,
		user.UserID,
		user.Email,
		user.ExternalAuthID,
		user.FirstName,
		user.LastName,
		user.DisplayName,
		user.IsActive,
		user.IsSystemAdmin,
		user.LastLoginAt,
		user.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}

	return nil
}

// Delete deletes a user by ID.
// Memberships are cascade-deleted via FK constraint.
func (s *UserStore) Delete(ctx context.Context, userID uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}

	log.Info().
		Str("user_id", userID.String()).
		Msg("Deleted user (and cascade-deleted memberships)")

	return nil
}

// List returns users matching the options, newest first.
func (s *UserStore) List(ctx context.Context, opts store.ListUsersOptions) ([]*models.User, error) {
	var (
		rows pgx.Rows
		err  error
	)

	if opts.TenantID != nil {
		rows, err = s.pool.Query(ctx, `
			SELECT `+userColumns+`
			FROM users u
			JOIN memberships m ON m.user_id = u.user_id
			WHERE m.tenant_id = $1 AND m.is_active = TRUE
			ORDER BY u.created_at DESC
		`, *opts.TenantID)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT `+userColumns+` FROM users u ORDER BY u.created_at DESC`)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.UserID,
		&user.Email,
		&user.ExternalAuthID,
		&user.FirstName,
		&user.LastName,
		&user.DisplayName,
		&user.IsActive,
		&user.IsSystemAdmin,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
