package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
	"gorm.io/gorm"
)

// UserStore implements store.UserStore using SQLite.
type UserStore struct {
	db *gorm.DB
}

// Create creates a new user.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(newUserRow(user)).Error; err != nil {
		if isDuplicate(err) {
			return store.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	log.Debug().Str("user_id", user.UserID.String()).Msg("Created user")
	return nil
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.first(ctx, "user_id = ?", userID)
}

// GetByEmail retrieves a user by email, ignoring case.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.first(ctx, "LOWER(email) = ?", models.NormalizeEmail(email))
}

// GetByExternalID retrieves a user by external auth ID.
func (s *UserStore) GetByExternalID(ctx context.Context, externalAuthID string) (*models.User, error) {
	return s.first(ctx, "external_auth_id = ?", externalAuthID)
}

func (s *UserStore) first(ctx context.Context, where string, arg any) (*models.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where(where, arg).First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return row.model(), nil
}

// Update updates an existing user.
func (s *UserStore) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()

	result := s.db.WithContext(ctx).
		Model(&userRow{}).
		Where("user_id = ?", user.UserID).
		Select("*").
		Updates(newUserRow(user))
	if result.Error != nil {
		if isDuplicate(result.Error) {
			return store.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to update user: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return store.ErrUserNotFound
	}

	return nil
}

// Delete deletes a user. Memberships are cascade-deleted via FK constraint.
func (s *UserStore) Delete(ctx context.Context, userID uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&userRow{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete user: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return store.ErrUserNotFound
	}

	log.Info().Str("user_id", userID.String()).Msg("Deleted user")
	return nil
}

// List returns users matching the options, newest first.
func (s *UserStore) List(ctx context.Context, opts store.ListUsersOptions) ([]*models.User, error) {
	query := s.db.WithContext(ctx).Model(&userRow{}).Select("users.*")
	if opts.TenantID != nil {
		query = query.
			Joins("JOIN memberships ON memberships.user_id = users.user_id").
			Where("memberships.tenant_id = ? AND memberships.is_active = ?", *opts.TenantID, true)
	}

	var rows []userRow
	if err := query.Order("users.created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]*models.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].model())
	}

	return users, nil
}
