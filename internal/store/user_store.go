package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/backoffice/internal/models"
)

// Sentinel errors for user store operations
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserStore defines the interface for user storage operations.
type UserStore interface {
	// Create creates a new user.
	// Returns ErrUserAlreadyExists if the email or external auth ID is already taken.
	Create(ctx context.Context, user *models.User) error

	// Get retrieves a user by ID.
	// Returns ErrUserNotFound if the user doesn't exist.
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by email, matched case-insensitively.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByExternalID retrieves a user by the identity provider's ID.
	GetByExternalID(ctx context.Context, externalAuthID string) (*models.User, error)

	// Update updates an existing user.
	Update(ctx context.Context, user *models.User) error

	// Delete permanently removes a user and their memberships.
	Delete(ctx context.Context, userID uuid.UUID) error

	// List returns users matching the options, newest first.
	List(ctx context.Context, opts ListUsersOptions) ([]*models.User, error)
}

// ListUsersOptions specifies filters for listing users.
type ListUsersOptions struct {
	// TenantID restricts the result to users with an active membership in the tenant.
	TenantID *uuid.UUID
}
