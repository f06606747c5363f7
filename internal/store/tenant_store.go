package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/backoffice/internal/models"
)

// Sentinel errors for tenant store operations
var (
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrTenantAlreadyExists = errors.New("tenant already exists")
	ErrSlugTaken           = errors.New("tenant slug already taken")
)

// TenantStore defines the interface for tenant storage operations.
// Slugs are unique across all tenants, the store enforces this with a hard constraint.
type TenantStore interface {
	// Create creates a new tenant.
	// Returns ErrSlugTaken if another tenant already uses the slug.
	Create(ctx context.Context, tenant *models.Tenant) error

	// CreateWithOwner atomically creates a tenant, its owner membership and,
	// when sub is non-nil, its subscription. Nothing is written if any insert fails.
	CreateWithOwner(ctx context.Context, tenant *models.Tenant, owner *models.Membership, sub *models.Subscription) error

	// Get retrieves a tenant by ID.
	// Returns ErrTenantNotFound if the tenant doesn't exist.
	Get(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error)

	// GetBySlug retrieves a tenant by slug.
	GetBySlug(ctx context.Context, slug string) (*models.Tenant, error)

	// SlugExists reports whether any tenant other than excludeID uses the slug.
	// Pass uuid.Nil to check against every tenant.
	SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error)

	// Update updates an existing tenant.
	// Returns ErrSlugTaken if the new slug collides with another tenant.
	Update(ctx context.Context, tenant *models.Tenant) error

	// UpdateWithSubscription atomically updates a tenant and upserts its subscription.
	UpdateWithSubscription(ctx context.Context, tenant *models.Tenant, sub *models.Subscription) error

	// Delete deletes a tenant by ID.
	// Memberships, invitations and the subscription are removed with it.
	Delete(ctx context.Context, tenantID uuid.UUID) error

	// FindInProgressOnboarding returns the most recent active tenant owned by the user
	// that has not completed onboarding.
	// Returns ErrTenantNotFound if there is none.
	FindInProgressOnboarding(ctx context.Context, ownerUserID uuid.UUID) (*models.Tenant, error)

	// List returns tenants ordered by name.
	List(ctx context.Context, opts ListTenantsOptions) ([]*models.Tenant, error)
}

// ListTenantsOptions specifies filters for listing tenants.
type ListTenantsOptions struct {
	IncludeInactive bool
}
