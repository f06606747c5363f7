package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/backoffice/internal/models"
)

// Sentinel errors for membership store operations
var (
	ErrMembershipNotFound = errors.New("membership not found")
)

// MembershipStore defines the interface for membership storage operations.
// There is at most one row per (user, tenant) pair.
type MembershipStore interface {
	// Upsert ensures the user holds an active membership in the tenant.
	// A missing row is inserted and an inactive row is reactivated with the given role
	// and grant fields, both report activated=true. An already active row is left
	// untouched and copied into membership.
	Upsert(ctx context.Context, membership *models.Membership) (activated bool, err error)

	// GetActive retrieves the active membership for a user in a tenant.
	// Returns ErrMembershipNotFound if there is none.
	GetActive(ctx context.Context, userID, tenantID uuid.UUID) (*models.Membership, error)

	// Revoke deactivates an active membership.
	// Returns ErrMembershipNotFound if there is no active membership.
	Revoke(ctx context.Context, userID, tenantID, revokedBy uuid.UUID, at time.Time) error

	// ListByTenant returns the active memberships of a tenant.
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Membership, error)

	// ListTenantsForUser returns every active tenant in which the user holds an
	// active membership, ordered by tenant name.
	ListTenantsForUser(ctx context.Context, userID uuid.UUID) ([]models.TenantAccess, error)
}
