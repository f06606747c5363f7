package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
)

// MembershipStore implements store.MembershipStore using in-memory storage.
type MembershipStore struct {
	db *database
}

// Upsert ensures an active membership exists for the (user, tenant) pair.
func (s *MembershipStore) Upsert(ctx context.Context, membership *models.Membership) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.tenants[membership.TenantID]; !exists {
		return false, store.ErrTenantNotFound
	}
	if _, exists := s.db.users[membership.UserID]; !exists {
		return false, store.ErrUserNotFound
	}

	key := membershipKey{userID: membership.UserID, tenantID: membership.TenantID}
	existing, exists := s.db.memberships[key]

	switch {
	case exists && existing.IsActive:
		*membership = *existing
		return false, nil

	case exists:
		existing.Role = membership.Role
		existing.IsActive = true
		existing.GrantedBy = membership.GrantedBy
		existing.GrantedAt = membership.GrantedAt
		existing.RevokedBy = nil
		existing.RevokedAt = nil
		existing.UpdatedAt = time.Now()
		*membership = *existing
		return true, nil

	default:
		membership.IsActive = true
		clone := *membership
		s.db.memberships[key] = &clone
		return true, nil
	}
}

// GetActive retrieves the active membership of a user in a tenant.
func (s *MembershipStore) GetActive(ctx context.Context, userID, tenantID uuid.UUID) (*models.Membership, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	m, exists := s.db.memberships[membershipKey{userID: userID, tenantID: tenantID}]
	if !exists || !m.IsActive {
		return nil, store.ErrMembershipNotFound
	}

	clone := *m
	return &clone, nil
}

// Revoke deactivates an active membership.
func (s *MembershipStore) Revoke(ctx context.Context, userID, tenantID, revokedBy uuid.UUID, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	m, exists := s.db.memberships[membershipKey{userID: userID, tenantID: tenantID}]
	if !exists || !m.IsActive {
		return store.ErrMembershipNotFound
	}

	m.IsActive = false
	m.RevokedBy = &revokedBy
	m.RevokedAt = &at
	m.UpdatedAt = time.Now()

	return nil
}

// ListByTenant returns the active memberships of a tenant, oldest grant first.
func (s *MembershipStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Membership, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.Membership
	for key, m := range s.db.memberships {
		if key.tenantID != tenantID || !m.IsActive {
			continue
		}
		clone := *m
		result = append(result, &clone)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].GrantedAt.Before(result[j].GrantedAt)
	})

	return result, nil
}

// ListTenantsForUser returns the active tenants the user is an active member of.
func (s *MembershipStore) ListTenantsForUser(ctx context.Context, userID uuid.UUID) ([]models.TenantAccess, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []models.TenantAccess
	for key, m := range s.db.memberships {
		if key.userID != userID || !m.IsActive {
			continue
		}
		tenant, ok := s.db.tenants[key.tenantID]
		if !ok || !tenant.IsActive {
			continue
		}
		result = append(result, models.TenantAccess{
			TenantID:   tenant.TenantID,
			Name:       tenant.Name,
			Slug:       tenant.Slug,
			Role:       m.Role,
			IsPersonal: tenant.IsPersonal,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result, nil
}
