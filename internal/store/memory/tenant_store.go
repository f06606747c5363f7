package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
)

// TenantStore implements store.TenantStore using in-memory storage.
type TenantStore struct {
	db *database
}

// Create creates a new tenant in memory.
func (s *TenantStore) Create(ctx context.Context, tenant *models.Tenant) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if err := s.checkInsert(tenant); err != nil {
		return err
	}

	// Clone to avoid external modifications
	clone := *tenant
	s.db.tenants[tenant.TenantID] = &clone

	return nil
}

// CreateWithOwner creates a tenant, its owner membership and optional subscription under one lock.
func (s *TenantStore) CreateWithOwner(ctx context.Context, tenant *models.Tenant, owner *models.Membership, sub *models.Subscription) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if err := s.checkInsert(tenant); err != nil {
		return err
	}
	if _, exists := s.db.users[owner.UserID]; !exists {
		return store.ErrUserNotFound
	}

	tenantClone := *tenant
	s.db.tenants[tenant.TenantID] = &tenantClone

	ownerClone := *owner
	ownerClone.TenantID = tenant.TenantID
	s.db.memberships[membershipKey{userID: owner.UserID, tenantID: tenant.TenantID}] = &ownerClone

	if sub != nil {
		subClone := *sub
		subClone.TenantID = tenant.TenantID
		s.db.subscriptions[tenant.TenantID] = &subClone
	}

	return nil
}

// Get retrieves a tenant by ID.
func (s *TenantStore) Get(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	tenant, exists := s.db.tenants[tenantID]
	if !exists {
		return nil, store.ErrTenantNotFound
	}

	clone := *tenant
	return &clone, nil
}

// GetBySlug retrieves a tenant by slug.
func (s *TenantStore) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, tenant := range s.db.tenants {
		if tenant.Slug == slug {
			clone := *tenant
			return &clone, nil
		}
	}

	return nil, store.ErrTenantNotFound
}

// SlugExists reports whether a tenant other than excludeID uses the slug.
func (s *TenantStore) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	return s.slugTaken(slug, excludeID), nil
}

// Update updates an existing tenant.
func (s *TenantStore) Update(ctx context.Context, tenant *models.Tenant) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if err := s.checkUpdate(tenant); err != nil {
		return err
	}

	tenant.UpdatedAt = time.Now()

	clone := *tenant
	s.db.tenants[tenant.TenantID] = &clone

	return nil
}

// UpdateWithSubscription updates a tenant and upserts its subscription under one lock.
func (s *TenantStore) UpdateWithSubscription(ctx context.Context, tenant *models.Tenant, sub *models.Subscription) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if err := s.checkUpdate(tenant); err != nil {
		return err
	}

	now := time.Now()
	tenant.UpdatedAt = now
	tenantClone := *tenant
	s.db.tenants[tenant.TenantID] = &tenantClone

	sub.TenantID = tenant.TenantID
	sub.UpdatedAt = now
	if existing, ok := s.db.subscriptions[tenant.TenantID]; ok {
		sub.CreatedAt = existing.CreatedAt
	} else if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	subClone := *sub
	s.db.subscriptions[tenant.TenantID] = &subClone

	return nil
}

// Delete deletes a tenant and everything it owns.
func (s *TenantStore) Delete(ctx context.Context, tenantID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.tenants[tenantID]; !exists {
		return store.ErrTenantNotFound
	}

	delete(s.db.tenants, tenantID)
	delete(s.db.subscriptions, tenantID)
	for key := range s.db.memberships {
		if key.tenantID == tenantID {
			delete(s.db.memberships, key)
		}
	}
	for id, inv := range s.db.invitations {
		if inv.TenantID == tenantID {
			delete(s.db.invitations, id)
		}
	}

	return nil
}

// FindInProgressOnboarding returns the newest active, incomplete tenant owned by the user.
func (s *TenantStore) FindInProgressOnboarding(ctx context.Context, ownerUserID uuid.UUID) (*models.Tenant, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var found *models.Tenant
	for _, tenant := range s.db.tenants {
		if tenant.OwnerUserID != ownerUserID || !tenant.IsActive || tenant.OnboardingCompleted {
			continue
		}
		if found == nil || tenant.CreatedAt.After(found.CreatedAt) {
			found = tenant
		}
	}

	if found == nil {
		return nil, store.ErrTenantNotFound
	}

	clone := *found
	return &clone, nil
}

// List returns tenants ordered by name.
func (s *TenantStore) List(ctx context.Context, opts store.ListTenantsOptions) ([]*models.Tenant, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.Tenant
	for _, tenant := range s.db.tenants {
		if !tenant.IsActive && !opts.IncludeInactive {
			continue
		}
		clone := *tenant
		result = append(result, &clone)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result, nil
}

// checkInsert validates a new tenant row. Callers must hold the write lock.
func (s *TenantStore) checkInsert(tenant *models.Tenant) error {
	if _, exists := s.db.tenants[tenant.TenantID]; exists {
		return store.ErrTenantAlreadyExists
	}
	if s.slugTaken(tenant.Slug, uuid.Nil) {
		return store.ErrSlugTaken
	}
	return nil
}

// checkUpdate validates an updated tenant row. Callers must hold the write lock.
func (s *TenantStore) checkUpdate(tenant *models.Tenant) error {
	if _, exists := s.db.tenants[tenant.TenantID]; !exists {
		return store.ErrTenantNotFound
	}
	if s.slugTaken(tenant.Slug, tenant.TenantID) {
		return store.ErrSlugTaken
	}
	return nil
}

func (s *TenantStore) slugTaken(slug string, excludeID uuid.UUID) bool {
	for id, tenant := range s.db.tenants {
		if id != excludeID && tenant.Slug == slug {
			return true
		}
	}
	return false
}
