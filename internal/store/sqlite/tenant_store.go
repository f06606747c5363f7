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

// TenantStore implements store.TenantStore using SQLite.
type TenantStore struct {
	db *gorm.DB
}

// Create creates a new tenant.
func (s *TenantStore) Create(ctx context.Context, tenant *models.Tenant) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertTenant(tx, tenant)
	})
}

// CreateWithOwner creates a tenant, its owner membership and optional subscription in one transaction.
func (s *TenantStore) CreateWithOwner(ctx context.Context, tenant *models.Tenant, owner *models.Membership, sub *models.Subscription) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := insertTenant(tx, tenant); err != nil {
			return err
		}

		owner.TenantID = tenant.TenantID
		owner.IsActive = true
		if err := tx.Create(newMembershipRow(owner)).Error; err != nil {
			if isForeignKeyViolation(err) {
				return store.ErrUserNotFound
			}
			return fmt.Errorf("failed to create owner membership: %w", err)
		}

		if sub != nil {
			sub.TenantID = tenant.TenantID
			return upsertSubscription(tx, sub)
		}

		return nil
	})
	if err != nil {
		return err
	}

	log.Debug().
		Str("tenant_id", tenant.TenantID.String()).
		Str("owner_user_id", owner.UserID.String()).
		Msg("Created tenant with owner")

	return nil
}

// insertTenant checks the slug before inserting so the two uniqueness failures can be told apart.
func insertTenant(tx *gorm.DB, tenant *models.Tenant) error {
	taken, err := slugTaken(tx, tenant.Slug, uuid.Nil)
	if err != nil {
		return err
	}
	if taken {
		return store.ErrSlugTaken
	}

	if err := tx.Create(newTenantRow(tenant)).Error; err != nil {
		if isDuplicate(err) {
			return store.ErrTenantAlreadyExists
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	return nil
}

func slugTaken(tx *gorm.DB, slug string, excludeID uuid.UUID) (bool, error) {
	var count int64
	err := tx.Model(&tenantRow{}).
		Where("slug = ? AND tenant_id <> ?", slug, excludeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return count > 0, nil
}

// Get retrieves a tenant by ID.
func (s *TenantStore) Get(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	return s.first(s.db.WithContext(ctx).Where("tenant_id = ?", tenantID))
}

// GetBySlug retrieves a tenant by slug.
func (s *TenantStore) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	return s.first(s.db.WithContext(ctx).Where("slug = ?", slug))
}

func (s *TenantStore) first(query *gorm.DB) (*models.Tenant, error) {
	var row tenantRow
	if err := query.First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, store.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return row.model(), nil
}

// SlugExists reports whether a tenant other than excludeID uses the slug.
func (s *TenantStore) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	return slugTaken(s.db.WithContext(ctx), slug, excludeID)
}

// Update updates an existing tenant.
func (s *TenantStore) Update(ctx context.Context, tenant *models.Tenant) error {
	tenant.UpdatedAt = time.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return updateTenant(tx, tenant)
	})
}

// UpdateWithSubscription updates a tenant and upserts its subscription in one transaction.
func (s *TenantStore) UpdateWithSubscription(ctx context.Context, tenant *models.Tenant, sub *models.Subscription) error {
	tenant.UpdatedAt = time.Now()
	sub.TenantID = tenant.TenantID

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateTenant(tx, tenant); err != nil {
			return err
		}
		return upsertSubscription(tx, sub)
	})
}

func updateTenant(tx *gorm.DB, tenant *models.Tenant) error {
	taken, err := slugTaken(tx, tenant.Slug, tenant.TenantID)
	if err != nil {
		return err
	}
	if taken {
		return store.ErrSlugTaken
	}

	result := tx.Model(&tenantRow{}).
		Where("tenant_id = ?", tenant.TenantID).
		Select("*").
		Updates(newTenantRow(tenant))
	if result.Error != nil {
		return fmt.Errorf("failed to update tenant: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return store.ErrTenantNotFound
	}

	return nil
}

// Delete deletes a tenant.
// Memberships, invitations and the subscription are cascade-deleted via FK constraints.
func (s *TenantStore) Delete(ctx context.Context, tenantID uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Delete(&tenantRow{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete tenant: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return store.ErrTenantNotFound
	}

	log.Info().Str("tenant_id", tenantID.String()).Msg("Deleted tenant")
	return nil
}

// FindInProgressOnboarding returns the newest active, incomplete tenant owned by the user.
func (s *TenantStore) FindInProgressOnboarding(ctx context.Context, ownerUserID uuid.UUID) (*models.Tenant, error) {
	return s.first(s.db.WithContext(ctx).
		Where("owner_user_id = ? AND is_active = ? AND onboarding_completed = ?", ownerUserID, true, false).
		Order("created_at DESC"))
}

// List returns tenants ordered by name.
func (s *TenantStore) List(ctx context.Context, opts store.ListTenantsOptions) ([]*models.Tenant, error) {
	query := s.db.WithContext(ctx).Order("name")
	if !opts.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}

	var rows []tenantRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	tenants := make([]*models.Tenant, 0, len(rows))
	for i := range rows {
		tenants = append(tenants, rows[i].model())
	}

	return tenants, nil
}
