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

// MembershipStore implements store.MembershipStore using SQLite.
type MembershipStore struct {
	db *gorm.DB
}

// Upsert inserts or reactivates the (user, tenant) membership.
func (s *MembershipStore) Upsert(ctx context.Context, membership *models.Membership) (bool, error) {
	var activated bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing membershipRow
		err := tx.Where("user_id = ? AND tenant_id = ?", membership.UserID, membership.TenantID).First(&existing).Error

		switch {
		case err == nil && existing.IsActive:
			*membership = *existing.model()
			return nil

		case err == nil:
			existing.Role = membership.Role.String()
			existing.IsActive = true
			existing.GrantedBy = membership.GrantedBy
			existing.GrantedAt = membership.GrantedAt.UTC()
			existing.RevokedBy = nil
			existing.RevokedAt = nil
			existing.UpdatedAt = time.Now().UTC()
			if err := tx.Model(&membershipRow{}).
				Where("membership_id = ?", existing.MembershipID).
				Select("*").
				Updates(&existing).Error; err != nil {
				return fmt.Errorf("failed to reactivate membership: %w", err)
			}
			*membership = *existing.model()
			activated = true
			return nil

		case isNotFound(err):
			membership.IsActive = true
			if err := tx.Create(newMembershipRow(membership)).Error; err != nil {
				if isForeignKeyViolation(err) {
					return missingReference(tx, membership)
				}
				return fmt.Errorf("failed to create membership: %w", err)
			}
			activated = true
			return nil

		default:
			return fmt.Errorf("failed to get membership: %w", err)
		}
	})
	if err != nil {
		return false, err
	}

	if activated {
		log.Debug().
			Str("user_id", membership.UserID.String()).
			Str("tenant_id", membership.TenantID.String()).
			Str("role", membership.Role.String()).
			Msg("Activated membership")
	}

	return activated, nil
}

// missingReference works out which side of a membership foreign key is absent.
func missingReference(tx *gorm.DB, membership *models.Membership) error {
	var count int64
	if err := tx.Model(&tenantRow{}).Where("tenant_id = ?", membership.TenantID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return store.ErrTenantNotFound
	}
	return store.ErrUserNotFound
}

// GetActive retrieves the active membership of a user in a tenant.
func (s *MembershipStore) GetActive(ctx context.Context, userID, tenantID uuid.UUID) (*models.Membership, error) {
	var row membershipRow
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND tenant_id = ? AND is_active = ?", userID, tenantID, true).
		First(&row).Error
	if err != nil {
		if isNotFound(err) {
			return nil, store.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return row.model(), nil
}

// Revoke deactivates an active membership.
func (s *MembershipStore) Revoke(ctx context.Context, userID, tenantID, revokedBy uuid.UUID, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&membershipRow{}).
		Where("user_id = ? AND tenant_id = ? AND is_active = ?", userID, tenantID, true).
		Updates(map[string]any{
			"is_active":  false,
			"revoked_by": revokedBy,
			"revoked_at": at.UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to revoke membership: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return store.ErrMembershipNotFound
	}

	return nil
}

// ListByTenant returns the active memberships of a tenant, oldest grant first.
func (s *MembershipStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Membership, error) {
	var rows []membershipRow
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("granted_at").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}

	memberships := make([]*models.Membership, 0, len(rows))
	for i := range rows {
		memberships = append(memberships, rows[i].model())
	}

	return memberships, nil
}

// ListTenantsForUser returns the active tenants the user is an active member of, ordered by name.
func (s *MembershipStore) ListTenantsForUser(ctx context.Context, userID uuid.UUID) ([]models.TenantAccess, error) {
	var rows []struct {
		TenantID   uuid.UUID
		Name       string
		Slug       string
		Role       string
		IsPersonal bool
	}

	err := s.db.WithContext(ctx).
		Table("memberships").
		Select("tenants.tenant_id, tenants.name, tenants.slug, memberships.role, tenants.is_personal").
		Joins("JOIN tenants ON tenants.tenant_id = memberships.tenant_id").
		Where("memberships.user_id = ? AND memberships.is_active = ? AND tenants.is_active = ?", userID, true, true).
		Order("tenants.name").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants for user: %w", err)
	}

	access := make([]models.TenantAccess, 0, len(rows))
	for _, row := range rows {
		access = append(access, models.TenantAccess{
			TenantID:   row.TenantID,
			Name:       row.Name,
			Slug:       row.Slug,
			Role:       models.Role(row.Role),
			IsPersonal: row.IsPersonal,
		})
	}

	return access, nil
}
