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

// InvitationStore implements store.InvitationStore using SQLite.
type InvitationStore struct {
	db *gorm.DB
}

// CreatePending creates a pending invitation unless an unexpired one exists for the same tenant and email.
func (s *InvitationStore) CreatePending(ctx context.Context, inv *models.Invitation, now time.Time) error {
	inv.Email = models.NormalizeEmail(inv.Email)
	inv.Status = models.InvitationPending

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&invitationRow{}).
			Where("tenant_id = ? AND email = ? AND status = ? AND expires_at > ?",
				inv.TenantID, inv.Email, string(models.InvitationPending), now.UTC()).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check pending invitations: %w", err)
		}
		if count > 0 {
			return store.ErrInvitationAlreadyExists
		}

		if err := tx.Create(newInvitationRow(inv)).Error; err != nil {
			switch {
			case isForeignKeyViolation(err):
				return store.ErrTenantNotFound
			case isDuplicate(err):
				return store.ErrInvitationAlreadyExists
			}
			return fmt.Errorf("failed to create invitation: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	log.Debug().
		Str("invitation_id", inv.InvitationID.String()).
		Str("tenant_id", inv.TenantID.String()).
		Msg("Created invitation")

	return nil
}

// Get retrieves an invitation by ID.
func (s *InvitationStore) Get(ctx context.Context, invitationID uuid.UUID) (*models.Invitation, error) {
	var row invitationRow
	if err := s.db.WithContext(ctx).Where("invitation_id = ?", invitationID).First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, store.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return row.model(), nil
}

// ListByTenant returns the invitations of a tenant, newest first.
func (s *InvitationStore) ListByTenant(ctx context.Context, tenantID uuid.UUID, opts store.ListInvitationsOptions) ([]*models.Invitation, error) {
	query := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	return s.find(withStatus(query, opts.Status).Order("created_at DESC"))
}

// ListAll returns every invitation, newest first.
func (s *InvitationStore) ListAll(ctx context.Context, opts store.ListInvitationsOptions) ([]*models.Invitation, error) {
	return s.find(withStatus(s.db.WithContext(ctx), opts.Status).Order("created_at DESC"))
}

// ListPendingForEmail returns the unexpired pending invitations addressed to an email, oldest first.
func (s *InvitationStore) ListPendingForEmail(ctx context.Context, email string, now time.Time) ([]*models.Invitation, error) {
	return s.find(s.db.WithContext(ctx).
		Where("email = ? AND status = ? AND expires_at > ?",
			models.NormalizeEmail(email), string(models.InvitationPending), now.UTC()).
		Order("created_at"))
}

func withStatus(query *gorm.DB, status models.InvitationStatus) *gorm.DB {
	if status == "" {
		return query
	}
	return query.Where("status = ?", string(status))
}

func (s *InvitationStore) find(query *gorm.DB) ([]*models.Invitation, error) {
	var rows []invitationRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}

	invitations := make([]*models.Invitation, 0, len(rows))
	for i := range rows {
		invitations = append(invitations, rows[i].model())
	}

	return invitations, nil
}

// Accept marks a pending invitation accepted. Accepting twice is a no-op.
func (s *InvitationStore) Accept(ctx context.Context, invitationID, userID uuid.UUID, at time.Time) error {
	return s.transition(ctx, invitationID, models.InvitationAccepted, map[string]any{
		"status":              string(models.InvitationAccepted),
		"accepted_at":         at.UTC(),
		"accepted_by_user_id": userID,
	})
}

// Revoke marks a pending invitation revoked.
func (s *InvitationStore) Revoke(ctx context.Context, invitationID uuid.UUID, at time.Time) error {
	return s.transition(ctx, invitationID, "", map[string]any{
		"status":     string(models.InvitationRevoked),
		"updated_at": at.UTC(),
	})
}

// transition applies updates to a pending invitation.
// An invitation already in the idempotent status reports success.
func (s *InvitationStore) transition(ctx context.Context, invitationID uuid.UUID, idempotent models.InvitationStatus, updates map[string]any) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row invitationRow
		if err := tx.Where("invitation_id = ?", invitationID).First(&row).Error; err != nil {
			if isNotFound(err) {
				return store.ErrInvitationNotFound
			}
			return fmt.Errorf("failed to get invitation: %w", err)
		}

		switch models.InvitationStatus(row.Status) {
		case models.InvitationPending:
		case idempotent:
			return nil
		default:
			return store.ErrInvitationNotPending
		}

		if err := tx.Model(&invitationRow{}).Where("invitation_id = ?", invitationID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update invitation: %w", err)
		}

		return nil
	})
}
