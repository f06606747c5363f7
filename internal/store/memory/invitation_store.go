package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
)

// InvitationStore implements store.InvitationStore using in-memory storage.
type InvitationStore struct {
	db *database
}

// CreatePending creates a pending invitation unless an unexpired one already exists.
func (s *InvitationStore) CreatePending(ctx context.Context, inv *models.Invitation, now time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.tenants[inv.TenantID]; !exists {
		return store.ErrTenantNotFound
	}
	if _, exists := s.db.invitations[inv.InvitationID]; exists {
		return store.ErrInvitationAlreadyExists
	}

	email := models.NormalizeEmail(inv.Email)
	for _, existing := range s.db.invitations {
		if existing.TenantID == inv.TenantID &&
			models.NormalizeEmail(existing.Email) == email &&
			existing.IsRedeemable(now) {
			return store.ErrInvitationAlreadyExists
		}
	}

	inv.Email = email
	inv.Status = models.InvitationPending

	clone := *inv
	s.db.invitations[inv.InvitationID] = &clone

	return nil
}

// Get retrieves an invitation by ID.
func (s *InvitationStore) Get(ctx context.Context, invitationID uuid.UUID) (*models.Invitation, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	inv, exists := s.db.invitations[invitationID]
	if !exists {
		return nil, store.ErrInvitationNotFound
	}

	clone := *inv
	return &clone, nil
}

// ListByTenant returns the invitations of a tenant, newest first.
func (s *InvitationStore) ListByTenant(ctx context.Context, tenantID uuid.UUID, opts store.ListInvitationsOptions) ([]*models.Invitation, error) {
	return s.list(func(inv *models.Invitation) bool {
		return inv.TenantID == tenantID && (opts.Status == "" || inv.Status == opts.Status)
	}, newestFirst), nil
}

// ListAll returns every invitation, newest first.
func (s *InvitationStore) ListAll(ctx context.Context, opts store.ListInvitationsOptions) ([]*models.Invitation, error) {
	return s.list(func(inv *models.Invitation) bool {
		return opts.Status == "" || inv.Status == opts.Status
	}, newestFirst), nil
}

// ListPendingForEmail returns the redeemable invitations addressed to an email, oldest first.
func (s *InvitationStore) ListPendingForEmail(ctx context.Context, email string, now time.Time) ([]*models.Invitation, error) {
	email = models.NormalizeEmail(email)
	return s.list(func(inv *models.Invitation) bool {
		return models.NormalizeEmail(inv.Email) == email && inv.IsRedeemable(now)
	}, oldestFirst), nil
}

// Accept marks a pending invitation accepted by the user.
func (s *InvitationStore) Accept(ctx context.Context, invitationID, userID uuid.UUID, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	inv, exists := s.db.invitations[invitationID]
	if !exists {
		return store.ErrInvitationNotFound
	}

	switch inv.Status {
	case models.InvitationAccepted:
		return nil
	case models.InvitationPending:
	default:
		return store.ErrInvitationNotPending
	}

	inv.Status = models.InvitationAccepted
	inv.AcceptedAt = &at
	inv.AcceptedByUserID = &userID
	inv.UpdatedAt = time.Now()

	return nil
}

// Revoke marks a pending invitation revoked.
func (s *InvitationStore) Revoke(ctx context.Context, invitationID uuid.UUID, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	inv, exists := s.db.invitations[invitationID]
	if !exists {
		return store.ErrInvitationNotFound
	}
	if inv.Status != models.InvitationPending {
		return store.ErrInvitationNotPending
	}

	inv.Status = models.InvitationRevoked
	inv.UpdatedAt = at

	return nil
}

func newestFirst(a, b *models.Invitation) bool { return a.CreatedAt.After(b.CreatedAt) }

func oldestFirst(a, b *models.Invitation) bool { return a.CreatedAt.Before(b.CreatedAt) }

func (s *InvitationStore) list(match func(*models.Invitation) bool, less func(a, b *models.Invitation) bool) []*models.Invitation {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.Invitation
	for _, inv := range s.db.invitations {
		if !match(inv) {
			continue
		}
		clone := *inv
		result = append(result, &clone)
	}

	sort.Slice(result, func(i, j int) bool {
		return less(result[i], result[j])
	})

	return result
}
