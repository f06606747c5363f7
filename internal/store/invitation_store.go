package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/backoffice/internal/models"
)

// Sentinel errors for invitation store operations
var (
	ErrInvitationNotFound      = errors.New("invitation not found")
	ErrInvitationAlreadyExists = errors.New("pending invitation already exists")
	ErrInvitationNotPending    = errors.New("invitation is not pending")
)

// InvitationStore defines the interface for invitation storage operations.
// Expiry is evaluated against the supplied time, expired rows keep their pending status.
type InvitationStore interface {
	// CreatePending creates a pending invitation.
	// Returns ErrInvitationAlreadyExists if an unexpired pending invitation for the
	// same tenant and email exists at now.
	CreatePending(ctx context.Context, inv *models.Invitation, now time.Time) error

	// Get retrieves an invitation by ID.
	Get(ctx context.Context, invitationID uuid.UUID) (*models.Invitation, error)

	// ListByTenant returns the invitations of a tenant, newest first.
	ListByTenant(ctx context.Context, tenantID uuid.UUID, opts ListInvitationsOptions) ([]*models.Invitation, error)

	// ListAll returns every invitation, newest first.
	ListAll(ctx context.Context, opts ListInvitationsOptions) ([]*models.Invitation, error)

	// ListPendingForEmail returns the unexpired pending invitations for an email,
	// matched case-insensitively, oldest first.
	ListPendingForEmail(ctx context.Context, email string, now time.Time) ([]*models.Invitation, error)

	// Accept marks a pending invitation accepted.
	// Accepting an already accepted invitation is a no-op. Any other status
	// returns ErrInvitationNotPending.
	Accept(ctx context.Context, invitationID, userID uuid.UUID, at time.Time) error

	// Revoke marks a pending invitation revoked.
	// Returns ErrInvitationNotPending if the invitation is no longer pending.
	Revoke(ctx context.Context, invitationID uuid.UUID, at time.Time) error
}

// ListInvitationsOptions specifies filters for listing invitations.
type ListInvitationsOptions struct {
	Status models.InvitationStatus // empty = all
}
