package models

import (
	"time"

	"github.com/google/uuid"
)

// InvitationStatus is the lifecycle state of an invitation.
// The only legal transitions are pending -> accepted and pending -> revoked.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRevoked  InvitationStatus = "revoked"
)

// InvitationTTL is how long an invitation stays redeemable after it is created.
const InvitationTTL = 7 * 24 * time.Hour

// Invitation invites an email address to join a tenant.
type Invitation struct {
	InvitationID    uuid.UUID // UUIDv7
	Email           string    // normalized lower-case
	TenantID        uuid.UUID
	InvitedByUserID uuid.UUID
	Status          InvitationStatus

	ExpiresAt        time.Time
	AcceptedAt       *time.Time
	AcceptedByUserID *uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsExpired returns true once the invitation is past its expiry.
// Expiry is never written back to the status column.
func (i *Invitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// IsRedeemable returns true for pending invitations that have not expired.
func (i *Invitation) IsRedeemable(now time.Time) bool {
	return i.Status == InvitationPending && !i.IsExpired(now)
}
