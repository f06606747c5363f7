package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Role is the role a user holds within a tenant.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"

	// RoleSystemAdmin is synthetic. It is reported for the "All Tenants" entry and never stored.
	RoleSystemAdmin Role = "system_admin"
)

// ErrUnknownRole is returned when parsing a role that cannot be stored on a membership.
var ErrUnknownRole = errors.New("unknown role")

// ParseRole parses a storable membership role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleOwner, RoleMember:
		return Role(s), nil
	default:
		return "", ErrUnknownRole
	}
}

// Storable returns true for roles that may be persisted on a membership.
func (r Role) Storable() bool {
	return r == RoleOwner || r == RoleMember
}

func (r Role) String() string {
	return string(r)
}

// Membership links a user to a tenant with a role.
// At most one row exists per (user, tenant); re-adding a user reactivates the row.
type Membership struct {
	MembershipID uuid.UUID // UUIDv7
	UserID       uuid.UUID
	TenantID     uuid.UUID
	Role         Role
	IsActive     bool

	GrantedBy *uuid.UUID
	GrantedAt time.Time
	RevokedBy *uuid.UUID
	RevokedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
