package models

import "github.com/google/uuid"

// TenantAccess is one tenant visible to a user together with the role the user holds there.
type TenantAccess struct {
	TenantID   uuid.UUID
	Name       string
	Slug       string
	Role       Role
	IsPersonal bool
}
