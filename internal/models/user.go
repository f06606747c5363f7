package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is an identity known to the platform. Users are created on first login and
// updated on every subsequent login (name backfill, login timestamp).
type User struct {
	UserID         uuid.UUID // UUIDv7
	Email          string    // stored lower-case, unique
	ExternalAuthID *string   // id asserted by the upstream identity provider
	FirstName      string
	LastName       string
	DisplayName    string

	IsActive      bool
	IsSystemAdmin bool
	LastLoginAt   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeEmail lower-cases and trims an email address for matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FullName returns the display name, falling back to first and last name.
func (u *User) FullName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
