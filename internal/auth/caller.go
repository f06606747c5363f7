package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidCaller is returned when the caller signals presented with a request cannot be parsed.
var ErrInvalidCaller = errors.New("invalid caller context")

// TenantScope selects which tenants a request acts on. The zero value is AllTenants.
type TenantScope struct {
	id  uuid.UUID
	one bool
}

// AllTenants returns a scope with no tenant selected.
func AllTenants() TenantScope {
	return TenantScope{}
}

// OneTenant returns a scope narrowed to a single tenant.
// The nil UUID never names a tenant and yields AllTenants.
func OneTenant(id uuid.UUID) TenantScope {
	if id == uuid.Nil {
		return AllTenants()
	}
	return TenantScope{id: id, one: true}
}

// TenantID returns the selected tenant, ok is false for AllTenants.
func (s TenantScope) TenantID() (uuid.UUID, bool) {
	return s.id, s.one
}

// IsAll returns true when no tenant is selected.
func (s TenantScope) IsAll() bool {
	return !s.one
}

func (s TenantScope) String() string {
	if !s.one {
		return "all"
	}
	return s.id.String()
}

// CallerContext is the identity asserted for a single request by the upstream gateway.
// It is built once at the HTTP boundary and passed explicitly to every operation.
type CallerContext struct {
	UserID        uuid.UUID
	IsSystemAdmin bool
	Scope         TenantScope
}

// Authenticated returns true when the request carries a user identity.
func (c CallerContext) Authenticated() bool {
	return c.UserID != uuid.Nil
}

// WithTenant returns a copy of the caller narrowed to the tenant.
func (c CallerContext) WithTenant(tenantID uuid.UUID) CallerContext {
	c.Scope = OneTenant(tenantID)
	return c
}

// Resolve builds a CallerContext from the raw signals asserted by the gateway.
//
// An empty user id resolves to an anonymous caller. An empty tenant id, or the
// all-zero UUID, resolves to AllTenants. A system admin assertion without a user
// id is rejected.
func Resolve(userID, systemAdmin, tenantID string) (CallerContext, error) {
	var caller CallerContext

	if userID = strings.TrimSpace(userID); userID != "" {
		id, err := uuid.Parse(userID)
		if err != nil {
			return CallerContext{}, fmt.Errorf("%w: user id: %w", ErrInvalidCaller, err)
		}
		caller.UserID = id
	}

	if systemAdmin = strings.TrimSpace(systemAdmin); systemAdmin != "" {
		admin, err := strconv.ParseBool(systemAdmin)
		if err != nil {
			return CallerContext{}, fmt.Errorf("%w: system admin flag: %w", ErrInvalidCaller, err)
		}
		caller.IsSystemAdmin = admin
	}

	if caller.IsSystemAdmin && !caller.Authenticated() {
		return CallerContext{}, fmt.Errorf("%w: system admin asserted without a user id", ErrInvalidCaller)
	}

	if tenantID = strings.TrimSpace(tenantID); tenantID != "" {
		id, err := uuid.Parse(tenantID)
		if err != nil {
			return CallerContext{}, fmt.Errorf("%w: tenant id: %w", ErrInvalidCaller, err)
		}
		caller.Scope = OneTenant(id)
	}

	return caller, nil
}
