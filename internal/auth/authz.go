package auth

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
	"github.com/wolfeidau/backoffice/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MembershipLookup finds the active membership of a user in a tenant.
type MembershipLookup interface {
	GetActive(ctx context.Context, userID, tenantID uuid.UUID) (*models.Membership, error)
}

// Authorizer evaluates the management predicate for tenant-scoped mutations.
// Every call hits the membership store, roles can change between requests.
type Authorizer struct {
	memberships MembershipLookup
}

// NewAuthorizer creates an Authorizer backed by the membership store.
func NewAuthorizer(memberships MembershipLookup) *Authorizer {
	return &Authorizer{memberships: memberships}
}

// CanManage reports whether the caller may manage users and invitations in the
// tenant selected by its scope.
//
// System admins may always manage. Otherwise the caller must hold an active owner
// membership in the selected tenant. Any lookup failure denies.
func (a *Authorizer) CanManage(ctx context.Context, caller CallerContext) bool {
	if caller.IsSystemAdmin {
		return true
	}

	tenantID, ok := caller.Scope.TenantID()
	if !ok || !caller.Authenticated() {
		a.deny(ctx, caller, "no_tenant")
		return false
	}

	membership, err := a.memberships.GetActive(ctx, caller.UserID, tenantID)
	if err != nil {
		if !errors.Is(err, store.ErrMembershipNotFound) {
			log.Error().Err(err).
				Str("user_id", caller.UserID.String()).
				Str("tenant_id", tenantID.String()).
				Msg("membership lookup failed during authorization")
			a.deny(ctx, caller, "lookup_failed")
			return false
		}
		a.deny(ctx, caller, "not_member")
		return false
	}

	if membership.Role != models.RoleOwner {
		a.deny(ctx, caller, "not_owner")
		return false
	}

	return true
}

// RequireManage checks CanManage and returns a connect error when it is denied.
func (a *Authorizer) RequireManage(ctx context.Context, caller CallerContext) error {
	if err := RequireAuthenticated(caller); err != nil {
		return err
	}

	if !a.CanManage(ctx, caller) {
		return connect.NewError(
			connect.CodePermissionDenied,
			fmt.Errorf("permission denied: caller cannot manage tenant %s", caller.Scope),
		)
	}

	return nil
}

// RequireAuthenticated returns an error when the request carries no user identity.
func RequireAuthenticated(caller CallerContext) error {
	if !caller.Authenticated() {
		return connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("not authenticated"))
	}
	return nil
}

// RequireSystemAdmin returns an error unless the caller asserted system admin.
func RequireSystemAdmin(caller CallerContext) error {
	if err := RequireAuthenticated(caller); err != nil {
		return err
	}

	if !caller.IsSystemAdmin {
		return connect.NewError(connect.CodePermissionDenied, fmt.Errorf("permission denied: system admin required"))
	}

	return nil
}

func (a *Authorizer) deny(ctx context.Context, caller CallerContext, reason string) {
	log.Warn().
		Str("user_id", caller.UserID.String()).
		Str("scope", caller.Scope.String()).
		Str("reason", reason).
		Msg("authorization denied")

	telemetry.GetMetrics().AuthorizationDenialsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)))
}
