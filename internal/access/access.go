// Package access computes which tenants a caller can see and whether they still
// need to go through onboarding.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/backoffice/internal/auth"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
)

// All Tenants entry reported to system admins.
const (
	AllTenantsName = "All Tenants"
	AllTenantsSlug = "all"
)

// AllTenantsEntry returns the synthetic entry prepended for system admins.
// Its tenant id is the nil UUID, selecting it means no tenant scope.
func AllTenantsEntry() models.TenantAccess {
	return models.TenantAccess{
		TenantID: uuid.Nil,
		Name:     AllTenantsName,
		Slug:     AllTenantsSlug,
		Role:     models.RoleSystemAdmin,
	}
}

// OnboardingState is the onboarding decision for a caller.
type OnboardingState struct {
	RequiresOnboarding bool
	// Step is the step reached by the caller's in-progress onboarding tenant, 0 when there is none.
	Step int
	// TenantID is the in-progress onboarding tenant, nil when there is none.
	TenantID           *uuid.UUID
	PendingInvitations int
}

// Aggregator computes the tenant list and onboarding state of callers.
type Aggregator struct {
	memberships store.MembershipStore
	invitations store.InvitationStore
	tenants     store.TenantStore
	now         func() time.Time
}

// NewAggregator creates an Aggregator over the stores.
func NewAggregator(stores *store.Stores) *Aggregator {
	return &Aggregator{
		memberships: stores.Memberships,
		invitations: stores.Invitations,
		tenants:     stores.Tenants,
		now:         time.Now,
	}
}

// TenantsFor returns every active tenant where the caller holds an active membership,
// preceded by the All Tenants entry for system admins. Anonymous callers get an empty list.
func (a *Aggregator) TenantsFor(ctx context.Context, caller auth.CallerContext) ([]models.TenantAccess, error) {
	if !caller.Authenticated() {
		return []models.TenantAccess{}, nil
	}

	tenants, err := a.memberships.ListTenantsForUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants for user: %w", err)
	}

	if !caller.IsSystemAdmin {
		return tenants, nil
	}

	return append([]models.TenantAccess{AllTenantsEntry()}, tenants...), nil
}

// Onboarding decides whether the caller must be sent through onboarding.
//
// Onboarding is required when the caller is not a system admin, has no pending
// invitation for email, and has no tenant apart from an in-progress onboarding
// tenant of their own. When such a tenant exists its step is reported so the
// workflow resumes instead of restarting.
func (a *Aggregator) Onboarding(ctx context.Context, caller auth.CallerContext, email string, tenants []models.TenantAccess) (OnboardingState, error) {
	var state OnboardingState
	if !caller.Authenticated() {
		return state, nil
	}

	inProgress, err := a.tenants.FindInProgressOnboarding(ctx, caller.UserID)
	switch {
	case err == nil:
		state.Step = inProgress.OnboardingStep
		state.TenantID = &inProgress.TenantID
	case errors.Is(err, store.ErrTenantNotFound):
	default:
		return OnboardingState{}, fmt.Errorf("failed to find in-progress onboarding tenant: %w", err)
	}

	if email != "" {
		pending, err := a.invitations.ListPendingForEmail(ctx, email, a.now())
		if err != nil {
			return OnboardingState{}, fmt.Errorf("failed to list pending invitations: %w", err)
		}
		state.PendingInvitations = len(pending)
	}

	settled := 0
	for _, t := range tenants {
		if state.TenantID != nil && t.TenantID == *state.TenantID {
			continue
		}
		settled++
	}

	state.RequiresOnboarding = settled == 0 && !caller.IsSystemAdmin && state.PendingInvitations == 0

	return state, nil
}
