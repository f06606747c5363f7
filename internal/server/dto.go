package server

import (
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/backoffice/internal/access"
	"github.com/wolfeidau/backoffice/internal/admin"
	"github.com/wolfeidau/backoffice/internal/invitation"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/onboarding"
)

type userResponse struct {
	UserID         uuid.UUID  `json:"user_id"`
	Email          string     `json:"email"`
	ExternalAuthID *string    `json:"external_auth_id,omitempty"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	DisplayName    string     `json:"display_name"`
	IsActive       bool       `json:"is_active"`
	IsSystemAdmin  bool       `json:"is_system_admin"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		UserID:         u.UserID,
		Email:          u.Email,
		ExternalAuthID: u.ExternalAuthID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		DisplayName:    u.FullName(),
		IsActive:       u.IsActive,
		IsSystemAdmin:  u.IsSystemAdmin,
		LastLoginAt:    u.LastLoginAt,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

type tenantResponse struct {
	TenantID            uuid.UUID `json:"tenant_id"`
	Name                string    `json:"name"`
	Description         string    `json:"description"`
	Slug                string    `json:"slug"`
	IsPersonal          bool      `json:"is_personal"`
	IsActive            bool      `json:"is_active"`
	OwnerUserID         uuid.UUID `json:"owner_user_id"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	OnboardingStep      int       `json:"onboarding_step"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func newTenantResponse(t *models.Tenant) tenantResponse {
	return tenantResponse{
		TenantID:            t.TenantID,
		Name:                t.Name,
		Description:         t.Description,
		Slug:                t.Slug,
		IsPersonal:          t.IsPersonal,
		IsActive:            t.IsActive,
		OwnerUserID:         t.OwnerUserID,
		OnboardingCompleted: t.OnboardingCompleted,
		OnboardingStep:      t.OnboardingStep,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

func newTenantResponses(tenants []*models.Tenant) []tenantResponse {
	out := make([]tenantResponse, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, newTenantResponse(t))
	}
	return out
}

type tenantAccessResponse struct {
	TenantID   uuid.UUID `json:"tenant_id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	Role       string    `json:"role"`
	IsPersonal bool      `json:"is_personal"`
}

func newTenantAccessResponses(tenants []models.TenantAccess) []tenantAccessResponse {
	out := make([]tenantAccessResponse, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, tenantAccessResponse{
			TenantID:   t.TenantID,
			Name:       t.Name,
			Slug:       t.Slug,
			Role:       t.Role.String(),
			IsPersonal: t.IsPersonal,
		})
	}
	return out
}

type onboardingStateResponse struct {
	RequiresOnboarding bool       `json:"requires_onboarding"`
	OnboardingStep     int        `json:"onboarding_step"`
	OnboardingTenantID *uuid.UUID `json:"onboarding_tenant_id,omitempty"`
	PendingInvitations int        `json:"pending_invitations"`
}

func newOnboardingStateResponse(s access.OnboardingState) onboardingStateResponse {
	return onboardingStateResponse{
		RequiresOnboarding: s.RequiresOnboarding,
		OnboardingStep:     s.Step,
		OnboardingTenantID: s.TenantID,
		PendingInvitations: s.PendingInvitations,
	}
}

type subscriptionResponse struct {
	TenantID           uuid.UUID  `json:"tenant_id"`
	PlanID             string     `json:"plan_id"`
	Status             string     `json:"status"`
	HasPaymentMethod   bool       `json:"has_payment_method"`
	BillingEmail       string     `json:"billing_email,omitempty"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
}

func newSubscriptionResponse(s *models.Subscription) *subscriptionResponse {
	if s == nil {
		return nil
	}
	return &subscriptionResponse{
		TenantID:           s.TenantID,
		PlanID:             s.PlanID,
		Status:             string(s.Status),
		HasPaymentMethod:   s.HasPaymentMethod(),
		BillingEmail:       s.BillingEmail,
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
	}
}

type invitationResponse struct {
	InvitationID     uuid.UUID  `json:"invitation_id"`
	Email            string     `json:"email"`
	TenantID         uuid.UUID  `json:"tenant_id"`
	InvitedByUserID  uuid.UUID  `json:"invited_by_user_id"`
	Status           string     `json:"status"`
	Expired          bool       `json:"expired"`
	ExpiresAt        time.Time  `json:"expires_at"`
	AcceptedAt       *time.Time `json:"accepted_at,omitempty"`
	AcceptedByUserID *uuid.UUID `json:"accepted_by_user_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func newInvitationResponse(inv *models.Invitation, expired bool) invitationResponse {
	return invitationResponse{
		InvitationID:     inv.InvitationID,
		Email:            inv.Email,
		TenantID:         inv.TenantID,
		InvitedByUserID:  inv.InvitedByUserID,
		Status:           string(inv.Status),
		Expired:          expired,
		ExpiresAt:        inv.ExpiresAt,
		AcceptedAt:       inv.AcceptedAt,
		AcceptedByUserID: inv.AcceptedByUserID,
		CreatedAt:        inv.CreatedAt,
	}
}

func newListedInvitationResponses(listed []invitation.Listed) []invitationResponse {
	out := make([]invitationResponse, 0, len(listed))
	for _, l := range listed {
		out = append(out, newInvitationResponse(l.Invitation, l.Expired))
	}
	return out
}

type invitationFailureResponse struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

type invitationsResultResponse struct {
	Created        []invitationResponse        `json:"created"`
	Failed         []invitationFailureResponse `json:"failed"`
	OnboardingStep int                         `json:"onboarding_step"`
}

func newInvitationsResultResponse(res *onboarding.InvitationsResult) invitationsResultResponse {
	out := invitationsResultResponse{
		Created:        make([]invitationResponse, 0, len(res.Created)),
		Failed:         make([]invitationFailureResponse, 0, len(res.Failed)),
		OnboardingStep: res.Step,
	}
	for _, inv := range res.Created {
		out.Created = append(out.Created, newInvitationResponse(inv, false))
	}
	for _, f := range res.Failed {
		out.Failed = append(out.Failed, invitationFailureResponse{Email: f.Email, Reason: f.Reason})
	}
	return out
}

type memberResponse struct {
	User      userResponse `json:"user"`
	Role      string       `json:"role"`
	GrantedAt time.Time    `json:"granted_at"`
	GrantedBy *uuid.UUID   `json:"granted_by,omitempty"`
}

func newMemberResponses(members []admin.Member) []memberResponse {
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse{
			User:      newUserResponse(m.User),
			Role:      m.Membership.Role.String(),
			GrantedAt: m.Membership.GrantedAt,
			GrantedBy: m.Membership.GrantedBy,
		})
	}
	return out
}

type membershipResponse struct {
	MembershipID uuid.UUID `json:"membership_id"`
	UserID       uuid.UUID `json:"user_id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	GrantedAt    time.Time `json:"granted_at"`
}

func newMembershipResponse(m *models.Membership) membershipResponse {
	return membershipResponse{
		MembershipID: m.MembershipID,
		UserID:       m.UserID,
		TenantID:     m.TenantID,
		Role:         m.Role.String(),
		IsActive:     m.IsActive,
		GrantedAt:    m.GrantedAt,
	}
}

type planResponse struct {
	PlanID      string `json:"plan_id"`
	Name        string `json:"name"`
	IsActive    bool   `json:"is_active"`
	MaxUsers    int    `json:"max_users"`
	MaxProducts int    `json:"max_products"`
}

func newPlanResponses(plans []*models.Plan) []planResponse {
	out := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, planResponse{
			PlanID:      p.PlanID,
			Name:        p.Name,
			IsActive:    p.IsActive,
			MaxUsers:    p.MaxUsers,
			MaxProducts: p.MaxProducts,
		})
	}
	return out
}
