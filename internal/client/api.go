package client

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SyncRequest is the profile asserted at login.
type SyncRequest struct {
	Email          string `json:"email"`
	ExternalAuthID string `json:"external_auth_id,omitempty"`
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
}

type User struct {
	UserID      uuid.UUID  `json:"user_id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	DisplayName string     `json:"display_name"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

type TenantAccess struct {
	TenantID   uuid.UUID `json:"tenant_id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	Role       string    `json:"role"`
	IsPersonal bool      `json:"is_personal"`
}

type OnboardingState struct {
	RequiresOnboarding bool       `json:"requires_onboarding"`
	OnboardingStep     int        `json:"onboarding_step"`
	OnboardingTenantID *uuid.UUID `json:"onboarding_tenant_id,omitempty"`
	PendingInvitations int        `json:"pending_invitations"`
}

type SyncResponse struct {
	User                User            `json:"user"`
	Created             bool            `json:"created"`
	Tenants             []TenantAccess  `json:"tenants"`
	Onboarding          OnboardingState `json:"onboarding"`
	InvitationsAccepted int             `json:"invitations_accepted"`
	InvitationsFailed   int             `json:"invitations_failed"`
}

type TenantsResponse struct {
	Tenants    []TenantAccess  `json:"tenants"`
	Onboarding OnboardingState `json:"onboarding"`
}

type Tenant struct {
	TenantID            uuid.UUID `json:"tenant_id"`
	Name                string    `json:"name"`
	Slug                string    `json:"slug"`
	IsActive            bool      `json:"is_active"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	OnboardingStep      int       `json:"onboarding_step"`
}

type Subscription struct {
	PlanID           string `json:"plan_id"`
	Status           string `json:"status"`
	HasPaymentMethod bool   `json:"has_payment_method"`
}

type OnboardingStatus struct {
	Tenant         *Tenant       `json:"tenant,omitempty"`
	Subscription   *Subscription `json:"subscription,omitempty"`
	OnboardingStep int           `json:"onboarding_step"`
}

type Invitation struct {
	InvitationID uuid.UUID `json:"invitation_id"`
	Email        string    `json:"email"`
	TenantID     uuid.UUID `json:"tenant_id"`
	Status       string    `json:"status"`
	Expired      bool      `json:"expired"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Sync records a login for the configured caller.
func (c *Client) Sync(ctx context.Context, req SyncRequest) (*SyncResponse, error) {
	var resp SyncResponse
	if err := c.do(ctx, http.MethodPost, "/auth/sync", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Tenants lists the caller's accessible tenants.
func (c *Client) Tenants(ctx context.Context) (*TenantsResponse, error) {
	var resp TenantsResponse
	if err := c.do(ctx, http.MethodGet, "/me/tenants", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// OnboardingStatus returns the caller's onboarding progress.
func (c *Client) OnboardingStatus(ctx context.Context) (*OnboardingStatus, error) {
	var resp OnboardingStatus
	if err := c.do(ctx, http.MethodGet, "/onboarding/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Invite invites email to the caller's selected tenant.
func (c *Client) Invite(ctx context.Context, email string) (*Invitation, error) {
	var resp Invitation
	if err := c.do(ctx, http.MethodPost, "/invitations", map[string]string{"email": email}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Invitations lists the invitations of the caller's selected tenant.
func (c *Client) Invitations(ctx context.Context) ([]Invitation, error) {
	var resp struct {
		Invitations []Invitation `json:"invitations"`
	}
	if err := c.do(ctx, http.MethodGet, "/invitations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Invitations, nil
}
