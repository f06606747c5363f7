package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/wolfeidau/backoffice/internal/auth"
	"github.com/wolfeidau/backoffice/internal/onboarding"
)

type onboardingTenantRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PlanID      string `json:"plan_id"`
}

type onboardingTenantResponse struct {
	Tenant         tenantResponse        `json:"tenant"`
	Subscription   *subscriptionResponse `json:"subscription,omitempty"`
	Created        bool                  `json:"created"`
	OnboardingStep int                   `json:"onboarding_step"`
}

type onboardingInvitationsRequest struct {
	TenantID *uuid.UUID `json:"tenant_id"`
	Emails   []string   `json:"emails"`
}

type onboardingPaymentRequest struct {
	TenantID         *uuid.UUID `json:"tenant_id"`
	PaymentMethodRef string     `json:"payment_method_ref"`
	BillingEmail     string     `json:"billing_email"`
}

type onboardingCompleteRequest struct {
	TenantID *uuid.UUID `json:"tenant_id"`
}

type onboardingStatusResponse struct {
	Tenant         *tenantResponse       `json:"tenant,omitempty"`
	Subscription   *subscriptionResponse `json:"subscription,omitempty"`
	OnboardingStep int                   `json:"onboarding_step"`
}

// onboardingTenantID picks the tenant named in the body, falling back to the
// caller's selected tenant.
func onboardingTenantID(caller auth.CallerContext, fromBody *uuid.UUID) (uuid.UUID, error) {
	if fromBody != nil && *fromBody != uuid.Nil {
		return *fromBody, nil
	}
	if id, ok := caller.Scope.TenantID(); ok {
		return id, nil
	}
	return uuid.Nil, badRequest("tenant_id is required")
}

func (s *Server) onboardingStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.workflow.Status(r.Context(), auth.CallerFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := onboardingStatusResponse{
		Subscription:   newSubscriptionResponse(status.Subscription),
		OnboardingStep: status.Step,
	}
	if status.Tenant != nil {
		t := newTenantResponse(status.Tenant)
		resp.Tenant = &t
	}

	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) onboardingTenant(w http.ResponseWriter, r *http.Request) {
	var req onboardingTenantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.workflow.CreateOrUpdateTenant(r.Context(), auth.CallerFromContext(r.Context()), onboarding.TenantInput{
		Name:        req.Name,
		Description: req.Description,
		PlanID:      req.PlanID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}

	writeJSON(w, r, status, onboardingTenantResponse{
		Tenant:         newTenantResponse(res.Tenant),
		Subscription:   newSubscriptionResponse(res.Subscription),
		Created:        res.Created,
		OnboardingStep: res.Tenant.OnboardingStep,
	})
}

func (s *Server) onboardingInvitations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := auth.CallerFromContext(ctx)

	var req onboardingInvitationsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tenantID, err := onboardingTenantID(caller, req.TenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.workflow.CreateInvitations(ctx, caller, tenantID, req.Emails)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newInvitationsResultResponse(res))
}

func (s *Server) onboardingPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := auth.CallerFromContext(ctx)

	var req onboardingPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tenantID, err := onboardingTenantID(caller, req.TenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sub, err := s.workflow.AttachPayment(ctx, caller, tenantID, onboarding.PaymentInput{
		PaymentMethodRef: req.PaymentMethodRef,
		BillingEmail:     req.BillingEmail,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newSubscriptionResponse(sub))
}

func (s *Server) onboardingComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := auth.CallerFromContext(ctx)

	var req onboardingCompleteRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tenantID, err := onboardingTenantID(caller, req.TenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tenant, err := s.workflow.Complete(ctx, caller, tenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newTenantResponse(tenant))
}
