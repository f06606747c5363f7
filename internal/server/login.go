package server

import (
	"net/http"

	"github.com/wolfeidau/backoffice/internal/auth"
	"github.com/wolfeidau/backoffice/internal/login"
)

type syncRequest struct {
	Email          string `json:"email"`
	ExternalAuthID string `json:"external_auth_id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
}

type syncResponse struct {
	User                userResponse            `json:"user"`
	Created             bool                    `json:"created"`
	Tenants             []tenantAccessResponse  `json:"tenants"`
	Onboarding          onboardingStateResponse `json:"onboarding"`
	InvitationsAccepted int                     `json:"invitations_accepted"`
	InvitationsFailed   int                     `json:"invitations_failed"`
}

type tenantsResponse struct {
	Tenants    []tenantAccessResponse  `json:"tenants"`
	Onboarding onboardingStateResponse `json:"onboarding"`
}

func (s *Server) syncLogin(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.syncer.Sync(r.Context(), auth.CallerFromContext(r.Context()), login.Profile{
		Email:          req.Email,
		ExternalAuthID: req.ExternalAuthID,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, syncResponse{
		User:                newUserResponse(res.User),
		Created:             res.Created,
		Tenants:             newTenantAccessResponses(res.Tenants),
		Onboarding:          newOnboardingStateResponse(res.Onboarding),
		InvitationsAccepted: len(res.Reconciled.Accepted),
		InvitationsFailed:   res.Reconciled.Failed,
	})
}

// myTenants returns the caller's accessible tenants and onboarding state.
func (s *Server) myTenants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := auth.CallerFromContext(ctx)

	if err := auth.RequireAuthenticated(caller); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := s.admin.GetUser(ctx, caller, caller.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tenants, err := s.aggregator.TenantsFor(ctx, caller)
	if err != nil {
		writeError(w, r, err)
		return
	}

	state, err := s.aggregator.Onboarding(ctx, caller, user.Email, tenants)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, tenantsResponse{
		Tenants:    newTenantAccessResponses(tenants),
		Onboarding: newOnboardingStateResponse(state),
	})
}
