package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/wolfeidau/backoffice/internal/admin"
	"github.com/wolfeidau/backoffice/internal/auth"
)

type createTenantRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Slug        string     `json:"slug"`
	OwnerUserID *uuid.UUID `json:"owner_user_id"`
}

type updateTenantRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Slug        *string `json:"slug"`
	IsActive    *bool   `json:"is_active"`
}

type addMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (s *Server) listTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.admin.ListTenants(r.Context(), auth.CallerFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"tenants": newTenantResponses(tenants)})
}

func (s *Server) createTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tenant, err := s.admin.CreateTenant(r.Context(), auth.CallerFromContext(r.Context()), admin.CreateTenantInput{
		Name:        req.Name,
		Description: req.Description,
		Slug:        req.Slug,
		OwnerUserID: req.OwnerUserID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, newTenantResponse(tenant))
}

func (s *Server) getTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	tenant, err := s.admin.GetTenant(r.Context(), auth.CallerFromContext(r.Context()), tenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newTenantResponse(tenant))
}

func (s *Server) updateTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateTenantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tenant, err := s.admin.UpdateTenant(r.Context(), auth.CallerFromContext(r.Context()), tenantID, admin.UpdateTenantInput{
		Name:        req.Name,
		Description: req.Description,
		Slug:        req.Slug,
		IsActive:    req.IsActive,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newTenantResponse(tenant))
}

func (s *Server) deactivateTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.admin.DeactivateTenant(r.Context(), auth.CallerFromContext(r.Context()), tenantID); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	tenantID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	members, err := s.admin.ListMembers(r.Context(), auth.CallerFromContext(r.Context()), tenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"members": newMemberResponses(members)})
}

func (s *Server) addMember(w http.ResponseWriter, r *http.Request) {
	tenantID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req addMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	membership, err := s.admin.AddMember(r.Context(), auth.CallerFromContext(r.Context()), tenantID, req.Email, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, newMembershipResponse(membership))
}

func (s *Server) removeMember(w http.ResponseWriter, r *http.Request) {
	tenantID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := pathID(r, "user_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.admin.RemoveMember(r.Context(), auth.CallerFromContext(r.Context()), tenantID, userID); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
