package server

import (
	"net/http"

	"github.com/wolfeidau/backoffice/internal/auth"
	"github.com/wolfeidau/backoffice/internal/models"
)

type createInvitationRequest struct {
	Email string `json:"email"`
}

func (s *Server) listInvitations(w http.ResponseWriter, r *http.Request) {
	status := models.InvitationStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.InvitationPending, models.InvitationAccepted, models.InvitationRevoked:
	default:
		writeError(w, r, badRequest("invalid status %q", status))
		return
	}

	listed, err := s.invitations.List(r.Context(), auth.CallerFromContext(r.Context()), status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"invitations": newListedInvitationResponses(listed)})
}

func (s *Server) createInvitation(w http.ResponseWriter, r *http.Request) {
	var req createInvitationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	inv, err := s.invitations.Invite(r.Context(), auth.CallerFromContext(r.Context()), req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, newInvitationResponse(inv, false))
}

func (s *Server) revokeInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.invitations.Revoke(r.Context(), auth.CallerFromContext(r.Context()), invitationID); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
