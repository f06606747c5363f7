package server

import (
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
)

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.stores.Plans.List(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to list plans")
		writeError(w, r, connect.NewError(connect.CodeInternal, errors.New("failed to list plans")))
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"plans": newPlanResponses(plans)})
}
