package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// httpStatus maps a connect code onto the HTTP status and the short code name
// reported to clients.
func httpStatus(code connect.Code) (int, string) {
	switch code {
	case connect.CodeNotFound:
		return http.StatusNotFound, "not_found"
	case connect.CodeAlreadyExists:
		return http.StatusConflict, "conflict"
	case connect.CodePermissionDenied:
		return http.StatusForbidden, "forbidden"
	case connect.CodeFailedPrecondition:
		return http.StatusPreconditionFailed, "precondition_failed"
	case connect.CodeInvalidArgument:
		return http.StatusBadRequest, "bad_request"
	case connect.CodeUnauthenticated:
		return http.StatusUnauthorized, "unauthenticated"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError writes err as a JSON error body. Errors without a connect code are
// reported as internal and their message is not exposed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Unhandled error")
		connectErr = connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}

	status, code := httpStatus(connectErr.Code())
	writeJSON(w, r, status, errorResponse{Error: connectErr.Message(), Code: code})
}

func badRequest(format string, args ...any) error {
	return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf(format, args...))
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return decode(w, r, v, false)
}

// decodeOptionalJSON is decodeJSON for requests where every field is optional
// and an empty body is allowed.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return decode(w, r, v, true)
}

func decode(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			if optional {
				return nil
			}
			return badRequest("request body is required")
		}
		return badRequest("invalid request body: %v", err)
	}

	return nil
}

// pathID parses a UUID path value.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, badRequest("invalid %s", name)
	}
	return id, nil
}
