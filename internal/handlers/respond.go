package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/HammerMeetNail/drawmaster/internal/identity"
	"github.com/HammerMeetNail/drawmaster/internal/logging"
	"github.com/HammerMeetNail/drawmaster/internal/services"
)

const maxBodyBytes = 64 << 10

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps a service error kind to a response. Upstream and
// unclassified errors are logged and reported without their cause.
func writeServiceError(w http.ResponseWriter, logger *logging.Logger, op string, err error) {
	switch services.Kind(err) {
	case services.ErrInvalidArgument:
		writeError(w, http.StatusBadRequest, err.Error())
	case services.ErrNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	case services.ErrForbidden:
		writeError(w, http.StatusForbidden, err.Error())
	case services.ErrConflict:
		writeError(w, http.StatusConflict, err.Error())
	case services.ErrUpstream:
		logger.Error(op+" failed", logging.Fields{"error": err})
		writeError(w, http.StatusBadGateway, "Upstream service error")
	default:
		logger.Error(op+" failed", logging.Fields{"error": err})
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

var errBadBody = errors.New("invalid request body")

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errBadBody
	}
	return nil
}

// requireIdentity returns the caller, writing a 401 when there is none.
func requireIdentity(w http.ResponseWriter, r *http.Request) *identity.Identity {
	id := GetIdentityFromContext(r.Context())
	if id == nil || id.UID == "" {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return nil
	}
	return id
}
