package handlers

import (
	"net/http"

	"github.com/HammerMeetNail/drawmaster/internal/logging"
	"github.com/HammerMeetNail/drawmaster/internal/models"
	"github.com/HammerMeetNail/drawmaster/internal/services"
)

type ProfileHandler struct {
	profileService services.ProfileServiceInterface
	logger         *logging.Logger
}

func NewProfileHandler(profileService services.ProfileServiceInterface, logger *logging.Logger) *ProfileHandler {
	if logger == nil {
		logger = logging.Default
	}
	return &ProfileHandler{profileService: profileService, logger: logger}
}

type ProfileRequest struct {
	DisplayName *string `json:"display_name"`
}

type ProfileResponse struct {
	Profile *models.Profile `json:"profile"`
	Created bool            `json:"created,omitempty"`
}

type RecordScoreRequest struct {
	Score *float64 `json:"score"`
}

func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := requireIdentity(w, r)
	if id == nil {
		return
	}
	var req ProfileRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.DisplayName == nil {
		req.DisplayName = id.DisplayName
	}

	profile, created, err := h.profileService.CreateProfile(r.Context(), id.UID, req.DisplayName)
	if err != nil {
		writeServiceError(w, h.logger, "creating profile", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, ProfileResponse{Profile: profile, Created: created})
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := requireIdentity(w, r)
	if id == nil {
		return
	}
	profile, err := h.profileService.GetProfile(r.Context(), id.UID)
	if err != nil {
		writeServiceError(w, h.logger, "reading profile", err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{Profile: profile})
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := requireIdentity(w, r)
	if id == nil {
		return
	}
	var req ProfileRequest
	if err := decodeBody(w, r, &req); err != nil || req.DisplayName == nil {
		writeError(w, http.StatusBadRequest, "display_name is required")
		return
	}

	profile, err := h.profileService.UpdateDisplayName(r.Context(), id.UID, *req.DisplayName)
	if err != nil {
		writeServiceError(w, h.logger, "updating profile", err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{Profile: profile})
}

func (h *ProfileHandler) RecordScore(w http.ResponseWriter, r *http.Request) {
	id := requireIdentity(w, r)
	if id == nil {
		return
	}
	var req RecordScoreRequest
	if err := decodeBody(w, r, &req); err != nil || req.Score == nil {
		writeError(w, http.StatusBadRequest, "score is required")
		return
	}

	record, err := h.profileService.RecordScore(r.Context(), id.UID, *req.Score)
	if err != nil {
		writeServiceError(w, h.logger, "recording score", err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}
