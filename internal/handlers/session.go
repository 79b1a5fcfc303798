package handlers

import (
	"net/http"

	"github.com/HammerMeetNail/drawmaster/internal/logging"
	"github.com/HammerMeetNail/drawmaster/internal/models"
	"github.com/HammerMeetNail/drawmaster/internal/services"
)

type SessionHandler struct {
	sessionService services.SessionServiceInterface
	logger         *logging.Logger
}

func NewSessionHandler(sessionService services.SessionServiceInterface, logger *logging.Logger) *SessionHandler {
	if logger == nil {
		logger = logging.Default
	}
	return &SessionHandler{sessionService: sessionService, logger: logger}
}

type SendInviteRequest struct {
	ToUID string `json:"to_uid"`
}

type InviteRequest struct {
	InviteID string `json:"invite_id"`
}

type InviteResponse struct {
	Invite *models.Invite `json:"invite"`
}

type AcceptInviteResponse struct {
	GameID string `json:"gameId"`
}

type SubmitDrawingRequest struct {
	DrawingURI  string `json:"drawing_uri"`
	OriginalURI string `json:"original_uri"`
	TimedOut    bool   `json:"timed_out"`
}

type GameResponse struct {
	Game *models.GameSession `json:"game"`
}

func (h *SessionHandler) SendInvite(w http.ResponseWriter, r *http.Request) {
	id := requireIdentity(w, r)
	if id == nil {
		return
	}
	var req SendInviteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	fromName := id.Email
	if id.DisplayName != nil && *id.DisplayName != "" {
		fromName = *id.DisplayName
	}
	invite, err := h.sessionService.SendInvite(r.Context(), id.UID, fromName, req.ToUID)
	if err != nil {
		writeServiceError(w, h.logger, "sending invite", err)
		return
	}
	writeJSON(w, http.StatusCreated, InviteResponse{Invite: invite})
}

func (h *SessionHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	id := requireIdentity(w, r)
	if id == nil {
		return
	}
	var req InviteRequest
	if err := decodeBody(w, r, &req); err != nil || req.InviteID == "" {
		writeError(w, http.StatusBadRequest, "invite_id is required")
		return
	}

	gameID, err := h.sessionService.AcceptInvite(r.Context(), req.InviteID, id.UID)
	if err != nil {
		writeServiceError(w, h.logger, "accepting invite", err)
		return
	}
	writeJSON(w, http.StatusOK, AcceptInviteResponse{GameID: gameID})
}

func (h *SessionHandler) RejectInvite(w http.ResponseWriter, r *http.Request) {
	id := requireIdentity(w, r)
	if id == nil {
		return
	}
	var req InviteRequest
	if err := decodeBody(w, r, &req); err != nil || req.InviteID == "" {
		writeError(w, http.StatusBadRequest, "invite_id is required")
		return
	}

	if err := h.sessionService.RejectInvite(r.Context(), req.InviteID, id.UID); err != nil {
		writeServiceError(w, h.logger, "rejecting invite", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *SessionHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	id := requireIdentity(w, r)
	if id == nil {
		return
	}
	game, err := h.sessionService.GetGame(r.Context(), r.PathValue("id"), id.UID)
	if err != nil {
		writeServiceError(w, h.logger, "reading game", err)
		return
	}
	writeJSON(w, http.StatusOK, GameResponse{Game: game})
}

func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id := requireIdentity(w, r)
	if id == nil {
		return
	}
	var req SubmitDrawingRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.sessionService.SubmitDrawing(r.Context(), services.SubmitParams{
		GameID:      r.PathValue("id"),
		UID:         id.UID,
		DrawingURI:  req.DrawingURI,
		OriginalURI: req.OriginalURI,
		TimedOut:    req.TimedOut,
	})
	if err != nil {
		writeServiceError(w, h.logger, "submitting drawing", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
