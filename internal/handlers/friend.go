package handlers

import (
	"net/http"

	"github.com/HammerMeetNail/drawmaster/internal/logging"
	"github.com/HammerMeetNail/drawmaster/internal/models"
	"github.com/HammerMeetNail/drawmaster/internal/services"
)

type FriendHandler struct {
	friendService services.FriendServiceInterface
	logger        *logging.Logger
}

func NewFriendHandler(friendService services.FriendServiceInterface, logger *logging.Logger) *FriendHandler {
	if logger == nil {
		logger = logging.Default
	}
	return &FriendHandler{friendService: friendService, logger: logger}
}

type SendRequestRequest struct {
	ToUID   string `json:"to_uid"`
	ToEmail string `json:"to_email"`
}

type RespondRequestRequest struct {
	RequestID int64 `json:"request_id"`
}

type FriendListResponse struct {
	Friends []models.Friend `json:"friends"`
}

type FriendRequestsResponse struct {
	Requests []models.FriendRequestView `json:"requests"`
}

type FriendRequestResponse struct {
	Request *models.FriendRequest `json:"request"`
	Message string                `json:"message,omitempty"`
}

type RejectResponse struct {
	RequestID int64  `json:"request_id"`
	Message   string `json:"message"`
}

func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	id := requireIdentity(w, r)
	if id == nil {
		return
	}
	friends, err := h.friendService.ListFriends(r.Context(), id.UID)
	if err != nil {
		writeServiceError(w, h.logger, "listing friends", err)
		return
	}
	writeJSON(w, http.StatusOK, FriendListResponse{Friends: friends})
}

func (h *FriendHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	h.listRequests(w, r, models.DirectionIncoming)
}

func (h *FriendHandler) Sent(w http.ResponseWriter, r *http.Request) {
	h.listRequests(w, r, models.DirectionOutgoing)
}

func (h *FriendHandler) listRequests(w http.ResponseWriter, r *http.Request, direction models.RequestDirection) {
	id := requireIdentity(w, r)
	if id == nil {
		return
	}
	requests, err := h.friendService.ListRequests(r.Context(), id.UID, direction)
	if err != nil {
		writeServiceError(w, h.logger, "listing friend requests", err)
		return
	}
	writeJSON(w, http.StatusOK, FriendRequestsResponse{Requests: requests})
}

func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	id := requireIdentity(w, r)
	if id == nil {
		return
	}
	var req SendRequestRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.friendService.SendRequest(r.Context(), id.UID, req.ToUID, req.ToEmail)
	if err != nil {
		writeServiceError(w, h.logger, "sending friend request", err)
		return
	}
	writeJSON(w, http.StatusCreated, FriendRequestResponse{Request: created, Message: "Friend request sent"})
}

func (h *FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id := requireIdentity(w, r)
	if id == nil {
		return
	}
	var req RespondRequestRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RequestID <= 0 {
		writeError(w, http.StatusBadRequest, "request_id is required")
		return
	}

	accepted, err := h.friendService.AcceptRequest(r.Context(), req.RequestID, id.UID)
	if err != nil {
		writeServiceError(w, h.logger, "accepting friend request", err)
		return
	}
	writeJSON(w, http.StatusOK, FriendRequestResponse{Request: accepted, Message: "Friend request accepted"})
}

func (h *FriendHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id := requireIdentity(w, r)
	if id == nil {
		return
	}
	var req RespondRequestRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RequestID <= 0 {
		writeError(w, http.StatusBadRequest, "request_id is required")
		return
	}

	deleted, err := h.friendService.RejectRequest(r.Context(), req.RequestID, id.UID)
	if err != nil {
		writeServiceError(w, h.logger, "rejecting friend request", err)
		return
	}
	writeJSON(w, http.StatusOK, RejectResponse{RequestID: deleted, Message: "Friend request rejected"})
}
