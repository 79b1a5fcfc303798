package models

import "time"

type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
)

type FriendRequest struct {
	ID          int64               `json:"id"`
	FromUID     string              `json:"from_uid"`
	ToUID       string              `json:"to_uid"`
	Status      FriendRequestStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	RespondedAt *time.Time          `json:"responded_at"`
}

// FriendEdge is one direction of a friendship. A friendship holds only when
// both (A,B) and (B,A) exist.
type FriendEdge struct {
	OwnerUID  string    `json:"owner_uid"`
	FriendUID string    `json:"friend_uid"`
	CreatedAt time.Time `json:"created_at"`
}

// Friend is a FriendEdge enriched for display. Email and DisplayName are
// best-effort and may be nil.
type Friend struct {
	FriendUID   string    `json:"friend_uid"`
	Email       *string   `json:"email"`
	DisplayName *string   `json:"display_name"`
	Since       time.Time `json:"since"`
}

// FriendRequestView is a pending request enriched for display.
type FriendRequestView struct {
	ID          int64     `json:"id"`
	FromUID     string    `json:"from_uid"`
	ToUID       string    `json:"to_uid"`
	FromEmail   *string   `json:"from_email"`
	ToEmail     *string   `json:"to_email"`
	DisplayName *string   `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

type RequestDirection string

const (
	DirectionIncoming RequestDirection = "incoming"
	DirectionOutgoing RequestDirection = "outgoing"
)
