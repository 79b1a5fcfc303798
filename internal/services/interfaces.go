package services

import (
	"context"

	"github.com/HammerMeetNail/drawmaster/internal/models"
)

// ProfileServiceInterface defines the contract for profile operations.
type ProfileServiceInterface interface {
	CreateProfile(ctx context.Context, uid string, displayName *string) (*models.Profile, bool, error)
	GetProfile(ctx context.Context, uid string) (*models.Profile, error)
	UpdateDisplayName(ctx context.Context, uid, displayName string) (*models.Profile, error)
	RecordScore(ctx context.Context, uid string, score float64) (*models.GameRecord, error)
}

// FriendServiceInterface defines the contract for friend request operations.
type FriendServiceInterface interface {
	SendRequest(ctx context.Context, fromUID, toUID, toEmail string) (*models.FriendRequest, error)
	AcceptRequest(ctx context.Context, requestID int64, actingUID string) (*models.FriendRequest, error)
	RejectRequest(ctx context.Context, requestID int64, actingUID string) (int64, error)
	ListFriends(ctx context.Context, uid string) ([]models.Friend, error)
	ListRequests(ctx context.Context, uid string, direction models.RequestDirection) ([]models.FriendRequestView, error)
	IsFriend(ctx context.Context, a, b string) (bool, error)
}

// SessionServiceInterface defines the contract for multiplayer sessions.
type SessionServiceInterface interface {
	SendInvite(ctx context.Context, fromUID, fromName, toUID string) (*models.Invite, error)
	AcceptInvite(ctx context.Context, inviteID, recipientUID string) (string, error)
	RejectInvite(ctx context.Context, inviteID, recipientUID string) error
	GetGame(ctx context.Context, gameID, uid string) (*models.GameSession, error)
	SubmitDrawing(ctx context.Context, p SubmitParams) (*SubmitResult, error)
}

var (
	_ ProfileServiceInterface = (*ProfileService)(nil)
	_ FriendServiceInterface  = (*FriendService)(nil)
	_ SessionServiceInterface = (*SessionService)(nil)
	_ FriendChecker           = (*FriendService)(nil)
)
