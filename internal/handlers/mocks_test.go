package handlers

import (
	"context"

	"github.com/HammerMeetNail/drawmaster/internal/models"
	"github.com/HammerMeetNail/drawmaster/internal/services"
)

type mockProfileService struct {
	CreateProfileFunc     func(ctx context.Context, uid string, displayName *string) (*models.Profile, bool, error)
	GetProfileFunc        func(ctx context.Context, uid string) (*models.Profile, error)
	UpdateDisplayNameFunc func(ctx context.Context, uid, displayName string) (*models.Profile, error)
	RecordScoreFunc       func(ctx context.Context, uid string, score float64) (*models.GameRecord, error)
}

func (m *mockProfileService) CreateProfile(ctx context.Context, uid string, displayName *string) (*models.Profile, bool, error) {
	if m.CreateProfileFunc != nil {
		return m.CreateProfileFunc(ctx, uid, displayName)
	}
	return nil, false, nil
}

func (m *mockProfileService) GetProfile(ctx context.Context, uid string) (*models.Profile, error) {
	if m.GetProfileFunc != nil {
		return m.GetProfileFunc(ctx, uid)
	}
	return nil, nil
}

func (m *mockProfileService) UpdateDisplayName(ctx context.Context, uid, displayName string) (*models.Profile, error) {
	if m.UpdateDisplayNameFunc != nil {
		return m.UpdateDisplayNameFunc(ctx, uid, displayName)
	}
	return nil, nil
}

func (m *mockProfileService) RecordScore(ctx context.Context, uid string, score float64) (*models.GameRecord, error) {
	if m.RecordScoreFunc != nil {
		return m.RecordScoreFunc(ctx, uid, score)
	}
	return nil, nil
}

type mockFriendService struct {
	SendRequestFunc   func(ctx context.Context, fromUID, toUID, toEmail string) (*models.FriendRequest, error)
	AcceptRequestFunc func(ctx context.Context, requestID int64, actingUID string) (*models.FriendRequest, error)
	RejectRequestFunc func(ctx context.Context, requestID int64, actingUID string) (int64, error)
	ListFriendsFunc   func(ctx context.Context, uid string) ([]models.Friend, error)
	ListRequestsFunc  func(ctx context.Context, uid string, direction models.RequestDirection) ([]models.FriendRequestView, error)
	IsFriendFunc      func(ctx context.Context, a, b string) (bool, error)
}

func (m *mockFriendService) SendRequest(ctx context.Context, fromUID, toUID, toEmail string) (*models.FriendRequest, error) {
	if m.SendRequestFunc != nil {
		return m.SendRequestFunc(ctx, fromUID, toUID, toEmail)
	}
	return nil, nil
}

func (m *mockFriendService) AcceptRequest(ctx context.Context, requestID int64, actingUID string) (*models.FriendRequest, error) {
	if m.AcceptRequestFunc != nil {
		return m.AcceptRequestFunc(ctx, requestID, actingUID)
	}
	return nil, nil
}

func (m *mockFriendService) RejectRequest(ctx context.Context, requestID int64, actingUID string) (int64, error) {
	if m.RejectRequestFunc != nil {
		return m.RejectRequestFunc(ctx, requestID, actingUID)
	}
	return 0, nil
}

func (m *mockFriendService) ListFriends(ctx context.Context, uid string) ([]models.Friend, error) {
	if m.ListFriendsFunc != nil {
		return m.ListFriendsFunc(ctx, uid)
	}
	return []models.Friend{}, nil
}

func (m *mockFriendService) ListRequests(ctx context.Context, uid string, direction models.RequestDirection) ([]models.FriendRequestView, error) {
	if m.ListRequestsFunc != nil {
		return m.ListRequestsFunc(ctx, uid, direction)
	}
	return []models.FriendRequestView{}, nil
}

func (m *mockFriendService) IsFriend(ctx context.Context, a, b string) (bool, error) {
	if m.IsFriendFunc != nil {
		return m.IsFriendFunc(ctx, a, b)
	}
	return false, nil
}

type mockSessionService struct {
	SendInviteFunc    func(ctx context.Context, fromUID, fromName, toUID string) (*models.Invite, error)
	AcceptInviteFunc  func(ctx context.Context, inviteID, recipientUID string) (string, error)
	RejectInviteFunc  func(ctx context.Context, inviteID, recipientUID string) error
	GetGameFunc       func(ctx context.Context, gameID, uid string) (*models.GameSession, error)
	SubmitDrawingFunc func(ctx context.Context, p services.SubmitParams) (*services.SubmitResult, error)
}

func (m *mockSessionService) SendInvite(ctx context.Context, fromUID, fromName, toUID string) (*models.Invite, error) {
	if m.SendInviteFunc != nil {
		return m.SendInviteFunc(ctx, fromUID, fromName, toUID)
	}
	return nil, nil
}

func (m *mockSessionService) AcceptInvite(ctx context.Context, inviteID, recipientUID string) (string, error) {
	if m.AcceptInviteFunc != nil {
		return m.AcceptInviteFunc(ctx, inviteID, recipientUID)
	}
	return "", nil
}

func (m *mockSessionService) RejectInvite(ctx context.Context, inviteID, recipientUID string) error {
	if m.RejectInviteFunc != nil {
		return m.RejectInviteFunc(ctx, inviteID, recipientUID)
	}
	return nil
}

func (m *mockSessionService) GetGame(ctx context.Context, gameID, uid string) (*models.GameSession, error) {
	if m.GetGameFunc != nil {
		return m.GetGameFunc(ctx, gameID, uid)
	}
	return nil, nil
}

func (m *mockSessionService) SubmitDrawing(ctx context.Context, p services.SubmitParams) (*services.SubmitResult, error) {
	if m.SubmitDrawingFunc != nil {
		return m.SubmitDrawingFunc(ctx, p)
	}
	return nil, nil
}
