package models

import (
	"errors"
	"fmt"
)

// Tree records use the camelCase field names the mobile clients read and write.

type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteRejected InviteStatus = "rejected"
)

// Invite lives at invites/{recipient_uid}/{invite_id}. Times are Unix
// milliseconds, matching the clients.
type Invite struct {
	ID          string       `json:"inviteId,omitempty"`
	FromUID     string       `json:"fromUid"`
	FromName    string       `json:"fromName,omitempty"`
	GameID      string       `json:"gameId,omitempty"`
	Status      InviteStatus `json:"status,omitempty"`
	CreatedAt   int64        `json:"createdAt,omitempty"`
	ExpiresAt   int64        `json:"expiresAt,omitempty"`
	RespondedAt int64        `json:"respondedAt,omitempty"`
}

var ErrMalformedRecord = errors.New("malformed record")

// Validate normalises and checks a record read from the tree. A missing
// status is read as pending, which is how clients create invites.
func (i *Invite) Validate() error {
	if i.FromUID == "" {
		return fmt.Errorf("%w: invite without fromUid", ErrMalformedRecord)
	}
	switch i.Status {
	case "":
		i.Status = InvitePending
	case InvitePending, InviteAccepted, InviteRejected:
	default:
		return fmt.Errorf("%w: invite status %q", ErrMalformedRecord, i.Status)
	}
	if i.Status == InviteAccepted && i.GameID == "" {
		return fmt.Errorf("%w: accepted invite without gameId", ErrMalformedRecord)
	}
	return nil
}

// Expired reports whether the invite carries an expiry that has passed.
func (i *Invite) Expired(nowMillis int64) bool {
	return i.ExpiresAt != 0 && i.ExpiresAt < nowMillis
}

type GameStatus string

const (
	// GameInvited marks a session pre-created by the inviter before the
	// recipient has answered.
	GameInvited                  GameStatus = "invited"
	GameWaitingForImageSelection GameStatus = "waiting_for_image_selection"
	GameResults                  GameStatus = "results"
)

// GameSession lives at games/{game_id}; submissions are the child node
// games/{game_id}/submissions keyed by uid.
type GameSession struct {
	ID          string                `json:"gameId,omitempty"`
	PlayerA     string                `json:"playerA"`
	PlayerB     string                `json:"playerB,omitempty"`
	Status      GameStatus            `json:"status"`
	CreatedAt   int64                 `json:"createdAt,omitempty"`
	UpdatedAt   int64                 `json:"updatedAt,omitempty"`
	Submissions map[string]Submission `json:"submissions,omitempty"`
	Results     *Results              `json:"results,omitempty"`
}

func (g *GameSession) Validate() error {
	if g.PlayerA == "" {
		return fmt.Errorf("%w: game without playerA", ErrMalformedRecord)
	}
	switch g.Status {
	case GameInvited, GameWaitingForImageSelection, GameResults:
	default:
		return fmt.Errorf("%w: game status %q", ErrMalformedRecord, g.Status)
	}
	if g.Status == GameResults && g.Results == nil {
		return fmt.Errorf("%w: results status without results", ErrMalformedRecord)
	}
	return nil
}

// IsParticipant reports whether uid is one of the two players.
func (g *GameSession) IsParticipant(uid string) bool {
	return uid != "" && (uid == g.PlayerA || uid == g.PlayerB)
}

type Submission struct {
	DrawingURI  string `json:"drawingUri"`
	OriginalURI string `json:"originalUri"`
	SubmittedAt int64  `json:"submittedAt"`
	TimedOut    bool   `json:"timedOut"`
}

type Results struct {
	Scores     map[string]float64 `json:"scores"`
	Winner     *string            `json:"winner"`
	ComputedAt int64              `json:"computedAt"`
}
