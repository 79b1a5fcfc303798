package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/HammerMeetNail/drawmaster/internal/logging"
	"github.com/HammerMeetNail/drawmaster/internal/models"
	"github.com/HammerMeetNail/drawmaster/internal/tree"
)

const defaultInviteTTL = 60 * time.Second

// FriendChecker reports whether two uids are mutual friends.
type FriendChecker interface {
	IsFriend(ctx context.Context, a, b string) (bool, error)
}

type SessionOptions struct {
	// ConditionalWrites claims invites and the results transition with
	// UpdateIf, so each happens once. Without it, concurrent calls may both
	// apply their writes.
	ConditionalWrites bool
	InviteTTL         time.Duration
}

// SessionService coordinates invites and game sessions in the shared tree.
// Every operation re-reads the records it decides on; nothing is cached.
type SessionService struct {
	tree    tree.Store
	friends FriendChecker
	scorer  Scorer
	logger  *logging.Logger
	opts    SessionOptions
	now     func() time.Time
}

func NewSessionService(store tree.Store, friends FriendChecker, scorer Scorer, logger *logging.Logger, opts SessionOptions) *SessionService {
	if scorer == nil {
		scorer = StubScorer{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.InviteTTL <= 0 {
		opts.InviteTTL = defaultInviteTTL
	}
	return &SessionService{
		tree:    store,
		friends: friends,
		scorer:  scorer,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
	}
}

// SendInvite pre-creates a session for the inviter and pushes a pending
// invite to the recipient.
func (s *SessionService) SendInvite(ctx context.Context, fromUID, fromName, toUID string) (*models.Invite, error) {
	if fromUID == "" {
		return nil, ErrMissingSender
	}
	toUID = strings.TrimSpace(toUID)
	if toUID == "" {
		return nil, ErrMissingRecipient
	}
	if fromUID == toUID {
		return nil, ErrSelfInvite
	}
	invitesPath, err := tree.Path("invites", toUID)
	if err != nil {
		return nil, ErrInvalidID
	}

	ok, err := s.friends.IsFriend(ctx, fromUID, toUID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFriends
	}

	now := s.now().UnixMilli()
	gameID := tree.NewKey()
	if err := s.tree.Set(ctx, "games/"+gameID, map[string]any{
		"gameId":    gameID,
		"playerA":   fromUID,
		"status":    models.GameInvited,
		"createdAt": now,
		"updatedAt": now,
	}); err != nil {
		return nil, upstream("creating game", err)
	}

	invite := &models.Invite{
		FromUID:   fromUID,
		FromName:  fromName,
		GameID:    gameID,
		Status:    models.InvitePending,
		CreatedAt: now,
		ExpiresAt: now + s.opts.InviteTTL.Milliseconds(),
	}
	inviteID, err := s.tree.Push(ctx, invitesPath, map[string]any{
		"fromUid":   invite.FromUID,
		"fromName":  invite.FromName,
		"gameId":    invite.GameID,
		"status":    invite.Status,
		"createdAt": invite.CreatedAt,
		"expiresAt": invite.ExpiresAt,
	})
	if err != nil {
		return nil, upstream("pushing invite", err)
	}
	invite.ID = inviteID

	s.logger.Info("invite sent", logging.Fields{"invite_id": inviteID, "game_id": gameID, "from_uid": fromUID, "to_uid": toUID})
	return invite, nil
}

// AcceptInvite moves a pending invite to accepted and returns the game it
// resolved to: the session embedded in the invite, or a new one.
func (s *SessionService) AcceptInvite(ctx context.Context, inviteID, recipientUID string) (string, error) {
	invite, node, invitePath, err := s.readInvite(ctx, recipientUID, inviteID)
	if err != nil {
		return "", err
	}
	if invite.FromUID == recipientUID {
		return "", ErrSelfInvite
	}
	if err := s.checkPending(invite); err != nil {
		return "", err
	}

	now := s.now().UnixMilli()
	log := s.logger.WithFields(logging.Fields{"invite_id": inviteID, "uid": recipientUID})

	if !s.opts.ConditionalWrites {
		gameID, err := s.startGame(ctx, invite, recipientUID, now, false)
		if err != nil {
			return "", err
		}
		if err := s.tree.Update(ctx, invitePath, map[string]any{
			"status":      models.InviteAccepted,
			"gameId":      gameID,
			"respondedAt": now,
		}); err != nil {
			return "", upstream("accepting invite", err)
		}
		log.Info("invite accepted", logging.Fields{"game_id": gameID})
		return gameID, nil
	}

	gameID := invite.GameID
	if gameID == "" {
		gameID = tree.NewKey()
	}
	claimed, err := s.tree.UpdateIf(ctx, invitePath, "status", tree.Equals(models.InvitePending, true), map[string]any{
		"status":      models.InviteAccepted,
		"gameId":      gameID,
		"respondedAt": now,
	})
	if err != nil {
		return "", upstream("claiming invite", err)
	}
	if !claimed {
		log.Info("invite already claimed by a concurrent call")
		return "", ErrInviteResponded
	}

	claimedInvite := *invite
	claimedInvite.GameID = gameID
	if _, err := s.startGame(ctx, &claimedInvite, recipientUID, now, invite.GameID == ""); err != nil {
		s.restoreInvite(ctx, invitePath, node, log)
		return "", err
	}
	log.Info("invite accepted", logging.Fields{"game_id": gameID})
	return gameID, nil
}

// RejectInvite marks a pending invite rejected. The invite is kept so the
// sender can see the answer.
func (s *SessionService) RejectInvite(ctx context.Context, inviteID, recipientUID string) error {
	invite, _, invitePath, err := s.readInvite(ctx, recipientUID, inviteID)
	if err != nil {
		return err
	}
	if err := s.checkPending(invite); err != nil {
		return err
	}

	fields := map[string]any{
		"status":      models.InviteRejected,
		"respondedAt": s.now().UnixMilli(),
	}
	if !s.opts.ConditionalWrites {
		if err := s.tree.Update(ctx, invitePath, fields); err != nil {
			return upstream("rejecting invite", err)
		}
		return nil
	}

	claimed, err := s.tree.UpdateIf(ctx, invitePath, "status", tree.Equals(models.InvitePending, true), fields)
	if err != nil {
		return upstream("rejecting invite", err)
	}
	if !claimed {
		return ErrInviteResponded
	}
	return nil
}

// GetGame returns the session and its submissions to one of its players.
func (s *SessionService) GetGame(ctx context.Context, gameID, uid string) (*models.GameSession, error) {
	game, err := s.readGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !game.IsParticipant(uid) {
		return nil, ErrNotParticipant
	}
	subs, err := s.readSubmissions(ctx, gameID)
	if err != nil {
		return nil, err
	}
	game.Submissions = subs
	return game, nil
}

type SubmitParams struct {
	GameID      string
	UID         string
	DrawingURI  string
	OriginalURI string
	TimedOut    bool
}

// SubmitResult describes a stored submission. Warning is set when the
// submission landed but computing or writing results failed.
type SubmitResult struct {
	GameID     string            `json:"gameId"`
	Submission models.Submission `json:"submission"`
	Status     models.GameStatus `json:"status"`
	Results    *models.Results   `json:"results,omitempty"`
	Warning    string            `json:"warning,omitempty"`
}

// SubmitDrawing stores the caller's submission, overwriting any earlier one,
// and moves the game to results once two players have submitted.
func (s *SessionService) SubmitDrawing(ctx context.Context, p SubmitParams) (*SubmitResult, error) {
	if p.DrawingURI == "" && !p.TimedOut {
		return nil, ErrMissingDrawing
	}
	game, err := s.readGame(ctx, p.GameID)
	if err != nil {
		return nil, err
	}
	if !game.IsParticipant(p.UID) {
		return nil, ErrNotParticipant
	}
	if game.Status == models.GameInvited {
		return nil, ErrGameNotStarted
	}

	sub := models.Submission{
		DrawingURI:  p.DrawingURI,
		OriginalURI: p.OriginalURI,
		SubmittedAt: s.now().UnixMilli(),
		TimedOut:    p.TimedOut,
	}
	if err := s.tree.Update(ctx, "games/"+p.GameID+"/submissions", map[string]any{p.UID: sub}); err != nil {
		return nil, upstream("writing submission", err)
	}

	result := &SubmitResult{GameID: p.GameID, Submission: sub, Status: game.Status, Results: game.Results}
	log := s.logger.WithFields(logging.Fields{"game_id": p.GameID, "uid": p.UID})

	subs, err := s.readSubmissions(ctx, p.GameID)
	if err != nil {
		log.Warn("re-reading submissions failed", logging.Fields{"error": err})
		result.Warning = "submission saved; results not computed"
		return result, nil
	}
	if len(subs) < 2 {
		return result, nil
	}

	results, applied, err := s.writeResults(ctx, game, subs)
	if err != nil {
		log.Warn("computing results failed", logging.Fields{"error": err})
		result.Warning = "submission saved; results not computed"
		return result, nil
	}
	if !applied {
		// Another submit already moved the game to results.
		if current, err := s.readGame(ctx, p.GameID); err == nil {
			result.Status = current.Status
			result.Results = current.Results
		}
		return result, nil
	}
	result.Status = models.GameResults
	result.Results = results
	return result, nil
}

func (s *SessionService) writeResults(ctx context.Context, game *models.GameSession, subs map[string]models.Submission) (*models.Results, bool, error) {
	pair := resultPair(game, subs)
	chosen := make(map[string]models.Submission, len(pair))
	for _, uid := range pair {
		chosen[uid] = subs[uid]
	}
	scores, winner, err := s.scorer.Score(ctx, chosen)
	if err != nil {
		return nil, false, err
	}

	now := s.now().UnixMilli()
	results := &models.Results{Scores: scores, Winner: winner, ComputedAt: now}
	fields := map[string]any{
		"results":   results,
		"status":    models.GameResults,
		"updatedAt": now,
	}
	gamePath := "games/" + game.ID

	if !s.opts.ConditionalWrites {
		if err := s.tree.Update(ctx, gamePath, fields); err != nil {
			return nil, false, upstream("writing results", err)
		}
		return results, true, nil
	}

	applied, err := s.tree.UpdateIf(ctx, gamePath, "status", tree.Equals(models.GameWaitingForImageSelection, false), fields)
	if err != nil {
		return nil, false, upstream("writing results", err)
	}
	return results, applied, nil
}

// resultPair picks the two submissions to score: both players when both have
// submitted, otherwise the two earliest, ties broken by uid.
func resultPair(game *models.GameSession, subs map[string]models.Submission) []string {
	_, okA := subs[game.PlayerA]
	_, okB := subs[game.PlayerB]
	if okA && okB && game.PlayerB != "" {
		return []string{game.PlayerA, game.PlayerB}
	}

	uids := make([]string, 0, len(subs))
	for uid := range subs {
		uids = append(uids, uid)
	}
	sort.Slice(uids, func(i, j int) bool {
		a, b := subs[uids[i]], subs[uids[j]]
		if a.SubmittedAt != b.SubmittedAt {
			return a.SubmittedAt < b.SubmittedAt
		}
		return uids[i] < uids[j]
	})
	if len(uids) > 2 {
		uids = uids[:2]
	}
	return uids
}

// startGame points the invite's session at the recipient, creating the
// session when the invite carries none. generated marks a game id chosen by
// this call rather than by the inviter.
func (s *SessionService) startGame(ctx context.Context, invite *models.Invite, recipientUID string, now int64, generated bool) (string, error) {
	fields := map[string]any{
		"playerA":   invite.FromUID,
		"playerB":   recipientUID,
		"status":    models.GameWaitingForImageSelection,
		"updatedAt": now,
	}

	if invite.GameID == "" {
		fields["createdAt"] = now
		gameID, err := s.tree.Push(ctx, "games", fields)
		if err != nil {
			return "", upstream("creating game", err)
		}
		return gameID, nil
	}

	gamePath, err := tree.Path("games", invite.GameID)
	if err != nil {
		return "", upstream("reading invite", models.ErrMalformedRecord)
	}
	fields["gameId"] = invite.GameID

	existing, err := s.tree.Get(ctx, gamePath)
	switch {
	case err == nil:
		if _, ok := existing["createdAt"]; !ok {
			fields["createdAt"] = now
		}
		if err := s.tree.Update(ctx, gamePath, fields); err != nil {
			return "", upstream("updating game", err)
		}
		return invite.GameID, nil
	case errors.Is(err, tree.ErrNotFound):
		if !generated {
			s.logger.Warn("invite names a missing game, creating it", logging.Fields{"game_id": invite.GameID})
		}
	default:
		return "", upstream("reading game", err)
	}

	fields["createdAt"] = now
	if err := s.tree.Set(ctx, gamePath, fields); err != nil {
		return "", upstream("creating game", err)
	}
	return invite.GameID, nil
}

func (s *SessionService) checkPending(invite *models.Invite) error {
	if invite.Status != models.InvitePending {
		return ErrInviteResponded
	}
	if invite.Expired(s.now().UnixMilli()) {
		return ErrInviteExpired
	}
	return nil
}

// restoreInvite puts back an invite claimed by a call that then failed to
// create its session.
func (s *SessionService) restoreInvite(ctx context.Context, path string, node tree.Node, log *logging.Logger) {
	fields := make(map[string]any, len(node))
	for k, v := range node {
		fields[k] = v
	}
	if err := s.tree.Set(ctx, path, fields); err != nil {
		log.Error("restoring claimed invite failed", logging.Fields{"error": err})
	}
}

func (s *SessionService) readInvite(ctx context.Context, recipientUID, inviteID string) (*models.Invite, tree.Node, string, error) {
	path, err := tree.Path("invites", recipientUID, inviteID)
	if err != nil {
		return nil, nil, "", ErrInvalidID
	}
	node, err := s.tree.Get(ctx, path)
	if errors.Is(err, tree.ErrNotFound) {
		return nil, nil, "", ErrInviteNotFound
	}
	if err != nil {
		return nil, nil, "", upstream("reading invite", err)
	}

	invite := &models.Invite{}
	if err := node.Decode(invite); err != nil {
		return nil, nil, "", upstream("decoding invite", err)
	}
	if err := invite.Validate(); err != nil {
		return nil, nil, "", upstream("reading invite", err)
	}
	invite.ID = inviteID
	return invite, node, path, nil
}

func (s *SessionService) readGame(ctx context.Context, gameID string) (*models.GameSession, error) {
	path, err := tree.Path("games", gameID)
	if err != nil {
		return nil, ErrInvalidID
	}
	node, err := s.tree.Get(ctx, path)
	if errors.Is(err, tree.ErrNotFound) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, upstream("reading game", err)
	}

	game := &models.GameSession{}
	if err := node.Decode(game); err != nil {
		return nil, upstream("decoding game", err)
	}
	if err := game.Validate(); err != nil {
		return nil, upstream("reading game", err)
	}
	game.ID = gameID
	return game, nil
}

func (s *SessionService) readSubmissions(ctx context.Context, gameID string) (map[string]models.Submission, error) {
	node, err := s.tree.Get(ctx, "games/"+gameID+"/submissions")
	if errors.Is(err, tree.ErrNotFound) {
		return map[string]models.Submission{}, nil
	}
	if err != nil {
		return nil, upstream("reading submissions", err)
	}
	subs := make(map[string]models.Submission, len(node))
	if err := node.Decode(&subs); err != nil {
		return nil, upstream("decoding submissions", err)
	}
	return subs, nil
}
