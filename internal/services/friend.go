package services

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/HammerMeetNail/drawmaster/internal/identity"
	"github.com/HammerMeetNail/drawmaster/internal/logging"
	"github.com/HammerMeetNail/drawmaster/internal/models"
)

const pgUniqueViolation = "23505"

type FriendService struct {
	db       DB
	resolver identity.Resolver
	enricher *Enricher
	logger   *logging.Logger
}

func NewFriendService(db DB, resolver identity.Resolver, logger *logging.Logger) *FriendService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &FriendService{
		db:       db,
		resolver: resolver,
		enricher: NewEnricher(resolver, logger),
		logger:   logger,
	}
}

// SendRequest creates a pending request from fromUID to the recipient named by
// toUID, or by toEmail when toUID is empty. The checks run in a fixed order;
// the reverse-pending check keeps two crossing requests from coexisting.
func (s *FriendService) SendRequest(ctx context.Context, fromUID, toUID, toEmail string) (*models.FriendRequest, error) {
	if fromUID == "" {
		return nil, ErrMissingSender
	}
	toUID = strings.TrimSpace(toUID)
	toEmail = strings.TrimSpace(toEmail)
	if toUID == "" {
		if toEmail == "" {
			return nil, ErrMissingRecipient
		}
		uid, err := s.resolver.ResolveEmail(ctx, toEmail)
		if errors.Is(err, identity.ErrNotFound) {
			return nil, ErrRecipientNotFound
		}
		if err != nil {
			return nil, upstream("resolving recipient email", err)
		}
		toUID = uid
	}

	if fromUID == toUID {
		return nil, ErrCannotFriendSelf
	}

	var edgeExists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM friend_edges
			WHERE (owner_uid = $1 AND friend_uid = $2)
			   OR (owner_uid = $2 AND friend_uid = $1)
		)`,
		fromUID, toUID,
	).Scan(&edgeExists)
	if err != nil {
		return nil, upstream("checking friend edges", err)
	}
	if edgeExists {
		return nil, ErrAlreadyFriends
	}

	var pending, accepted bool
	err = s.db.QueryRow(ctx,
		`SELECT COALESCE(bool_or(status = 'pending'), false),
		        COALESCE(bool_or(status = 'accepted'), false)
		 FROM friend_requests
		 WHERE from_uid = $1 AND to_uid = $2`,
		fromUID, toUID,
	).Scan(&pending, &accepted)
	if err != nil {
		return nil, upstream("checking existing request", err)
	}
	if pending {
		return nil, ErrRequestPending
	}
	if accepted {
		return nil, ErrAlreadyFriends
	}

	var crossing bool
	err = s.db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM friend_requests
			WHERE from_uid = $1 AND to_uid = $2 AND status = 'pending'
		)`,
		toUID, fromUID,
	).Scan(&crossing)
	if err != nil {
		return nil, upstream("checking reverse request", err)
	}
	if crossing {
		return nil, ErrCrossingRequest
	}

	if _, err := s.db.Exec(ctx,
		`INSERT INTO profiles (uid) VALUES ($1) ON CONFLICT (uid) DO NOTHING`,
		fromUID,
	); err != nil {
		return nil, upstream("ensuring sender profile", err)
	}

	req := &models.FriendRequest{}
	err = s.db.QueryRow(ctx,
		`INSERT INTO friend_requests (from_uid, to_uid, status)
		 VALUES ($1, $2, 'pending')
		 RETURNING id, from_uid, to_uid, status, created_at, responded_at`,
		fromUID, toUID,
	).Scan(&req.ID, &req.FromUID, &req.ToUID, &req.Status, &req.CreatedAt, &req.RespondedAt)
	if isUniqueViolation(err) {
		return nil, ErrRequestPending
	}
	if err != nil {
		return nil, upstream("creating friend request", err)
	}

	s.logger.Info("friend request sent", logging.Fields{"request_id": req.ID, "from_uid": fromUID, "to_uid": toUID})
	return req, nil
}

// AcceptRequest flips a pending request to accepted and creates both friend
// edges. The status change, profiles and edges commit as one transaction.
func (s *FriendService) AcceptRequest(ctx context.Context, requestID int64, actingUID string) (*models.FriendRequest, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, upstream("begin accept transaction", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	req, err := s.getByID(ctx, tx, requestID, true)
	if err != nil {
		return nil, err
	}
	if req.ToUID != actingUID {
		return nil, ErrNotRecipient
	}
	if req.Status == models.FriendRequestAccepted {
		return nil, ErrRequestAccepted
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO profiles (uid) VALUES ($1), ($2) ON CONFLICT (uid) DO NOTHING`,
		req.FromUID, req.ToUID,
	); err != nil {
		return nil, upstream("ensuring profiles", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO friend_edges (owner_uid, friend_uid)
		 VALUES ($1, $2), ($2, $1)
		 ON CONFLICT (owner_uid, friend_uid) DO NOTHING`,
		req.FromUID, req.ToUID,
	); err != nil {
		return nil, upstream("creating friend edges", err)
	}

	err = tx.QueryRow(ctx,
		`UPDATE friend_requests
		 SET status = 'accepted', responded_at = NOW()
		 WHERE id = $1
		 RETURNING responded_at`,
		req.ID,
	).Scan(&req.RespondedAt)
	if err != nil {
		return nil, upstream("accepting friend request", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, upstream("commit accept", err)
	}
	committed = true
	req.Status = models.FriendRequestAccepted

	s.logger.Info("friend request accepted", logging.Fields{"request_id": req.ID, "from_uid": req.FromUID, "to_uid": req.ToUID})
	return req, nil
}

// RejectRequest deletes a pending request so the pair can be requested again.
func (s *FriendService) RejectRequest(ctx context.Context, requestID int64, actingUID string) (int64, error) {
	req, err := s.getByID(ctx, s.db, requestID, false)
	if err != nil {
		return 0, err
	}
	if req.ToUID != actingUID {
		return 0, ErrNotRecipient
	}
	if req.Status != models.FriendRequestPending {
		return 0, ErrRequestNotPending
	}

	result, err := s.db.Exec(ctx,
		`DELETE FROM friend_requests WHERE id = $1 AND status = 'pending'`,
		requestID,
	)
	if err != nil {
		return 0, upstream("deleting friend request", err)
	}
	if result.RowsAffected() == 0 {
		// Accepted or rejected by a concurrent call since the read above.
		return 0, ErrRequestNotPending
	}
	return requestID, nil
}

func (s *FriendService) ListFriends(ctx context.Context, uid string) ([]models.Friend, error) {
	rows, err := s.db.Query(ctx,
		`SELECT e.friend_uid, p.display_name, e.created_at
		 FROM friend_edges e
		 LEFT JOIN profiles p ON p.uid = e.friend_uid
		 WHERE e.owner_uid = $1
		 ORDER BY e.created_at, e.friend_uid`,
		uid,
	)
	if err != nil {
		return nil, upstream("listing friends", err)
	}
	defer rows.Close()

	friends := []models.Friend{}
	for rows.Next() {
		var f models.Friend
		if err := rows.Scan(&f.FriendUID, &f.DisplayName, &f.Since); err != nil {
			return nil, upstream("scanning friend", err)
		}
		friends = append(friends, f)
	}
	if err := rows.Err(); err != nil {
		return nil, upstream("iterating friends", err)
	}

	uids := make([]string, len(friends))
	for i, f := range friends {
		uids[i] = f.FriendUID
	}
	ids := s.enricher.Identities(ctx, uids)
	for i := range friends {
		friends[i].Email = emailOf(ids, friends[i].FriendUID)
		friends[i].DisplayName = displayNameOf(ids, friends[i].FriendUID, friends[i].DisplayName)
	}
	return friends, nil
}

// ListRequests returns pending requests where uid is the recipient (incoming)
// or the sender (outgoing). DisplayName belongs to the other party.
func (s *FriendService) ListRequests(ctx context.Context, uid string, direction models.RequestDirection) ([]models.FriendRequestView, error) {
	var query string
	switch direction {
	case models.DirectionIncoming:
		query = `SELECT r.id, r.from_uid, r.to_uid, p.display_name, r.created_at
		 FROM friend_requests r
		 LEFT JOIN profiles p ON p.uid = r.from_uid
		 WHERE r.to_uid = $1 AND r.status = 'pending'
		 ORDER BY r.created_at DESC`
	case models.DirectionOutgoing:
		query = `SELECT r.id, r.from_uid, r.to_uid, p.display_name, r.created_at
		 FROM friend_requests r
		 LEFT JOIN profiles p ON p.uid = r.to_uid
		 WHERE r.from_uid = $1 AND r.status = 'pending'
		 ORDER BY r.created_at DESC`
	default:
		return nil, ErrInvalidDirection
	}

	rows, err := s.db.Query(ctx, query, uid)
	if err != nil {
		return nil, upstream("listing friend requests", err)
	}
	defer rows.Close()

	views := []models.FriendRequestView{}
	for rows.Next() {
		var v models.FriendRequestView
		if err := rows.Scan(&v.ID, &v.FromUID, &v.ToUID, &v.DisplayName, &v.CreatedAt); err != nil {
			return nil, upstream("scanning friend request", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, upstream("iterating friend requests", err)
	}

	uids := make([]string, 0, 2*len(views))
	for _, v := range views {
		uids = append(uids, v.FromUID, v.ToUID)
	}
	ids := s.enricher.Identities(ctx, uids)
	for i := range views {
		views[i].FromEmail = emailOf(ids, views[i].FromUID)
		views[i].ToEmail = emailOf(ids, views[i].ToUID)
		other := views[i].FromUID
		if direction == models.DirectionOutgoing {
			other = views[i].ToUID
		}
		views[i].DisplayName = displayNameOf(ids, other, views[i].DisplayName)
	}
	return views, nil
}

// IsFriend reports whether both edges between a and b exist.
func (s *FriendService) IsFriend(ctx context.Context, a, b string) (bool, error) {
	if a == "" || b == "" || a == b {
		return false, nil
	}
	var edges int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM friend_edges
		 WHERE (owner_uid = $1 AND friend_uid = $2)
		    OR (owner_uid = $2 AND friend_uid = $1)`,
		a, b,
	).Scan(&edges)
	if err != nil {
		return false, upstream("checking friendship", err)
	}
	return edges == 2, nil
}

func (s *FriendService) getByID(ctx context.Context, db DBConn, id int64, forUpdate bool) (*models.FriendRequest, error) {
	if id <= 0 {
		return nil, ErrRequestNotFound
	}
	query := `SELECT id, from_uid, to_uid, status, created_at, responded_at
		 FROM friend_requests WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	req := &models.FriendRequest{}
	err := db.QueryRow(ctx, query, id).
		Scan(&req.ID, &req.FromUID, &req.ToUID, &req.Status, &req.CreatedAt, &req.RespondedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, upstream("loading friend request", err)
	}
	return req, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
