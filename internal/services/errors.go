package services

import "errors"

// Error kinds. Every error returned by a service either is, or wraps, exactly
// one of these; handlers map kinds to responses.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrUpstream        = errors.New("upstream failure")
)

var kinds = []error{ErrInvalidArgument, ErrNotFound, ErrForbidden, ErrConflict, ErrUpstream}

var (
	ErrMissingSender     = newError(ErrInvalidArgument, "sender is required")
	ErrMissingRecipient  = newError(ErrInvalidArgument, "to_uid or to_email is required")
	ErrCannotFriendSelf  = newError(ErrInvalidArgument, "cannot send friend request to yourself")
	ErrRecipientNotFound = newError(ErrNotFound, "no user with that email")
	ErrAlreadyFriends    = newError(ErrConflict, "already friends")
	ErrRequestPending    = newError(ErrConflict, "already pending")
	ErrCrossingRequest   = newError(ErrConflict, "this user has already sent you a friend request")
	ErrRequestNotFound   = newError(ErrNotFound, "friend request not found")
	ErrNotRecipient      = newError(ErrForbidden, "only the recipient can respond to this request")
	ErrRequestAccepted   = newError(ErrConflict, "friend request already accepted")
	ErrRequestNotPending = newError(ErrConflict, "friend request is not pending")
	ErrInvalidDirection  = newError(ErrInvalidArgument, "direction must be incoming or outgoing")

	ErrProfileNotFound    = newError(ErrNotFound, "profile not found")
	ErrInvalidDisplayName = newError(ErrInvalidArgument, "display name must be 1 to 128 characters")
	ErrInvalidScore       = newError(ErrInvalidArgument, "score must be a finite, non-negative number")

	ErrInviteNotFound   = newError(ErrNotFound, "invite not found")
	ErrInviteResponded  = newError(ErrConflict, "invite already responded")
	ErrInviteExpired    = newError(ErrConflict, "invite expired")
	ErrSelfInvite       = newError(ErrInvalidArgument, "cannot invite yourself")
	ErrNotFriends       = newError(ErrForbidden, "you can only invite friends")
	ErrInvalidID        = newError(ErrInvalidArgument, "invalid identifier")
	ErrGameNotFound     = newError(ErrNotFound, "game not found")
	ErrNotParticipant   = newError(ErrForbidden, "not a participant in this game")
	ErrGameNotStarted   = newError(ErrConflict, "game has not started")
	ErrMissingDrawing   = newError(ErrInvalidArgument, "drawing_uri is required unless the round timed out")
)

type kindError struct {
	kind error
	msg  string
}

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// upstreamError marks a failure of a backing store or the identity provider.
type upstreamError struct {
	op  string
	err error
}

func upstream(op string, err error) error {
	return &upstreamError{op: op, err: err}
}

func (e *upstreamError) Error() string   { return e.op + ": " + e.err.Error() }
func (e *upstreamError) Unwrap() []error { return []error{ErrUpstream, e.err} }

// Kind returns the error kind of err, or nil when err carries none.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
