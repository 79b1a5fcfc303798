package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/HammerMeetNail/drawmaster/internal/models"
	"github.com/HammerMeetNail/drawmaster/internal/tree"
)

type fakeFriends struct {
	friends map[[2]string]bool
	err     error
}

func (f *fakeFriends) IsFriend(ctx context.Context, a, b string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.friends[[2]string{a, b}] || f.friends[[2]string{b, a}], nil
}

type failingScorer struct{}

func (failingScorer) Score(context.Context, map[string]models.Submission) (map[string]float64, *string, error) {
	return nil, nil, errors.New("model unavailable")
}

// faultyTree fails Set calls whose path matches failSet.
type faultyTree struct {
	tree.Store
	failSet string
}

func (f *faultyTree) Set(ctx context.Context, path string, fields map[string]any) error {
	if f.failSet != "" && strings.HasPrefix(path, f.failSet) {
		return errors.New("write refused")
	}
	return f.Store.Set(ctx, path, fields)
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestSessionService(store tree.Store, opts SessionOptions) *SessionService {
	friends := &fakeFriends{friends: map[[2]string]bool{{"A", "B"}: true}}
	svc := NewSessionService(store, friends, nil, nil, opts)
	svc.now = func() time.Time { return testNow }
	return svc
}

func seedInvite(t *testing.T, store tree.Store, recipient, id string, fields map[string]any) {
	t.Helper()
	if err := store.Set(context.Background(), "invites/"+recipient+"/"+id, fields); err != nil {
		t.Fatalf("seeding invite: %v", err)
	}
}

func readInvite(t *testing.T, store tree.Store, recipient, id string) models.Invite {
	t.Helper()
	node, err := store.Get(context.Background(), "invites/"+recipient+"/"+id)
	if err != nil {
		t.Fatalf("reading invite: %v", err)
	}
	var inv models.Invite
	if err := node.Decode(&inv); err != nil {
		t.Fatalf("decoding invite: %v", err)
	}
	return inv
}

func readGame(t *testing.T, store tree.Store, id string) models.GameSession {
	t.Helper()
	node, err := store.Get(context.Background(), "games/"+id)
	if err != nil {
		t.Fatalf("reading game: %v", err)
	}
	var g models.GameSession
	if err := node.Decode(&g); err != nil {
		t.Fatalf("decoding game: %v", err)
	}
	return g
}

func startedGame(t *testing.T, store tree.Store, svc *SessionService) string {
	t.Helper()
	seedInvite(t, store, "B", "inv1", map[string]any{"fromUid": "A", "status": "pending"})
	gameID, err := svc.AcceptInvite(context.Background(), "inv1", "B")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	return gameID
}

func TestSessionService_SendInvite(t *testing.T) {
	store := tree.NewMemory()
	svc := newTestSessionService(store, SessionOptions{InviteTTL: 90 * time.Second})

	inv, err := svc.SendInvite(context.Background(), "A", "Ann", "B")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.ID == "" || inv.GameID == "" {
		t.Fatalf("expected ids, got %+v", inv)
	}

	stored := readInvite(t, store, "B", inv.ID)
	if stored.Status != models.InvitePending || stored.FromUID != "A" || stored.FromName != "Ann" || stored.GameID != inv.GameID {
		t.Fatalf("unexpected stored invite: %+v", stored)
	}
	if stored.ExpiresAt != testNow.UnixMilli()+90_000 {
		t.Fatalf("unexpected expiry: %d", stored.ExpiresAt)
	}

	game := readGame(t, store, inv.GameID)
	if game.PlayerA != "A" || game.PlayerB != "" || game.Status != models.GameInvited {
		t.Fatalf("unexpected pre-created game: %+v", game)
	}
}

func TestSessionService_SendInvite_Rejections(t *testing.T) {
	svc := newTestSessionService(tree.NewMemory(), SessionOptions{})
	ctx := context.Background()

	if _, err := svc.SendInvite(ctx, "A", "", "A"); !errors.Is(err, ErrSelfInvite) {
		t.Fatalf("expected ErrSelfInvite, got %v", err)
	}
	if _, err := svc.SendInvite(ctx, "A", "", ""); !errors.Is(err, ErrMissingRecipient) {
		t.Fatalf("expected ErrMissingRecipient, got %v", err)
	}
	if _, err := svc.SendInvite(ctx, "A", "", "C"); !errors.Is(err, ErrNotFriends) || !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrNotFriends, got %v", err)
	}
	if _, err := svc.SendInvite(ctx, "A", "", "a/b"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestSessionService_AcceptInvite_CreatesGame(t *testing.T) {
	for _, conditional := range []bool{false, true} {
		store := tree.NewMemory()
		svc := newTestSessionService(store, SessionOptions{ConditionalWrites: conditional})

		gameID := startedGame(t, store, svc)

		game := readGame(t, store, gameID)
		if game.PlayerA != "A" || game.PlayerB != "B" || game.Status != models.GameWaitingForImageSelection {
			t.Fatalf("conditional=%v: unexpected game %+v", conditional, game)
		}
		inv := readInvite(t, store, "B", "inv1")
		if inv.Status != models.InviteAccepted || inv.GameID != gameID || inv.RespondedAt != testNow.UnixMilli() {
			t.Fatalf("conditional=%v: unexpected invite %+v", conditional, inv)
		}
	}
}

func TestSessionService_AcceptInvite_ReusesPrecreatedGame(t *testing.T) {
	store := tree.NewMemory()
	svc := newTestSessionService(store, SessionOptions{})
	ctx := context.Background()

	inv, err := svc.SendInvite(ctx, "A", "Ann", "B")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	gameID, err := svc.AcceptInvite(ctx, inv.ID, "B")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if gameID != inv.GameID {
		t.Fatalf("expected reuse of %s, got %s", inv.GameID, gameID)
	}
	game := readGame(t, store, gameID)
	if game.PlayerB != "B" || game.Status != models.GameWaitingForImageSelection || game.CreatedAt != testNow.UnixMilli() {
		t.Fatalf("unexpected game: %+v", game)
	}
}

func TestSessionService_AcceptInvite_Errors(t *testing.T) {
	store := tree.NewMemory()
	svc := newTestSessionService(store, SessionOptions{})
	ctx := context.Background()

	if _, err := svc.AcceptInvite(ctx, "missing", "B"); !errors.Is(err, ErrInviteNotFound) {
		t.Fatalf("expected ErrInviteNotFound, got %v", err)
	}

	seedInvite(t, store, "B", "old", map[string]any{
		"fromUid":   "A",
		"status":    "pending",
		"expiresAt": testNow.Add(-time.Second).UnixMilli(),
	})
	if _, err := svc.AcceptInvite(ctx, "old", "B"); !errors.Is(err, ErrInviteExpired) || !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrInviteExpired, got %v", err)
	}

	seedInvite(t, store, "B", "self", map[string]any{"fromUid": "B"})
	if _, err := svc.AcceptInvite(ctx, "self", "B"); !errors.Is(err, ErrSelfInvite) {
		t.Fatalf("expected ErrSelfInvite, got %v", err)
	}

	seedInvite(t, store, "B", "bad", map[string]any{"fromUid": "A", "status": "maybe"})
	if _, err := svc.AcceptInvite(ctx, "bad", "B"); !errors.Is(err, ErrUpstream) || !errors.Is(err, models.ErrMalformedRecord) {
		t.Fatalf("expected malformed record as upstream, got %v", err)
	}

	startedGame(t, store, svc)
	if _, err := svc.AcceptInvite(ctx, "inv1", "B"); !errors.Is(err, ErrInviteResponded) {
		t.Fatalf("expected ErrInviteResponded, got %v", err)
	}
}

func TestSessionService_AcceptInvite_ConditionalSingleWinner(t *testing.T) {
	store := tree.NewMemory()
	svc := newTestSessionService(store, SessionOptions{ConditionalWrites: true})
	seedInvite(t, store, "B", "inv1", map[string]any{"fromUid": "A", "status": "pending"})

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan string, callers)
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := svc.AcceptInvite(context.Background(), "inv1", "B")
			if err != nil {
				errs <- err
				return
			}
			results <- id
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	var winners []string
	for id := range results {
		winners = append(winners, id)
	}
	if len(winners) != 1 {
		t.Fatalf("expected exactly one accept to win, got %d", len(winners))
	}
	for err := range errs {
		if !errors.Is(err, ErrInviteResponded) {
			t.Fatalf("expected losers to see ErrInviteResponded, got %v", err)
		}
	}
	if inv := readInvite(t, store, "B", "inv1"); inv.GameID != winners[0] {
		t.Fatalf("invite points at %s, winner created %s", inv.GameID, winners[0])
	}
}

func TestSessionService_AcceptInvite_ConditionalRestoresOnFailure(t *testing.T) {
	mem := tree.NewMemory()
	store := &faultyTree{Store: mem, failSet: "games/"}
	svc := newTestSessionService(store, SessionOptions{ConditionalWrites: true})
	seedInvite(t, mem, "B", "inv1", map[string]any{"fromUid": "A", "status": "pending"})

	if _, err := svc.AcceptInvite(context.Background(), "inv1", "B"); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	inv := readInvite(t, mem, "B", "inv1")
	if inv.Status != models.InvitePending || inv.GameID != "" {
		t.Fatalf("expected invite restored to pending, got %+v", inv)
	}
}

func TestSessionService_RejectInvite(t *testing.T) {
	for _, conditional := range []bool{false, true} {
		store := tree.NewMemory()
		svc := newTestSessionService(store, SessionOptions{ConditionalWrites: conditional})
		ctx := context.Background()
		seedInvite(t, store, "B", "inv1", map[string]any{"fromUid": "A", "status": "pending"})

		if err := svc.RejectInvite(ctx, "inv1", "B"); err != nil {
			t.Fatalf("conditional=%v: reject: %v", conditional, err)
		}
		inv := readInvite(t, store, "B", "inv1")
		if inv.Status != models.InviteRejected || inv.RespondedAt != testNow.UnixMilli() || inv.FromUID != "A" {
			t.Fatalf("conditional=%v: unexpected invite %+v", conditional, inv)
		}
		if err := svc.RejectInvite(ctx, "inv1", "B"); !errors.Is(err, ErrInviteResponded) {
			t.Fatalf("conditional=%v: expected ErrInviteResponded, got %v", conditional, err)
		}
		if err := svc.RejectInvite(ctx, "inv1", "C"); !errors.Is(err, ErrInviteNotFound) {
			t.Fatalf("conditional=%v: expected ErrInviteNotFound for other recipient, got %v", conditional, err)
		}
	}
}

func TestSessionService_GetGame(t *testing.T) {
	store := tree.NewMemory()
	svc := newTestSessionService(store, SessionOptions{})
	ctx := context.Background()
	gameID := startedGame(t, store, svc)

	if _, err := svc.SubmitDrawing(ctx, SubmitParams{GameID: gameID, UID: "A", DrawingURI: "gs://a.png"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	game, err := svc.GetGame(ctx, gameID, "B")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if game.ID != gameID || len(game.Submissions) != 1 || game.Submissions["A"].DrawingURI != "gs://a.png" {
		t.Fatalf("unexpected game: %+v", game)
	}
	if _, err := svc.GetGame(ctx, gameID, "C"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	if _, err := svc.GetGame(ctx, "nope", "A"); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestSessionService_SubmitDrawing_Preconditions(t *testing.T) {
	store := tree.NewMemory()
	svc := newTestSessionService(store, SessionOptions{})
	ctx := context.Background()

	if _, err := svc.SubmitDrawing(ctx, SubmitParams{GameID: "nope", UID: "A", DrawingURI: "x"}); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}

	inv, err := svc.SendInvite(ctx, "A", "", "B")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := svc.SubmitDrawing(ctx, SubmitParams{GameID: inv.GameID, UID: "A", DrawingURI: "x"}); !errors.Is(err, ErrGameNotStarted) {
		t.Fatalf("expected ErrGameNotStarted, got %v", err)
	}
	if _, err := svc.AcceptInvite(ctx, inv.ID, "B"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.SubmitDrawing(ctx, SubmitParams{GameID: inv.GameID, UID: "C", DrawingURI: "x"}); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	if _, err := svc.SubmitDrawing(ctx, SubmitParams{GameID: inv.GameID, UID: "A"}); !errors.Is(err, ErrMissingDrawing) {
		t.Fatalf("expected ErrMissingDrawing, got %v", err)
	}
	res, err := svc.SubmitDrawing(ctx, SubmitParams{GameID: inv.GameID, UID: "A", TimedOut: true})
	if err != nil {
		t.Fatalf("timed out submission: %v", err)
	}
	if !res.Submission.TimedOut || res.Status != models.GameWaitingForImageSelection {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestSessionService_SubmitDrawing_ResultsLifecycle(t *testing.T) {
	store := tree.NewMemory()
	svc := newTestSessionService(store, SessionOptions{})
	ctx := context.Background()
	gameID := startedGame(t, store, svc)

	res, err := svc.SubmitDrawing(ctx, SubmitParams{GameID: gameID, UID: "A", DrawingURI: "a1", OriginalURI: "o"})
	if err != nil {
		t.Fatalf("submit A: %v", err)
	}
	if res.Results != nil || res.Status != models.GameWaitingForImageSelection {
		t.Fatalf("expected no results after one submission, got %+v", res)
	}
	if _, err := svc.SubmitDrawing(ctx, SubmitParams{GameID: gameID, UID: "A", DrawingURI: "a2"}); err != nil {
		t.Fatalf("resubmit A: %v", err)
	}
	game, _ := svc.GetGame(ctx, gameID, "A")
	if len(game.Submissions) != 1 || game.Submissions["A"].DrawingURI != "a2" {
		t.Fatalf("expected overwrite, got %+v", game.Submissions)
	}

	res, err = svc.SubmitDrawing(ctx, SubmitParams{GameID: gameID, UID: "B", DrawingURI: "b1"})
	if err != nil {
		t.Fatalf("submit B: %v", err)
	}
	if res.Status != models.GameResults || res.Results == nil {
		t.Fatalf("expected results, got %+v", res)
	}
	if len(res.Results.Scores) != 2 || res.Results.Scores["A"] != 0 || res.Results.Scores["B"] != 0 || res.Results.Winner != nil {
		t.Fatalf("unexpected stub results: %+v", res.Results)
	}

	res, err = svc.SubmitDrawing(ctx, SubmitParams{GameID: gameID, UID: "B", DrawingURI: "b2"})
	if err != nil {
		t.Fatalf("resubmit B: %v", err)
	}
	if res.Status != models.GameResults {
		t.Fatalf("status reverted to %s", res.Status)
	}
	if g := readGame(t, store, gameID); g.Status != models.GameResults {
		t.Fatalf("stored status reverted to %s", g.Status)
	}
}

func TestSessionService_SubmitDrawing_InterleavedPlayers(t *testing.T) {
	for _, conditional := range []bool{false, true} {
		for round := 0; round < 20; round++ {
			store := tree.NewMemory()
			svc := newTestSessionService(store, SessionOptions{ConditionalWrites: conditional})
			gameID := startedGame(t, store, svc)
			before := store.Writes("games/" + gameID)

			var wg sync.WaitGroup
			for _, uid := range []string{"A", "B"} {
				wg.Add(1)
				go func(uid string) {
					defer wg.Done()
					if _, err := svc.SubmitDrawing(context.Background(), SubmitParams{GameID: gameID, UID: uid, DrawingURI: uid + ".png"}); err != nil {
						t.Errorf("submit %s: %v", uid, err)
					}
				}(uid)
			}
			wg.Wait()

			node, err := store.Get(context.Background(), "games/"+gameID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			var results models.Results
			if err := json.Unmarshal(node["results"], &results); err != nil {
				t.Fatalf("conditional=%v: expected results, got %v", conditional, err)
			}
			if len(results.Scores) != 2 {
				t.Fatalf("conditional=%v: expected two scored players, got %v", conditional, results.Scores)
			}
			writes := store.Writes("games/"+gameID) - before
			if conditional && writes != 1 {
				t.Fatalf("expected a single results write, got %d", writes)
			}
			if !conditional && (writes < 1 || writes > 2) {
				t.Fatalf("expected one or two results writes, got %d", writes)
			}
		}
	}
}

func TestSessionService_SubmitDrawing_ScorerFailureIsWarning(t *testing.T) {
	store := tree.NewMemory()
	svc := newTestSessionService(store, SessionOptions{})
	svc.scorer = failingScorer{}
	ctx := context.Background()
	gameID := startedGame(t, store, svc)

	if _, err := svc.SubmitDrawing(ctx, SubmitParams{GameID: gameID, UID: "A", DrawingURI: "a"}); err != nil {
		t.Fatalf("submit A: %v", err)
	}
	res, err := svc.SubmitDrawing(ctx, SubmitParams{GameID: gameID, UID: "B", DrawingURI: "b"})
	if err != nil {
		t.Fatalf("expected success with warning, got %v", err)
	}
	if res.Warning == "" || res.Results != nil {
		t.Fatalf("expected warning without results, got %+v", res)
	}
	game, _ := svc.GetGame(ctx, gameID, "B")
	if len(game.Submissions) != 2 || game.Status != models.GameWaitingForImageSelection {
		t.Fatalf("expected both submissions kept, got %+v", game)
	}
}

func TestResultPair(t *testing.T) {
	game := &models.GameSession{PlayerA: "A", PlayerB: "B"}

	got := resultPair(game, map[string]models.Submission{
		"B": {SubmittedAt: 1},
		"A": {SubmittedAt: 2},
		"Z": {SubmittedAt: 0},
	})
	if strings.Join(got, ",") != "A,B" {
		t.Fatalf("expected players first, got %v", got)
	}

	got = resultPair(game, map[string]models.Submission{
		"A": {SubmittedAt: 5},
		"Y": {SubmittedAt: 3},
		"X": {SubmittedAt: 3},
	})
	if strings.Join(got, ",") != "X,Y" {
		t.Fatalf("expected earliest two by time then uid, got %v", got)
	}
}
