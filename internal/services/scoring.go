package services

import (
	"context"

	"github.com/HammerMeetNail/drawmaster/internal/models"
)

// Scorer assigns scores to a pair of submissions. Winner is nil on a draw.
type Scorer interface {
	Score(ctx context.Context, subs map[string]models.Submission) (scores map[string]float64, winner *string, err error)
}

// StubScorer gives every submission zero and names no winner.
type StubScorer struct{}

func (StubScorer) Score(_ context.Context, subs map[string]models.Submission) (map[string]float64, *string, error) {
	scores := make(map[string]float64, len(subs))
	for uid := range subs {
		scores[uid] = 0
	}
	return scores, nil, nil
}
