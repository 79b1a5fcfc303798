package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/drawmaster/internal/models"
)

const maxDisplayNameLength = 128

type ProfileService struct {
	db DBConn
}

func NewProfileService(db DBConn) *ProfileService {
	return &ProfileService{db: db}
}

// CreateProfile returns the existing profile for uid, or inserts one. created
// reports whether a row was inserted.
func (s *ProfileService) CreateProfile(ctx context.Context, uid string, displayName *string) (*models.Profile, bool, error) {
	if uid == "" {
		return nil, false, ErrMissingSender
	}
	name, err := normalizeDisplayName(displayName)
	if err != nil {
		return nil, false, err
	}

	profile := &models.Profile{}
	err = s.db.QueryRow(ctx,
		`INSERT INTO profiles (uid, display_name)
		 VALUES ($1, $2)
		 ON CONFLICT (uid) DO NOTHING
		 RETURNING uid, display_name, created_at`,
		uid, name,
	).Scan(&profile.UID, &profile.DisplayName, &profile.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, err := s.GetProfile(ctx, uid)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, upstream("creating profile", err)
	}
	return profile, true, nil
}

func (s *ProfileService) GetProfile(ctx context.Context, uid string) (*models.Profile, error) {
	profile := &models.Profile{}
	err := s.db.QueryRow(ctx,
		`SELECT uid, display_name, created_at FROM profiles WHERE uid = $1`,
		uid,
	).Scan(&profile.UID, &profile.DisplayName, &profile.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, upstream("getting profile", err)
	}
	return profile, nil
}

// UpdateDisplayName sets the display name, creating the profile if needed.
func (s *ProfileService) UpdateDisplayName(ctx context.Context, uid, displayName string) (*models.Profile, error) {
	if uid == "" {
		return nil, ErrMissingSender
	}
	name, err := normalizeDisplayName(&displayName)
	if err != nil {
		return nil, err
	}
	if name == nil {
		return nil, ErrInvalidDisplayName
	}

	profile := &models.Profile{}
	err = s.db.QueryRow(ctx,
		`INSERT INTO profiles (uid, display_name)
		 VALUES ($1, $2)
		 ON CONFLICT (uid) DO UPDATE SET display_name = EXCLUDED.display_name
		 RETURNING uid, display_name, created_at`,
		uid, *name,
	).Scan(&profile.UID, &profile.DisplayName, &profile.CreatedAt)
	if err != nil {
		return nil, upstream("updating display name", err)
	}
	return profile, nil
}

// RecordScore stores a single-player score.
func (s *ProfileService) RecordScore(ctx context.Context, uid string, score float64) (*models.GameRecord, error) {
	if uid == "" {
		return nil, ErrMissingSender
	}
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
		return nil, ErrInvalidScore
	}

	if _, err := s.db.Exec(ctx,
		`INSERT INTO profiles (uid) VALUES ($1) ON CONFLICT (uid) DO NOTHING`,
		uid,
	); err != nil {
		return nil, upstream("ensuring profile", err)
	}

	record := &models.GameRecord{}
	err := s.db.QueryRow(ctx,
		`INSERT INTO game_records (uid, score)
		 VALUES ($1, $2)
		 RETURNING id, uid, score, created_at`,
		uid, score,
	).Scan(&record.ID, &record.UID, &record.Score, &record.CreatedAt)
	if err != nil {
		return nil, upstream("recording score", err)
	}
	return record, nil
}

// normalizeDisplayName trims the name; a nil or blank name is stored as NULL.
func normalizeDisplayName(name *string) (*string, error) {
	if name == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > maxDisplayNameLength {
		return nil, ErrInvalidDisplayName
	}
	return &trimmed, nil
}
