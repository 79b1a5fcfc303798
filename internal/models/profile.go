package models

import "time"

// Profile is the local record for an identity. Rows are created lazily on the
// first authenticated write.
type Profile struct {
	UID         string    `json:"uid"`
	DisplayName *string   `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// GameRecord is a single-player score kept in the relational store.
type GameRecord struct {
	ID        int64     `json:"id"`
	UID       string    `json:"uid"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}
