package domain

import "time"

// User is the slice of account state the tournament core consumes
type User struct {
	ID               int64     `json:"id"`
	Level            int       `json:"level"`
	Coins            int64     `json:"coins"`
	LastTournamentID *int64    `json:"last_tournament_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// LevelUpEvent is the command emitted by user progression for every level gained
type LevelUpEvent struct {
	EventID      string    `json:"event_id"`
	UserID       int64     `json:"user_id"`
	TournamentID int64     `json:"tournament_id"`
	Timestamp    time.Time `json:"timestamp"`
}
