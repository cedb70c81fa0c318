package service

import (
	"context"

	"github.com/bracket-tournament/internal/domain"
)

// TournamentStore persists tournaments and the single active marker
type TournamentStore interface {
	// RotateTournament deactivates the active tournament, if any, and creates
	// a new active one in the same atomic step.
	RotateTournament(ctx context.Context) (*domain.Tournament, error)
	GetActiveTournament(ctx context.Context) (*domain.Tournament, error)
	GetTournament(ctx context.Context, tournamentID int64) (*domain.Tournament, error)
}

// GroupStore persists tournament groups
type GroupStore interface {
	GetLatestGroup(ctx context.Context, tournamentID int64, bracket int) (*domain.Group, error)
	// OpenGroup returns the latest group of the bracket if it still has room,
	// otherwise creates a new one. Calls for the same bracket are serialized.
	OpenGroup(ctx context.Context, tournamentID int64, bracket int, capacity int) (*domain.Group, error)
	GetGroup(ctx context.Context, groupID int64) (*domain.Group, error)
}

// ParticipationStore is the participation ledger
type ParticipationStore interface {
	HasJoined(ctx context.Context, tournamentID, userID int64) (bool, error)
	// CreateParticipation reserves a slot in the group and inserts the
	// participation atomically. It fails with ErrGroupFull when the group has
	// reached capacity, ErrAlreadyJoined on a duplicate and
	// ErrNoActiveTournament when the tournament is no longer active.
	CreateParticipation(ctx context.Context, tournamentID, groupID, userID int64, capacity int) (*domain.Participation, error)
	GetParticipation(ctx context.Context, tournamentID, userID int64) (*domain.Participation, error)
	// IncrementScore adds one point while the tournament is active.
	// It returns ErrParticipationNotFound otherwise.
	IncrementScore(ctx context.Context, tournamentID, userID int64) (int64, error)
	CountInGroup(ctx context.Context, tournamentID, groupID int64) (int, error)
	// MarkClaimed flips the claim flag once. A second call fails with
	// ErrRewardAlreadyClaimed.
	MarkClaimed(ctx context.Context, tournamentID, userID int64) error
	ListGroupOrderedByScore(ctx context.Context, groupID int64) ([]domain.Participation, error)
}

// Store combines everything the tournament core persists
type Store interface {
	TournamentStore
	GroupStore
	ParticipationStore
}

// UserDirectory is the account state consumed by join and claim
type UserDirectory interface {
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	// Debit fails with ErrNotEnoughCoins instead of overdrawing.
	Debit(ctx context.Context, userID int64, amount int64) (*domain.User, error)
	Credit(ctx context.Context, userID int64, amount int64) (*domain.User, error)
	SetLastTournament(ctx context.Context, userID, tournamentID int64) error
}

// UserRegistry adds account creation and progression to UserDirectory
type UserRegistry interface {
	UserDirectory
	CreateUser(ctx context.Context, level int, coins int64) (*domain.User, error)
	// LevelUp raises the level by one and grants coins in one step.
	LevelUp(ctx context.Context, userID int64, coins int64) (*domain.User, error)
}

// LeaderboardCache stores leaderboards of finished tournaments.
// A miss is reported as a nil leaderboard and nil error.
type LeaderboardCache interface {
	GetLeaderboard(ctx context.Context, groupID int64) (*domain.GroupLeaderboard, error)
	SetLeaderboard(ctx context.Context, leaderboard *domain.GroupLeaderboard) error
}

// EventPublisher delivers level-up events to the score pipeline
type EventPublisher interface {
	PublishLevelUp(ctx context.Context, event domain.LevelUpEvent) error
}
