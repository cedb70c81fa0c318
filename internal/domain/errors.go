package domain

import "errors"

// Not-found errors
var (
	ErrNoActiveTournament    = errors.New("no active tournament")
	ErrTournamentNotFound    = errors.New("tournament not found")
	ErrGroupNotFound         = errors.New("tournament group not found")
	ErrParticipationNotFound = errors.New("participation not found")
	ErrUserNotFound          = errors.New("user not found")
)

// Conflict errors
var (
	ErrAlreadyJoined          = errors.New("user already joined the tournament")
	ErrRewardAlreadyClaimed   = errors.New("reward already claimed")
	ErrOngoingTournamentClaim = errors.New("cannot claim reward of an ongoing tournament")
)

// Precondition errors
var (
	ErrRankTooLow             = errors.New("user level too low to enter the tournament")
	ErrNotEnoughCoins         = errors.New("not enough coins to enter the tournament")
	ErrUnclaimedRewardPending = errors.New("reward of the last entered tournament is not claimed")
	ErrNoRewardEarned         = errors.New("no reward earned for this rank")
)

// Internal errors
var (
	// ErrGroupFull is returned by the store when a slot reservation loses the
	// race for the last seat. Callers re-select a group.
	ErrGroupFull = errors.New("tournament group is full")

	ErrRankInconsistent = errors.New("participation missing from its group ranking")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInternalError    = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNoActiveTournament) ||
		errors.Is(err, ErrTournamentNotFound) ||
		errors.Is(err, ErrGroupNotFound) ||
		errors.Is(err, ErrParticipationNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsConflictError checks if an error is a conflict type error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrAlreadyJoined) ||
		errors.Is(err, ErrRewardAlreadyClaimed) ||
		errors.Is(err, ErrOngoingTournamentClaim)
}

// IsPreconditionError checks if an error is a failed business precondition
func IsPreconditionError(err error) bool {
	return errors.Is(err, ErrRankTooLow) ||
		errors.Is(err, ErrNotEnoughCoins) ||
		errors.Is(err, ErrUnclaimedRewardPending) ||
		errors.Is(err, ErrNoRewardEarned)
}
