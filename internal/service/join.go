package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bracket-tournament/internal/domain"
)

// Join enters the user into the active tournament and returns the group
// leaderboard they landed in. A rotation landing between the eligibility
// checks and the reservation restarts the join against the new tournament.
func (s *TournamentService) Join(ctx context.Context, userID int64) (lb *domain.GroupLeaderboard, err error) {
	defer func() { s.metrics.ObserveJoin(err) }()

	attempts := s.joinAttempts()
	for attempt := 1; ; attempt++ {
		p, err := s.enter(ctx, userID)
		if errors.Is(err, errTournamentClosed) && attempt < attempts {
			s.logger.Info("tournament rotated during join, retrying",
				"user_id", userID,
				"attempt", attempt,
			)
			continue
		}
		if err != nil {
			return nil, err
		}
		return s.GroupLeaderboard(ctx, p.GroupID)
	}
}

// enter runs one join attempt against the tournament active right now
func (s *TournamentService) enter(ctx context.Context, userID int64) (*domain.Participation, error) {
	tournamentID, err := s.ActiveTournamentID(ctx)
	if err != nil {
		return nil, err
	}

	joined, err := s.store.HasJoined(ctx, tournamentID, userID)
	if err != nil {
		return nil, fmt.Errorf("checking participation: %w", err)
	}
	if joined {
		return nil, domain.ErrAlreadyJoined
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	if user.Level < s.config.MinEntryLevel {
		return nil, domain.ErrRankTooLow
	}
	if user.Coins < s.config.EntryFee {
		return nil, domain.ErrNotEnoughCoins
	}
	if err := s.checkPreviousReward(ctx, user, tournamentID); err != nil {
		return nil, err
	}

	if _, err := s.users.Debit(ctx, userID, s.config.EntryFee); err != nil {
		return nil, fmt.Errorf("debiting entry fee: %w", err)
	}

	p, err := s.reserveSlot(ctx, user, tournamentID)
	if err != nil {
		s.refundEntryFee(ctx, userID, tournamentID)
		return nil, err
	}

	// The entry is paid and recorded at this point; a missing pointer only
	// skips later level-up scoring and the unclaimed-reward check.
	if err := s.users.SetLastTournament(ctx, userID, tournamentID); err != nil {
		s.logger.Error("failed to record last tournament",
			"tournament_id", tournamentID,
			"user_id", userID,
			"error", err,
		)
	}

	s.logger.Info("user joined tournament",
		"tournament_id", tournamentID,
		"group_id", p.GroupID,
		"user_id", userID,
	)
	return p, nil
}

// checkPreviousReward rejects a join while the user sits on an earned but
// unclaimed reward of the tournament they entered last
func (s *TournamentService) checkPreviousReward(ctx context.Context, user *domain.User, tournamentID int64) error {
	if user.LastTournamentID == nil || *user.LastTournamentID == tournamentID {
		return nil
	}
	previous := *user.LastTournamentID

	p, err := s.store.GetParticipation(ctx, previous, user.ID)
	if errors.Is(err, domain.ErrParticipationNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("getting previous participation: %w", err)
	}
	if p.RewardClaimed {
		return nil
	}

	rank, err := s.RankOf(ctx, previous, user.ID)
	if err != nil {
		return fmt.Errorf("ranking previous tournament: %w", err)
	}
	if domain.EarnsReward(rank) {
		return domain.ErrUnclaimedRewardPending
	}
	return nil
}

func (s *TournamentService) refundEntryFee(ctx context.Context, userID, tournamentID int64) {
	if _, err := s.users.Credit(ctx, userID, s.config.EntryFee); err != nil {
		s.logger.Error("failed to refund entry fee",
			"tournament_id", tournamentID,
			"user_id", userID,
			"amount", s.config.EntryFee,
			"error", err,
		)
	}
}
