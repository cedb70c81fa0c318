package service

import (
	"context"
	"fmt"

	"github.com/bracket-tournament/internal/domain"
)

// ClaimReward pays out the reward of a finished tournament once and returns
// the credited user
func (s *TournamentService) ClaimReward(ctx context.Context, tournamentID, userID int64) (user *domain.User, err error) {
	var reward int64
	defer func() { s.metrics.ObserveClaim(reward, err) }()

	active, err := s.IsActive(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, domain.ErrOngoingTournamentClaim
	}

	p, err := s.store.GetParticipation(ctx, tournamentID, userID)
	if err != nil {
		return nil, fmt.Errorf("getting participation: %w", err)
	}
	if p.RewardClaimed {
		return nil, domain.ErrRewardAlreadyClaimed
	}

	rank, err := s.RankOf(ctx, tournamentID, userID)
	if err != nil {
		return nil, err
	}
	amount, err := domain.RewardFor(rank)
	if err != nil {
		return nil, err
	}

	if err := s.store.MarkClaimed(ctx, tournamentID, userID); err != nil {
		return nil, fmt.Errorf("marking reward claimed: %w", err)
	}

	user, err = s.users.Credit(ctx, userID, amount)
	if err != nil {
		// The claim flag is already set, so a retry cannot pay twice.
		s.logger.Error("failed to credit claimed reward",
			"tournament_id", tournamentID,
			"user_id", userID,
			"amount", amount,
			"error", err,
		)
		return nil, fmt.Errorf("crediting reward: %w", err)
	}
	reward = amount

	s.logger.Info("reward claimed",
		"tournament_id", tournamentID,
		"user_id", userID,
		"rank", rank,
		"amount", amount,
	)
	return user, nil
}
