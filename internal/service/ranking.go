package service

import (
	"context"
	"fmt"

	"github.com/bracket-tournament/internal/domain"
)

// RankOf returns the 1-based rank of the user inside their group
func (s *TournamentService) RankOf(ctx context.Context, tournamentID, userID int64) (int, error) {
	p, err := s.store.GetParticipation(ctx, tournamentID, userID)
	if err != nil {
		return 0, fmt.Errorf("getting participation: %w", err)
	}

	participations, err := s.store.ListGroupOrderedByScore(ctx, p.GroupID)
	if err != nil {
		return 0, fmt.Errorf("listing group: %w", err)
	}

	for i, other := range participations {
		if other.ID == p.ID {
			return i + 1, nil
		}
	}

	s.logger.Error("participation missing from its group listing",
		"tournament_id", tournamentID,
		"group_id", p.GroupID,
		"user_id", userID,
	)
	return 0, domain.ErrRankInconsistent
}

// Rank wraps RankOf for transport responses
func (s *TournamentService) Rank(ctx context.Context, tournamentID, userID int64) (*domain.RankResponse, error) {
	rank, err := s.RankOf(ctx, tournamentID, userID)
	if err != nil {
		return nil, err
	}
	return &domain.RankResponse{TournamentID: tournamentID, UserID: userID, Rank: rank}, nil
}

// IsClaimed reports whether the participation's reward was paid out
func (s *TournamentService) IsClaimed(ctx context.Context, tournamentID, userID int64) (bool, error) {
	p, err := s.store.GetParticipation(ctx, tournamentID, userID)
	if err != nil {
		return false, err
	}
	return p.RewardClaimed, nil
}

// GroupLeaderboard returns a group's participations in rank order. Once the
// tournament has ended the result no longer changes and is cached.
func (s *TournamentService) GroupLeaderboard(ctx context.Context, groupID int64) (*domain.GroupLeaderboard, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, err := s.cache.GetLeaderboard(ctx, groupID)
		if err != nil {
			s.logger.Warn("failed to read cached leaderboard", "group_id", groupID, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	ongoing, err := s.IsActive(ctx, group.TournamentID)
	if err != nil {
		return nil, err
	}

	participations, err := s.store.ListGroupOrderedByScore(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("listing group: %w", err)
	}

	lb := &domain.GroupLeaderboard{
		GroupID:        groupID,
		TournamentID:   group.TournamentID,
		Ongoing:        ongoing,
		Participations: participations,
	}

	if !ongoing && s.cache != nil {
		if err := s.cache.SetLeaderboard(ctx, lb); err != nil {
			s.logger.Warn("failed to cache leaderboard", "group_id", groupID, "error", err)
		}
	}

	return lb, nil
}
