package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bracket-tournament/internal/domain"
)

// errTournamentClosed reports that the tournament a join was checked against
// was deactivated before the slot could be reserved
var errTournamentClosed = errors.New("tournament closed during join")

// AssignGroup picks the group a user of the given level joins: the latest
// group of the bracket while it has room, otherwise a freshly opened one.
func (s *TournamentService) AssignGroup(ctx context.Context, level int, tournamentID int64) (int64, error) {
	bracket := domain.Bracket(level)

	latest, err := s.store.GetLatestGroup(ctx, tournamentID, bracket)
	switch {
	case errors.Is(err, domain.ErrGroupNotFound):
		return s.openGroup(ctx, tournamentID, bracket)
	case err != nil:
		return 0, fmt.Errorf("getting latest group: %w", err)
	}

	count, err := s.store.CountInGroup(ctx, tournamentID, latest.ID)
	if err != nil {
		return 0, fmt.Errorf("counting group participants: %w", err)
	}
	if count >= s.config.GroupCapacity {
		return s.openGroup(ctx, tournamentID, bracket)
	}

	return latest.ID, nil
}

func (s *TournamentService) openGroup(ctx context.Context, tournamentID int64, bracket int) (int64, error) {
	g, err := s.store.OpenGroup(ctx, tournamentID, bracket, s.config.GroupCapacity)
	if err != nil {
		return 0, fmt.Errorf("opening group: %w", err)
	}
	return g.ID, nil
}

func (s *TournamentService) joinAttempts() int {
	if s.config.JoinRetryAttempts <= 0 {
		return 1
	}
	return s.config.JoinRetryAttempts
}

// reserveSlot assigns a group and creates the participation, re-selecting
// when another join took the last seat first.
func (s *TournamentService) reserveSlot(ctx context.Context, user *domain.User, tournamentID int64) (*domain.Participation, error) {
	attempts := s.joinAttempts()

	for attempt := 1; attempt <= attempts; attempt++ {
		groupID, err := s.AssignGroup(ctx, user.Level, tournamentID)
		if err != nil {
			return nil, err
		}

		p, err := s.store.CreateParticipation(ctx, tournamentID, groupID, user.ID, s.config.GroupCapacity)
		if errors.Is(err, domain.ErrGroupFull) {
			s.logger.Debug("group filled before reservation, reselecting",
				"tournament_id", tournamentID,
				"group_id", groupID,
				"user_id", user.ID,
				"attempt", attempt,
			)
			continue
		}
		if errors.Is(err, domain.ErrNoActiveTournament) {
			return nil, fmt.Errorf("creating participation in tournament %d: %w", tournamentID, errTournamentClosed)
		}
		if err != nil {
			return nil, fmt.Errorf("creating participation: %w", err)
		}
		return p, nil
	}

	return nil, fmt.Errorf("reserving group slot after %d attempts: %w", attempts, domain.ErrGroupFull)
}
