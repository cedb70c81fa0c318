package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bracket-tournament/internal/domain"
)

// Rotate closes the active tournament and opens the next one
func (s *TournamentService) Rotate(ctx context.Context) (*domain.Tournament, error) {
	t, err := s.store.RotateTournament(ctx)
	if err != nil {
		return nil, fmt.Errorf("rotating tournament: %w", err)
	}

	s.metrics.ObserveRotation()
	s.logger.Info("tournament rotated", "tournament_id", t.ID)
	return t, nil
}

// ActiveTournament returns the currently active tournament
func (s *TournamentService) ActiveTournament(ctx context.Context) (*domain.Tournament, error) {
	return s.store.GetActiveTournament(ctx)
}

// ActiveTournamentID returns the id of the active tournament or ErrNoActiveTournament
func (s *TournamentService) ActiveTournamentID(ctx context.Context) (int64, error) {
	t, err := s.store.GetActiveTournament(ctx)
	if err != nil {
		return 0, err
	}
	return t.ID, nil
}

// IsActive reports whether the tournament is running. Unknown ids are not active.
func (s *TournamentService) IsActive(ctx context.Context, tournamentID int64) (bool, error) {
	t, err := s.store.GetTournament(ctx, tournamentID)
	if errors.Is(err, domain.ErrTournamentNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("getting tournament: %w", err)
	}
	return t.Active, nil
}
