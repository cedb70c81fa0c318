package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bracket-tournament/internal/domain"
	"github.com/bracket-tournament/internal/metrics"
)

// LevelUpHandler consumes level-up events
type LevelUpHandler interface {
	HandleLevelUp(ctx context.Context, event domain.LevelUpEvent) error
}

// HandleLevelUp adds a point for the level gained. Events for finished
// tournaments or users who never joined are expected and ignored.
func (s *TournamentService) HandleLevelUp(ctx context.Context, event domain.LevelUpEvent) error {
	active, err := s.IsActive(ctx, event.TournamentID)
	if err != nil {
		s.metrics.ObserveScoreEvent(metrics.ScoreFailed)
		return err
	}
	if !active {
		s.metrics.ObserveScoreEvent(metrics.ScoreTournamentClosed)
		s.logger.Debug("ignoring level up for inactive tournament",
			"tournament_id", event.TournamentID,
			"user_id", event.UserID,
		)
		return nil
	}

	score, err := s.store.IncrementScore(ctx, event.TournamentID, event.UserID)
	if errors.Is(err, domain.ErrParticipationNotFound) {
		s.metrics.ObserveScoreEvent(metrics.ScoreNotParticipating)
		s.logger.Debug("ignoring level up for non participant",
			"tournament_id", event.TournamentID,
			"user_id", event.UserID,
		)
		return nil
	}
	if err != nil {
		s.metrics.ObserveScoreEvent(metrics.ScoreFailed)
		return fmt.Errorf("incrementing score: %w", err)
	}

	s.metrics.ObserveScoreEvent(metrics.ScoreApplied)
	s.logger.Debug("score incremented",
		"tournament_id", event.TournamentID,
		"user_id", event.UserID,
		"score", score,
	)
	return nil
}

// LocalPublisher hands level-up events straight to a handler in-process.
// It is used when Kafka is disabled.
type LocalPublisher struct {
	handler LevelUpHandler
}

// NewLocalPublisher creates a publisher delivering to handler
func NewLocalPublisher(handler LevelUpHandler) *LocalPublisher {
	return &LocalPublisher{handler: handler}
}

// PublishLevelUp delivers the event synchronously
func (p *LocalPublisher) PublishLevelUp(ctx context.Context, event domain.LevelUpEvent) error {
	return p.handler.HandleLevelUp(ctx, event)
}
