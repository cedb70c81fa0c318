package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bracket-tournament/internal/config"
	"github.com/bracket-tournament/internal/domain"
	"github.com/google/uuid"
)

// UserService manages accounts and level progression
type UserService struct {
	users     UserRegistry
	publisher EventPublisher
	config    *config.TournamentConfig
	logger    *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(
	users UserRegistry,
	publisher EventPublisher,
	cfg *config.TournamentConfig,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		publisher: publisher,
		config:    cfg,
		logger:    logger,
	}
}

// CreateUser registers a level 1 user with the starting balance
func (s *UserService) CreateUser(ctx context.Context) (*domain.User, error) {
	user, err := s.users.CreateUser(ctx, 1, s.config.InitialCoins)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	s.logger.Info("user created", "user_id", user.ID)
	return user, nil
}

// GetUser returns a user by id
func (s *UserService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.GetUser(ctx, userID)
}

// LevelUp raises the user one level, grants the level-up coins and emits a
// level-up event for the tournament the user entered last
func (s *UserService) LevelUp(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.LevelUp(ctx, userID, s.config.LevelUpCoins)
	if err != nil {
		return nil, fmt.Errorf("levelling up user: %w", err)
	}

	if user.LastTournamentID == nil {
		return user, nil
	}

	event := domain.LevelUpEvent{
		EventID:      uuid.NewString(),
		UserID:       user.ID,
		TournamentID: *user.LastTournamentID,
		Timestamp:    time.Now().UTC(),
	}
	if err := s.publisher.PublishLevelUp(ctx, event); err != nil {
		// Don't fail the request, the level is already persisted
		s.logger.Warn("failed to publish level up event",
			"event_id", event.EventID,
			"tournament_id", event.TournamentID,
			"user_id", user.ID,
			"error", err,
		)
	}

	return user, nil
}
