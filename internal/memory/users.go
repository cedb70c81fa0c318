package memory

import (
	"context"

	"github.com/bracket-tournament/internal/domain"
)

// CreateUser registers a new user
func (s *Store) CreateUser(ctx context.Context, level int, coins int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextUserID++
	now := s.now()
	u := &domain.User{
		ID:        s.nextUserID,
		Level:     level,
		Coins:     coins,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[u.ID] = u

	return copyUser(u), nil
}

// GetUser retrieves a user by ID
func (s *Store) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return copyUser(u), nil
}

// Debit removes coins, refusing to overdraw
func (s *Store) Debit(ctx context.Context, userID int64, amount int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if u.Coins < amount {
		return nil, domain.ErrNotEnoughCoins
	}

	u.Coins -= amount
	u.UpdatedAt = s.now()
	return copyUser(u), nil
}

// Credit adds coins
func (s *Store) Credit(ctx context.Context, userID int64, amount int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	u.Coins += amount
	u.UpdatedAt = s.now()
	return copyUser(u), nil
}

// SetLastTournament records the tournament the user entered last
func (s *Store) SetLastTournament(ctx context.Context, userID, tournamentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}

	id := tournamentID
	u.LastTournamentID = &id
	u.UpdatedAt = s.now()
	return nil
}

// LevelUp raises the level by one and grants coins
func (s *Store) LevelUp(ctx context.Context, userID int64, coins int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	u.Level++
	u.Coins += coins
	u.UpdatedAt = s.now()
	return copyUser(u), nil
}

// SetUser overwrites a user's level and balance, used to seed state
func (s *Store) SetUser(ctx context.Context, userID int64, level int, coins int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}

	u.Level = level
	u.Coins = coins
	u.UpdatedAt = s.now()
	return nil
}

func copyUser(u *domain.User) *domain.User {
	copied := *u
	if u.LastTournamentID != nil {
		id := *u.LastTournamentID
		copied.LastTournamentID = &id
	}
	return &copied
}
