package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bracket-tournament/internal/domain"
)

type participationKey struct {
	tournamentID int64
	userID       int64
}

type bracketKey struct {
	tournamentID int64
	bracket      int
}

// Store implements the tournament and user stores in memory. One lock guards
// every map so each operation is a single atomic step.
type Store struct {
	mu sync.RWMutex

	tournaments    map[int64]*domain.Tournament
	activeID       int64
	groups         map[int64]*domain.Group
	latestGroup    map[bracketKey]int64
	participations map[participationKey]*domain.Participation
	users          map[int64]*domain.User

	nextTournamentID    int64
	nextGroupID         int64
	nextParticipationID int64
	nextUserID          int64

	now func() time.Time
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		tournaments:    make(map[int64]*domain.Tournament),
		groups:         make(map[int64]*domain.Group),
		latestGroup:    make(map[bracketKey]int64),
		participations: make(map[participationKey]*domain.Participation),
		users:          make(map[int64]*domain.User),
		now:            time.Now,
	}
}

// RotateTournament deactivates the active tournament and creates the next one
func (s *Store) RotateTournament(ctx context.Context) (*domain.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.tournaments[s.activeID]; ok {
		current.Active = false
	}

	s.nextTournamentID++
	t := &domain.Tournament{
		ID:        s.nextTournamentID,
		Active:    true,
		CreatedAt: s.now(),
	}
	s.tournaments[t.ID] = t
	s.activeID = t.ID

	copied := *t
	return &copied, nil
}

// GetActiveTournament returns the active tournament
func (s *Store) GetActiveTournament(ctx context.Context) (*domain.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tournaments[s.activeID]
	if !ok || !t.Active {
		return nil, domain.ErrNoActiveTournament
	}
	copied := *t
	return &copied, nil
}

// GetTournament retrieves a tournament by ID
func (s *Store) GetTournament(ctx context.Context, tournamentID int64) (*domain.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tournaments[tournamentID]
	if !ok {
		return nil, domain.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

// GetLatestGroup returns the most recently opened group of a bracket
func (s *Store) GetLatestGroup(ctx context.Context, tournamentID int64, bracket int) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.latestGroup[bracketKey{tournamentID, bracket}]
	if !ok {
		return nil, domain.ErrGroupNotFound
	}
	copied := *s.groups[id]
	return &copied, nil
}

// OpenGroup returns the latest group if it has room, otherwise opens a new one
func (s *Store) OpenGroup(ctx context.Context, tournamentID int64, bracket int, capacity int) (*domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tournaments[tournamentID]; !ok {
		return nil, domain.ErrTournamentNotFound
	}

	key := bracketKey{tournamentID, bracket}
	if id, ok := s.latestGroup[key]; ok && s.groups[id].ParticipantCount < capacity {
		copied := *s.groups[id]
		return &copied, nil
	}

	s.nextGroupID++
	g := &domain.Group{
		ID:           s.nextGroupID,
		TournamentID: tournamentID,
		Bracket:      bracket,
		CreatedAt:    s.now(),
	}
	s.groups[g.ID] = g
	s.latestGroup[key] = g.ID

	copied := *g
	return &copied, nil
}

// GetGroup retrieves a group by ID
func (s *Store) GetGroup(ctx context.Context, groupID int64) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[groupID]
	if !ok {
		return nil, domain.ErrGroupNotFound
	}
	copied := *g
	return &copied, nil
}

// HasJoined reports whether the user entered the tournament
func (s *Store) HasJoined(ctx context.Context, tournamentID, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.participations[participationKey{tournamentID, userID}]
	return ok, nil
}

// CreateParticipation reserves a group slot and records the entry
func (s *Store) CreateParticipation(ctx context.Context, tournamentID, groupID, userID int64, capacity int) (*domain.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tournaments[tournamentID]
	if !ok || !t.Active {
		return nil, domain.ErrNoActiveTournament
	}
	g, ok := s.groups[groupID]
	if !ok || g.TournamentID != tournamentID {
		return nil, domain.ErrGroupNotFound
	}

	key := participationKey{tournamentID, userID}
	if _, exists := s.participations[key]; exists {
		return nil, domain.ErrAlreadyJoined
	}
	if g.ParticipantCount >= capacity {
		return nil, domain.ErrGroupFull
	}

	g.ParticipantCount++
	s.nextParticipationID++
	p := &domain.Participation{
		ID:           s.nextParticipationID,
		TournamentID: tournamentID,
		GroupID:      groupID,
		UserID:       userID,
		JoinedAt:     s.now(),
	}
	s.participations[key] = p

	copied := *p
	return &copied, nil
}

// GetParticipation retrieves the user's entry into a tournament
func (s *Store) GetParticipation(ctx context.Context, tournamentID, userID int64) (*domain.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.participations[participationKey{tournamentID, userID}]
	if !ok {
		return nil, domain.ErrParticipationNotFound
	}
	copied := *p
	return &copied, nil
}

// IncrementScore adds one point while the tournament is active
func (s *Store) IncrementScore(ctx context.Context, tournamentID, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tournaments[tournamentID]
	if !ok || !t.Active {
		return 0, domain.ErrParticipationNotFound
	}
	p, ok := s.participations[participationKey{tournamentID, userID}]
	if !ok {
		return 0, domain.ErrParticipationNotFound
	}

	p.Score++
	return p.Score, nil
}

// CountInGroup returns the number of participations in a group
func (s *Store) CountInGroup(ctx context.Context, tournamentID, groupID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[groupID]
	if !ok || g.TournamentID != tournamentID {
		return 0, nil
	}
	return g.ParticipantCount, nil
}

// MarkClaimed sets the claim flag exactly once
func (s *Store) MarkClaimed(ctx context.Context, tournamentID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participations[participationKey{tournamentID, userID}]
	if !ok {
		return domain.ErrParticipationNotFound
	}
	if p.RewardClaimed {
		return domain.ErrRewardAlreadyClaimed
	}

	p.RewardClaimed = true
	return nil
}

// ListGroupOrderedByScore returns a group's participations by score, earliest join first on ties
func (s *Store) ListGroupOrderedByScore(ctx context.Context, groupID int64) ([]domain.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	participations := make([]domain.Participation, 0)
	for _, p := range s.participations {
		if p.GroupID == groupID {
			participations = append(participations, *p)
		}
	}

	sort.Slice(participations, func(i, j int) bool {
		a, b := participations[i], participations[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.ID < b.ID
	})

	return participations, nil
}
