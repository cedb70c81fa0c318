package service

import (
	"log/slog"

	"github.com/bracket-tournament/internal/config"
	"github.com/bracket-tournament/internal/metrics"
)

// TournamentService implements the tournament lifecycle, group assignment,
// ranking and the join and claim workflows
type TournamentService struct {
	store   Store
	users   UserDirectory
	cache   LeaderboardCache
	metrics *metrics.Metrics
	config  *config.TournamentConfig
	logger  *slog.Logger
}

// NewTournamentService creates a new tournament service
func NewTournamentService(
	store Store,
	users UserDirectory,
	cfg *config.TournamentConfig,
	logger *slog.Logger,
) *TournamentService {
	return &TournamentService{
		store:  store,
		users:  users,
		config: cfg,
		logger: logger,
	}
}

// SetCache enables caching of finished leaderboards
func (s *TournamentService) SetCache(cache LeaderboardCache) {
	s.cache = cache
}

// SetMetrics attaches Prometheus collectors
func (s *TournamentService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}
