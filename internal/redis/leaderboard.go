package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bracket-tournament/internal/domain"
	"github.com/redis/go-redis/v9"
)

// LeaderboardCache keeps leaderboards of finished tournaments. They never
// change once the tournament is closed, so entries only expire by TTL.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewLeaderboardCache creates a new Redis leaderboard cache
func NewLeaderboardCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *LeaderboardCache {
	return &LeaderboardCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// leaderboardKey returns the Redis key for a group's final leaderboard
func leaderboardKey(groupID int64) string {
	return fmt.Sprintf("tournament:group:%d:leaderboard", groupID)
}

// GetLeaderboard returns the cached leaderboard or nil on a miss
func (c *LeaderboardCache) GetLeaderboard(ctx context.Context, groupID int64) (*domain.GroupLeaderboard, error) {
	data, err := c.client.Get(ctx, leaderboardKey(groupID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting cached leaderboard: %w", err)
	}

	var lb domain.GroupLeaderboard
	if err := json.Unmarshal(data, &lb); err != nil {
		return nil, fmt.Errorf("decoding cached leaderboard: %w", err)
	}
	return &lb, nil
}

// SetLeaderboard stores a finished leaderboard
func (c *LeaderboardCache) SetLeaderboard(ctx context.Context, lb *domain.GroupLeaderboard) error {
	if lb.Ongoing {
		return nil
	}

	data, err := json.Marshal(lb)
	if err != nil {
		return fmt.Errorf("encoding leaderboard: %w", err)
	}

	if err := c.client.Set(ctx, leaderboardKey(lb.GroupID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("caching leaderboard: %w", err)
	}

	c.logger.Debug("cached final leaderboard", "group_id", lb.GroupID, "tournament_id", lb.TournamentID)
	return nil
}

// Ping checks the Redis connection
func (c *LeaderboardCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
