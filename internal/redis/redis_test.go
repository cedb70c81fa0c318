package redis

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/bracket-tournament/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient connects to the Redis named by TOURNAMENT_TEST_REDIS_ADDR
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TOURNAMENT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TOURNAMENT_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestLeaderboardKey(t *testing.T) {
	assert.Equal(t, "tournament:group:42:leaderboard", leaderboardKey(42))
}

func TestLeaderboardCacheRoundTrip(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	cache := NewLeaderboardCache(client, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	groupID := time.Now().UnixNano()
	t.Cleanup(func() { client.Del(ctx, leaderboardKey(groupID)) })

	miss, err := cache.GetLeaderboard(ctx, groupID)
	require.NoError(t, err)
	assert.Nil(t, miss)

	lb := &domain.GroupLeaderboard{
		GroupID:      groupID,
		TournamentID: 3,
		Participations: []domain.Participation{
			{ID: 1, TournamentID: 3, GroupID: groupID, UserID: 9, Score: 12},
		},
	}
	require.NoError(t, cache.SetLeaderboard(ctx, lb))

	hit, err := cache.GetLeaderboard(ctx, groupID)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, int64(12), hit.Participations[0].Score)
	assert.False(t, hit.Ongoing)
}

func TestLeaderboardCacheSkipsOngoing(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	cache := NewLeaderboardCache(client, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	groupID := time.Now().UnixNano()
	require.NoError(t, cache.SetLeaderboard(ctx, &domain.GroupLeaderboard{GroupID: groupID, Ongoing: true}))

	miss, err := cache.GetLeaderboard(ctx, groupID)
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestRotationLockIsExclusive(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	key := "tournament:rotation:test:" + time.Now().Format(time.RFC3339Nano)

	first := NewRotationLock(client, key, time.Minute)
	second := NewRotationLock(client, key, time.Minute)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, second.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Release(ctx))
}

func TestRotationLockExpiresAfterTTL(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	key := "tournament:rotation:ttl:" + time.Now().Format(time.RFC3339Nano)

	first := NewRotationLock(client, key, 200*time.Millisecond)
	second := NewRotationLock(client, key, 200*time.Millisecond)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.Eventually(t, func() bool {
		ok, err := second.Acquire(ctx)
		return err == nil && ok
	}, 2*time.Second, 50*time.Millisecond)
	require.NoError(t, second.Release(ctx))
}
