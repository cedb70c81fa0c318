package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/bracket-tournament/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "already_joined", Outcome(fmt.Errorf("joining: %w", domain.ErrAlreadyJoined)))
	assert.Equal(t, "no_reward_earned", Outcome(domain.ErrNoRewardEarned))
	assert.Equal(t, "error", Outcome(fmt.Errorf("boom")))
}

func TestObserve(t *testing.T) {
	m := New()

	m.ObserveJoin(nil)
	m.ObserveJoin(domain.ErrRankTooLow)
	m.ObserveClaim(3000, nil)
	m.ObserveClaim(0, domain.ErrRewardAlreadyClaimed)
	m.ObserveRotation()
	m.ObserveScoreEvent(ScoreApplied)
	m.ObserveHTTP("/health", "GET", 200, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.joins.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.joins.WithLabelValues("rank_too_low")))
	assert.Equal(t, 3000.0, testutil.ToFloat64(m.rewardsPaid))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rotations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scoreEvents.WithLabelValues(ScoreApplied)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveJoin(nil)
		m.ObserveClaim(10, nil)
		m.ObserveRotation()
		m.ObserveScoreEvent(ScoreFailed)
		m.ObserveHTTP("/", "GET", 500, time.Second)
	})
}
