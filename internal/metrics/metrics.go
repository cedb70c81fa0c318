package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bracket-tournament/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tournament"

// Score event outcomes
const (
	ScoreApplied          = "applied"
	ScoreTournamentClosed = "tournament_closed"
	ScoreNotParticipating = "not_participating"
	ScoreFailed           = "failed"
)

// Metrics holds the Prometheus collectors of the tournament service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	joins        *prometheus.CounterVec
	claims       *prometheus.CounterVec
	rewardsPaid  prometheus.Counter
	rotations    prometheus.Counter
	scoreEvents  *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
}

// New creates and registers the collectors on a dedicated registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		joins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "joins_total",
			Help:      "Tournament join attempts by outcome",
		}, []string{"outcome"}),
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reward_claims_total",
			Help:      "Reward claim attempts by outcome",
		}, []string{"outcome"}),
		rewardsPaid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewards_paid_coins_total",
			Help:      "Coins credited by reward claims",
		}),
		rotations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rotations_total",
			Help:      "Completed tournament rotations",
		}),
		scoreEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_events_total",
			Help:      "Level-up events by outcome",
		}, []string{"outcome"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_latency_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "code"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by route",
		}, []string{"route", "method", "code"}),
	}

	m.registry.MustRegister(
		m.joins,
		m.claims,
		m.rewardsPaid,
		m.rotations,
		m.scoreEvents,
		m.httpLatency,
		m.httpRequests,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registered collectors
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveJoin records the outcome of a join attempt
func (m *Metrics) ObserveJoin(err error) {
	if m == nil {
		return
	}
	m.joins.WithLabelValues(Outcome(err)).Inc()
}

// ObserveClaim records the outcome of a claim and the amount credited
func (m *Metrics) ObserveClaim(reward int64, err error) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(Outcome(err)).Inc()
	if err == nil {
		m.rewardsPaid.Add(float64(reward))
	}
}

// ObserveRotation counts a completed rotation
func (m *Metrics) ObserveRotation() {
	if m == nil {
		return
	}
	m.rotations.Inc()
}

// ObserveScoreEvent records how a level-up event was handled
func (m *Metrics) ObserveScoreEvent(outcome string) {
	if m == nil {
		return
	}
	m.scoreEvents.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"route": route, "method": method, "code": strconv.Itoa(status)}
	m.httpLatency.With(labels).Observe(elapsed.Seconds())
	m.httpRequests.With(labels).Inc()
}

var outcomes = []struct {
	err   error
	label string
}{
	{domain.ErrNoActiveTournament, "no_active_tournament"},
	{domain.ErrParticipationNotFound, "participation_not_found"},
	{domain.ErrUserNotFound, "user_not_found"},
	{domain.ErrAlreadyJoined, "already_joined"},
	{domain.ErrRewardAlreadyClaimed, "already_claimed"},
	{domain.ErrOngoingTournamentClaim, "tournament_ongoing"},
	{domain.ErrRankTooLow, "rank_too_low"},
	{domain.ErrNotEnoughCoins, "not_enough_coins"},
	{domain.ErrUnclaimedRewardPending, "unclaimed_reward_pending"},
	{domain.ErrNoRewardEarned, "no_reward_earned"},
	{domain.ErrGroupFull, "group_full"},
}

// Outcome turns an operation error into a bounded label value
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	for _, o := range outcomes {
		if errors.Is(err, o.err) {
			return o.label
		}
	}
	return "error"
}
