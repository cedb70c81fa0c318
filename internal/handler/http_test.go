package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bracket-tournament/internal/config"
	"github.com/bracket-tournament/internal/memory"
	"github.com/bracket-tournament/internal/metrics"
	"github.com/bracket-tournament/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	store  *memory.Store
	router http.Handler
}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

func newTestServer(t *testing.T, pingers ...Pinger) *testServer {
	t.Helper()
	cfg := config.DefaultConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()

	tournaments := service.NewTournamentService(store, store, &cfg.Tournament, logger)
	m := metrics.New()
	tournaments.SetMetrics(m)
	users := service.NewUserService(store, service.NewLocalPublisher(tournaments), &cfg.Tournament, logger)

	h := NewHandler(tournaments, users, nil, m, logger, pingers...)
	return &testServer{store: store, router: h.Router()}
}

func (s *testServer) do(t *testing.T, method, path string) (int, APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp APIResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec.Code, resp
}

// data re-decodes the envelope payload into out
func data(t *testing.T, resp APIResponse, out any) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func (s *testServer) user(t *testing.T, level int, coins int64) int64 {
	t.Helper()
	u, err := s.store.CreateUser(context.Background(), level, coins)
	require.NoError(t, err)
	return u.ID
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t)

	code, resp := s.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)

	code, _ = s.do(t, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusOK, code)

	down := newTestServer(t, failingPinger{})
	code, resp = down.do(t, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.False(t, resp.Success)
}

func TestJoinFlow(t *testing.T) {
	s := newTestServer(t)
	uid := s.user(t, 30, 5000)

	code, resp := s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/tournaments/participants/%d", uid))
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "no active tournament", resp.Error)

	code, _ = s.do(t, http.MethodGet, "/api/v1/tournaments/active")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/tournaments/rotate")
	require.Equal(t, http.StatusOK, code)

	code, resp = s.do(t, http.MethodGet, "/api/v1/tournaments/active")
	require.Equal(t, http.StatusOK, code)
	var active struct {
		ID     int64 `json:"id"`
		Active bool  `json:"active"`
	}
	data(t, resp, &active)
	assert.True(t, active.Active)

	code, resp = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/tournaments/participants/%d", uid))
	require.Equal(t, http.StatusOK, code)
	var lb struct {
		GroupID      int64 `json:"group_id"`
		TournamentID int64 `json:"tournament_id"`
		Ongoing      bool  `json:"ongoing"`
	}
	data(t, resp, &lb)
	assert.True(t, lb.Ongoing)

	code, resp = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/tournaments/participants/%d", uid))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "user already joined the tournament", resp.Error)

	code, resp = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/tournaments/%d/participants/%d/rank", lb.TournamentID, uid))
	require.Equal(t, http.StatusOK, code)
	var rank struct {
		Rank int `json:"rank"`
	}
	data(t, resp, &rank)
	assert.Equal(t, 1, rank.Rank)

	code, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/tournaments/groups/%d/leaderboard", lb.GroupID))
	assert.Equal(t, http.StatusOK, code)
}

func TestErrorStatusMapping(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/tournaments/rotate")
	lowLevel := s.user(t, 10, 5000)
	poor := s.user(t, 30, 10)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"rank too low", http.MethodPut, fmt.Sprintf("/api/v1/tournaments/participants/%d", lowLevel), http.StatusBadRequest},
		{"not enough coins", http.MethodPut, fmt.Sprintf("/api/v1/tournaments/participants/%d", poor), http.StatusBadRequest},
		{"unknown user", http.MethodPut, "/api/v1/tournaments/participants/999", http.StatusNotFound},
		{"invalid id", http.MethodPut, "/api/v1/tournaments/participants/abc", http.StatusBadRequest},
		{"unknown group", http.MethodGet, "/api/v1/tournaments/groups/77/leaderboard", http.StatusNotFound},
		{"rank of non participant", http.MethodGet, "/api/v1/tournaments/1/participants/999/rank", http.StatusNotFound},
		{"claim ongoing", http.MethodPatch, "/api/v1/tournaments/1/participants/999/claim_reward", http.StatusConflict},
		{"unknown user lookup", http.MethodGet, "/api/v1/users/999", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := s.do(t, tt.method, tt.path)
			assert.Equal(t, tt.status, code)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestClaimRewardFlow(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/tournaments/rotate")
	uid := s.user(t, 30, 5000)

	code, _ := s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/tournaments/participants/%d", uid))
	require.Equal(t, http.StatusOK, code)
	s.do(t, http.MethodPost, "/api/v1/tournaments/rotate")

	claimPath := fmt.Sprintf("/api/v1/tournaments/1/participants/%d/claim_reward", uid)
	code, resp := s.do(t, http.MethodPatch, claimPath)
	require.Equal(t, http.StatusOK, code)
	var user struct {
		Coins int64 `json:"coins"`
	}
	data(t, resp, &user)
	assert.Equal(t, int64(14000), user.Coins)

	code, resp = s.do(t, http.MethodPatch, claimPath)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "reward already claimed", resp.Error)
}

func TestUserEndpoints(t *testing.T) {
	s := newTestServer(t)

	code, resp := s.do(t, http.MethodPost, "/api/v1/users")
	require.Equal(t, http.StatusCreated, code)
	var created struct {
		ID    int64 `json:"id"`
		Level int   `json:"level"`
		Coins int64 `json:"coins"`
	}
	data(t, resp, &created)
	assert.Equal(t, 1, created.Level)
	assert.Equal(t, int64(5000), created.Coins)

	code, resp = s.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/users/%d/level_up", created.ID))
	require.Equal(t, http.StatusOK, code)
	data(t, resp, &created)
	assert.Equal(t, 2, created.Level)
	assert.Equal(t, int64(5025), created.Coins)

	code, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", created.ID))
	assert.Equal(t, http.StatusOK, code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/health")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tournament_http_requests_total")
}
