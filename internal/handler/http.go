package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bracket-tournament/internal/domain"
	"github.com/bracket-tournament/internal/metrics"
	"github.com/bracket-tournament/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RotationTrigger runs one rotation the same way the scheduler does
type RotationTrigger interface {
	RunOnce(ctx context.Context) error
}

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler provides HTTP handlers for the tournament API
type Handler struct {
	tournaments *service.TournamentService
	users       *service.UserService
	rotation    RotationTrigger
	metrics     *metrics.Metrics
	pingers     []Pinger
	logger      *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	tournaments *service.TournamentService,
	users *service.UserService,
	rotation RotationTrigger,
	m *metrics.Metrics,
	logger *slog.Logger,
	pingers ...Pinger,
) *Handler {
	return &Handler{
		tournaments: tournaments,
		users:       users,
		rotation:    rotation,
		metrics:     m,
		pingers:     pingers,
		logger:      logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(h.metricsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler())
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/active", h.GetActiveTournament)
			r.Post("/rotate", h.RotateTournament)
			r.Put("/participants/{userID}", h.JoinTournament)
			r.Get("/groups/{groupID}/leaderboard", h.GetGroupLeaderboard)

			r.Route("/{tournamentID}/participants/{userID}", func(r chi.Router) {
				r.Get("/rank", h.GetRank)
				r.Patch("/claim_reward", h.ClaimReward)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.CreateUser)
			r.Get("/{userID}", h.GetUser)
			r.Patch("/{userID}/level_up", h.LevelUp)
		})
	})

	return r
}

// metricsMiddleware records latency and status per route pattern
func (h *Handler) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.metrics.ObserveHTTP(route, r.Method, status, time.Since(start))
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to encode response", "error", err)
	}
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data any) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// publicErrors are the sentinels whose text is returned to clients
var publicErrors = []error{
	domain.ErrNoActiveTournament,
	domain.ErrTournamentNotFound,
	domain.ErrGroupNotFound,
	domain.ErrParticipationNotFound,
	domain.ErrUserNotFound,
	domain.ErrAlreadyJoined,
	domain.ErrRewardAlreadyClaimed,
	domain.ErrOngoingTournamentClaim,
	domain.ErrRankTooLow,
	domain.ErrNotEnoughCoins,
	domain.ErrUnclaimedRewardPending,
	domain.ErrNoRewardEarned,
	domain.ErrInvalidRequest,
}

// writeDomainError maps an error kind to its status code. Unclassified errors
// are logged and reported as internal errors.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error, msg string, attrs ...any) {
	var status int
	switch {
	case domain.IsNotFoundError(err):
		status = http.StatusNotFound
	case domain.IsConflictError(err):
		status = http.StatusConflict
	case domain.IsPreconditionError(err), errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	default:
		h.logger.Error(msg, append(attrs, "error", err)...)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	for _, public := range publicErrors {
		if errors.Is(err, public) {
			h.writeError(w, status, public)
			return
		}
	}
	h.writeError(w, status, err)
}

// idParam parses a positive integer URL parameter
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidRequest
	}
	return id, nil
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, p := range h.pingers {
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", "error", err)
			h.writeError(w, http.StatusServiceUnavailable, errors.New("not ready"))
			return
		}
	}
	h.writeSuccess(w, map[string]string{"status": "ready"})
}
