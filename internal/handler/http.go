package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rumpus-tracker/internal/domain"
	"github.com/rumpus-tracker/internal/query"
	"github.com/rumpus-tracker/internal/rumpus"
	"github.com/rumpus-tracker/internal/websocket"
)

// Tracker is the tracker service as seen by the HTTP API
type Tracker interface {
	Watches() []domain.Watch
	Watch(name string) (domain.Watch, error)
	PollWatch(ctx context.Context, name string) (*domain.PollResult, error)
	ResetWatch(ctx context.Context, name string) error
	Top(ctx context.Context, name string, n int) ([]domain.RankingEntry, error)
	Rank(ctx context.Context, name, subjectID string) (*domain.RankingEntry, error)
	Stats(ctx context.Context, name string) (*domain.WatchStats, error)
	History(ctx context.Context, subjectID string, limit int) ([]domain.Snapshot, error)
	SearchPlayers(ctx context.Context, values url.Values) ([]domain.Player, error)
	SearchLevels(ctx context.Context, values url.Values) ([]domain.Level, error)
	DelegationKey(ctx context.Context) (domain.DelegationKeyInfo, error)
}

// PollRequester queues a poll for the consumer group instead of running it
// inline
type PollRequester interface {
	RequestPoll(ctx context.Context, watch, requestedBy string) error
}

// Check reports whether a dependency is usable
type Check func(ctx context.Context) error

// Handler provides HTTP handlers for the tracker API
type Handler struct {
	tracker     Tracker
	hub         *websocket.Hub
	requester   PollRequester
	metricsPath string
	metrics     http.Handler
	checks      map[string]Check
	logger      *slog.Logger
}

// Option customizes a Handler
type Option func(*Handler)

// WithPollRequester enables asynchronous polls (POST .../poll?async=true)
func WithPollRequester(r PollRequester) Option {
	return func(h *Handler) {
		h.requester = r
	}
}

// WithMetrics serves h at path
func WithMetrics(path string, handler http.Handler) Option {
	return func(h *Handler) {
		h.metricsPath = path
		h.metrics = handler
	}
}

// WithReadiness adds a named check to /ready
func WithReadiness(name string, check Check) Option {
	return func(h *Handler) {
		h.checks[name] = check
	}
}

// NewHandler creates a new HTTP handler
func NewHandler(tracker Tracker, hub *websocket.Hub, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		tracker: tracker,
		hub:     hub,
		checks:  make(map[string]Check),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
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
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	if h.metrics != nil {
		r.Handle(h.metricsPath, h.metrics)
	}

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/key", h.GetDelegationKey)

		// Live searches
		r.Get("/search/players", h.SearchPlayers)
		r.Get("/search/levels", h.SearchLevels)

		r.Route("/watches", func(r chi.Router) {
			r.Get("/", h.ListWatches)

			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", h.GetWatch)
				r.Post("/poll", h.PollWatch)
				r.Post("/reset", h.ResetWatch)
				r.Get("/stats", h.GetStats)
				r.Get("/top", h.GetTop)
				r.Get("/rank/{subjectID}", h.GetRank)
			})
		})

		r.Get("/subjects/{subjectID}/history", h.GetHistory)

		// WebSocket info endpoint
		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
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

// fail maps err to a status code and writes it. Unexpected errors are
// logged and reported as internal errors.
func (h *Handler) fail(w http.ResponseWriter, action string, err error) {
	var (
		limitErr     *domain.LimitError
		paramErr     *query.ParamError
		decodeErr    *domain.DecodeError
		transportErr *rumpus.TransportError
	)
	switch {
	case errors.As(err, &limitErr), errors.As(err, &paramErr), errors.Is(err, domain.ErrInvalidRequest):
		h.writeError(w, http.StatusBadRequest, err)
	case domain.IsNotFoundError(err):
		h.writeError(w, http.StatusNotFound, err)
	case errors.As(err, &transportErr), errors.As(err, &decodeErr), errors.Is(err, domain.ErrNoData):
		h.logger.Warn("upstream request failed", "action", action, "error", err)
		h.writeError(w, http.StatusBadGateway, err)
	default:
		h.logger.Error("failed to "+action, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
	}
}

// intParam reads a positive integer query parameter, 0 when absent
func intParam(r *http.Request, name string) int {
	if s := r.URL.Query().Get(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.tracker, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
		"subscriptions":     h.hub.Subscriptions(),
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck runs every readiness check
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.checks[name](r.Context()); err != nil {
			h.logger.Warn("readiness check failed", "check", name, "error", err)
			h.writeJSON(w, http.StatusServiceUnavailable, APIResponse{
				Success: false,
				Data:    map[string]string{"status": "not ready", "check": name},
				Error:   err.Error(),
			})
			return
		}
	}
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// GetDelegationKey describes the delegation key the tracker uses
func (h *Handler) GetDelegationKey(w http.ResponseWriter, r *http.Request) {
	info, err := h.tracker.DelegationKey(r.Context())
	if err != nil {
		h.fail(w, "get delegation key", err)
		return
	}
	h.writeSuccess(w, info)
}

// SearchPlayers runs a live player search with the request's query
// parameters
func (h *Handler) SearchPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.tracker.SearchPlayers(r.Context(), r.URL.Query())
	if err != nil {
		h.fail(w, "search players", err)
		return
	}
	h.writeSuccess(w, players)
}

// SearchLevels runs a live level search with the request's query parameters
func (h *Handler) SearchLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := h.tracker.SearchLevels(r.Context(), r.URL.Query())
	if err != nil {
		h.fail(w, "search levels", err)
		return
	}
	h.writeSuccess(w, levels)
}

// ListWatches returns all configured watches
func (h *Handler) ListWatches(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, h.tracker.Watches())
}

// GetWatch returns a watch by name
func (h *Handler) GetWatch(w http.ResponseWriter, r *http.Request) {
	watch, err := h.tracker.Watch(chi.URLParam(r, "name"))
	if err != nil {
		h.fail(w, "get watch", err)
		return
	}
	h.writeSuccess(w, watch)
}

// PollWatch polls a watch now. With async=true and Kafka enabled the poll
// is queued instead.
func (h *Handler) PollWatch(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		if h.requester == nil {
			h.writeError(w, http.StatusBadRequest, errors.New("asynchronous polls are not enabled"))
			return
		}
		if _, err := h.tracker.Watch(name); err != nil {
			h.fail(w, "request poll", err)
			return
		}
		if err := h.requester.RequestPoll(r.Context(), name, "http"); err != nil {
			h.fail(w, "request poll", err)
			return
		}
		h.writeJSON(w, http.StatusAccepted, APIResponse{
			Success: true,
			Data:    map[string]string{"status": "queued", "watch": name},
		})
		return
	}

	result, err := h.tracker.PollWatch(r.Context(), name)
	if err != nil {
		h.fail(w, "poll watch", err)
		return
	}
	h.writeSuccess(w, result)
}

// ResetWatch clears a watch's ranking
func (h *Handler) ResetWatch(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.ResetWatch(r.Context(), chi.URLParam(r, "name")); err != nil {
		h.fail(w, "reset watch", err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "reset"})
}

// GetStats returns statistics for a watch's ranking
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tracker.Stats(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.fail(w, "get stats", err)
		return
	}
	h.writeSuccess(w, stats)
}

// GetTop returns the top of a watch's ranking
func (h *Handler) GetTop(w http.ResponseWriter, r *http.Request) {
	entries, err := h.tracker.Top(r.Context(), chi.URLParam(r, "name"), intParam(r, "limit"))
	if err != nil {
		h.fail(w, "get top", err)
		return
	}
	h.writeSuccess(w, entries)
}

// GetRank returns a subject's rank and score
func (h *Handler) GetRank(w http.ResponseWriter, r *http.Request) {
	entry, err := h.tracker.Rank(r.Context(), chi.URLParam(r, "name"), chi.URLParam(r, "subjectID"))
	if err != nil {
		h.fail(w, "get rank", err)
		return
	}
	h.writeSuccess(w, entry)
}

// GetHistory returns a subject's recorded snapshots
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.tracker.History(r.Context(), chi.URLParam(r, "subjectID"), intParam(r, "limit"))
	if err != nil {
		h.fail(w, "get history", err)
		return
	}
	h.writeSuccess(w, snapshots)
}
