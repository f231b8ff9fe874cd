// Package api provides the HTTP server for greencred.
// It exposes the ledger, catalog and engagement reads as JSON, plus a live
// Server-Sent Events feed of ledger events.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/greencred/greencred/internal/app/auth"
	"github.com/greencred/greencred/internal/app/engagement"
	"github.com/greencred/greencred/internal/app/ledger"
	"github.com/greencred/greencred/internal/app/verifier"
	"github.com/greencred/greencred/internal/domain"
	"github.com/greencred/greencred/internal/infra/catalog"
	"github.com/greencred/greencred/internal/infra/observability"
)

// DefaultMaxUpload caps proof uploads.
const DefaultMaxUpload = 32 << 20

// StatsSource reports verifier counters.
type StatsSource interface {
	Stats() verifier.Stats
}

// Server is the greencred HTTP API server.
type Server struct {
	ledger         *ledger.Ledger
	catalog        *catalog.Catalog
	gate           *auth.Gate
	hub            *EventHub
	recorder       *observability.Recorder
	verifier       StatsSource
	logger         *slog.Logger
	metricsEnabled bool
	weeklyGoal     int
	maxUpload      int64
	timeout        time.Duration
	now            func() time.Time
}

// NewServer creates a new API server.
func NewServer(l *ledger.Ledger, cat *catalog.Catalog, gate *auth.Gate) *Server {
	if gate == nil {
		gate = auth.NewGate()
	}
	return &Server{
		ledger:     l,
		catalog:    cat,
		gate:       gate,
		logger:     slog.Default().With("component", "api"),
		weeklyGoal: engagement.DefaultWeeklyGoal,
		maxUpload:  DefaultMaxUpload,
		timeout:    30 * time.Second,
		now:        time.Now,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHub sets the live event hub.
func (s *Server) SetHub(h *EventHub) { s.hub = h }

// SetRecorder sets the metrics recorder for refused redemptions.
func (s *Server) SetRecorder(r *observability.Recorder) { s.recorder = r }

// SetVerifier exposes scheduler counters at /api/verification/stats.
func (s *Server) SetVerifier(v StatsSource) { s.verifier = v }

// SetLogger sets the request logger.
func (s *Server) SetLogger(l *slog.Logger) { s.logger = l.With("component", "api") }

// SetWeeklyGoal sets the profile's weekly token target.
func (s *Server) SetWeeklyGoal(n int) { s.weeklyGoal = n }

// SetMaxUpload caps multipart proof uploads in bytes.
func (s *Server) SetMaxUpload(n int64) { s.maxUpload = n }

// SetTimeout sets the per-request deadline for non-streaming routes.
func (s *Server) SetTimeout(d time.Duration) { s.timeout = d }

// SetClock injects a clock for testing.
func (s *Server) SetClock(now func() time.Time) { s.now = now }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)
	r.Use(s.instrument)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.timeout))

		r.Route("/api", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)

			r.Get("/ledger", s.handleLedger)
			r.Get("/actions", s.handleListActions)
			r.Post("/actions", s.handleSubmitAction)
			r.Get("/actions/{id}", s.handleGetAction)

			r.Get("/catalog/actions", s.handleCatalogActions)
			r.Get("/rewards", s.handleListRewards)
			r.Post("/rewards/{id}/redeem", s.handleRedeem)

			r.Get("/summary", s.handleSummary)
			r.Get("/achievements", s.handleAchievements)
			r.Get("/verification/stats", s.handleVerificationStats)
		})
	})

	// The live feed is long-lived and sits outside the request timeout.
	if s.hub != nil {
		r.Get("/api/events/live", s.hub.HandleSSE)
	}

	return r
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAction),
		errors.Is(err, domain.ErrInvalidTokenValue),
		errors.Is(err, domain.ErrUnknownCategory),
		errors.Is(err, domain.ErrInvalidCost):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownActivity),
		errors.Is(err, domain.ErrTokenMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrAlreadyRedeemed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrUnknownReward),
		errors.Is(err, domain.ErrActionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// writeDomainError writes err with the status it maps to.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}
