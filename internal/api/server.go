// Package api exposes the commitment tracker over HTTP: commitment listing
// and progress updates for the coaching frontend, notification preference
// management, insight generation, and operational endpoints.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/summitline/keel/internal/extractor"
	"github.com/summitline/keel/internal/store"
)

// CommitmentStore is the persistence surface the API serves from.
type CommitmentStore interface {
	ListOpenCommitments(ctx context.Context, owner store.Owner) ([]store.Commitment, error)
	GetCommitment(ctx context.Context, id uuid.UUID) (*store.Commitment, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, progress int, status store.Status, note string) (*store.Commitment, error)
	ListHistory(ctx context.Context, commitmentID uuid.UUID) ([]store.ProgressEntry, error)
	GetPreferences(ctx context.Context, ownerID uuid.UUID) (store.Preferences, error)
	SetPreferences(ctx context.Context, ownerID uuid.UUID, p store.Preferences) error
}

// ReminderRunner triggers an immediate reminder pass.
type ReminderRunner interface {
	Run(ctx context.Context) error
}

// Insights generates behavioral analysis from transcripts.
type Insights interface {
	AnalyzePatterns(ctx context.Context, transcripts []string) ([]extractor.BehavioralPattern, error)
	SummarizeSession(ctx context.Context, msgs []extractor.ConversationMessage) (*extractor.SessionInsight, error)
}

type Server struct {
	router   *chi.Mux
	port     int
	store    CommitmentStore
	reminder ReminderRunner
	insights Insights
	logger   *slog.Logger
}

func NewServer(port int, apiToken string, st CommitmentStore, rem ReminderRunner, ins Insights, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		store:    st,
		reminder: rem,
		insights: ins,
		logger:   logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/status", s.status)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Get("/commitments", s.listCommitments)
		r.Get("/commitments/{id}", s.getCommitment)
		r.Patch("/commitments/{id}/progress", s.updateProgress)
		r.Get("/commitments/{id}/history", s.listHistory)
		r.Get("/preferences/{ownerID}", s.getPreferences)
		r.Put("/preferences/{ownerID}", s.setPreferences)
		r.Post("/reminders/run", s.runReminders)
		r.Post("/insights/patterns", s.analyzePatterns)
		r.Post("/insights/session", s.summarizeSession)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// BearerAuthMiddleware rejects requests without the configured bearer token.
// An empty token disables auth, for local development.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got != token {
				writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "keel",
		"status":  "running",
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
