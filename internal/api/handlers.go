package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/summitline/keel/internal/extractor"
	"github.com/summitline/keel/internal/store"
)

// ownerFromQuery resolves the owner_id or guest_code query parameter.
func ownerFromQuery(r *http.Request) (store.Owner, error) {
	if raw := r.URL.Query().Get("owner_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return store.Owner{}, fmt.Errorf("invalid owner_id %q", raw)
		}
		return store.UserOwner(id), nil
	}
	if code := r.URL.Query().Get("guest_code"); code != "" {
		return store.GuestOwner(code), nil
	}
	return store.Owner{}, errors.New("owner_id or guest_code is required")
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", param)
	}
	return id, nil
}

// listCommitments handles GET /api/v1/commitments.
func (s *Server) listCommitments(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	commitments, err := s.store.ListOpenCommitments(r.Context(), owner)
	if err != nil {
		s.logger.Error("failed to list commitments", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list commitments")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"commitments": commitments,
		"count":       len(commitments),
	})
}

// getCommitment handles GET /api/v1/commitments/{id}.
func (s *Server) getCommitment(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := s.store.GetCommitment(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "commitment not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load commitment", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load commitment")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ProgressRequest is the payload for PATCH /api/v1/commitments/{id}/progress.
type ProgressRequest struct {
	Progress int    `json:"progress"`
	Status   string `json:"status"`
	Note     string `json:"note,omitempty"`
}

// updateProgress handles PATCH /api/v1/commitments/{id}/progress.
func (s *Server) updateProgress(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req ProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	status, err := store.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := s.store.UpdateProgress(r.Context(), id, req.Progress, status, req.Note)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "commitment not found")
		return
	case errors.Is(err, store.ErrInvalidProgress), errors.Is(err, store.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Error("failed to update progress", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update progress")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// listHistory handles GET /api/v1/commitments/{id}/history.
func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := s.store.ListHistory(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to load history", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"history": entries,
		"count":   len(entries),
	})
}

// getPreferences handles GET /api/v1/preferences/{ownerID}.
func (s *Server) getPreferences(w http.ResponseWriter, r *http.Request) {
	ownerID, err := pathUUID(r, "ownerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	prefs, err := s.store.GetPreferences(r.Context(), ownerID)
	if err != nil {
		s.logger.Error("failed to load preferences", "owner_id", ownerID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// setPreferences handles PUT /api/v1/preferences/{ownerID}. The body may be
// partial; toggles it omits keep their stored value.
func (s *Server) setPreferences(w http.ResponseWriter, r *http.Request) {
	ownerID, err := pathUUID(r, "ownerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	prefs, err := s.store.GetPreferences(r.Context(), ownerID)
	if err != nil {
		s.logger.Error("failed to load preferences", "owner_id", ownerID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.store.SetPreferences(r.Context(), ownerID, prefs); err != nil {
		s.logger.Error("failed to save preferences", "owner_id", ownerID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// runReminders handles POST /api/v1/reminders/run. It triggers a pass
// synchronously so callers see the result.
func (s *Server) runReminders(w http.ResponseWriter, r *http.Request) {
	if err := s.reminder.Run(r.Context()); err != nil {
		s.logger.Error("manual reminder run failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reminder run failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

// PatternsRequest is the payload for POST /api/v1/insights/patterns.
type PatternsRequest struct {
	Transcripts []string `json:"transcripts"`
}

// analyzePatterns handles POST /api/v1/insights/patterns.
func (s *Server) analyzePatterns(w http.ResponseWriter, r *http.Request) {
	var req PatternsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Transcripts) == 0 {
		writeError(w, http.StatusBadRequest, "at least one transcript is required")
		return
	}

	patterns, err := s.insights.AnalyzePatterns(r.Context(), req.Transcripts)
	if err != nil {
		s.logger.Error("pattern analysis failed", "error", err)
		writeError(w, http.StatusBadGateway, "pattern analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"patterns": patterns,
		"count":    len(patterns),
	})
}

// SessionInsightRequest is the payload for POST /api/v1/insights/session.
type SessionInsightRequest struct {
	Messages []extractor.ConversationMessage `json:"messages"`
}

// summarizeSession handles POST /api/v1/insights/session.
func (s *Server) summarizeSession(w http.ResponseWriter, r *http.Request) {
	var req SessionInsightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required")
		return
	}

	insight, err := s.insights.SummarizeSession(r.Context(), req.Messages)
	if err != nil {
		s.logger.Error("session summary failed", "error", err)
		writeError(w, http.StatusBadGateway, "session summary failed")
		return
	}
	if insight == nil {
		writeError(w, http.StatusBadGateway, "model returned no usable summary")
		return
	}
	writeJSON(w, http.StatusOK, insight)
}
