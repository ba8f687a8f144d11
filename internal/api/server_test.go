package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/summitline/keel/internal/extractor"
	"github.com/summitline/keel/internal/store"
)

type fakeCommitmentStore struct {
	commitments []store.Commitment
	byID        map[uuid.UUID]*store.Commitment
	history     []store.ProgressEntry
	prefs       store.Preferences
	savedPrefs  *store.Preferences

	updateErr error
	listErr   error
}

func (f *fakeCommitmentStore) ListOpenCommitments(ctx context.Context, owner store.Owner) ([]store.Commitment, error) {
	return f.commitments, f.listErr
}

func (f *fakeCommitmentStore) GetCommitment(ctx context.Context, id uuid.UUID) (*store.Commitment, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeCommitmentStore) UpdateProgress(ctx context.Context, id uuid.UUID, progress int, status store.Status, note string) (*store.Commitment, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	c, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c.Progress = progress
	c.Status = status
	return c, nil
}

func (f *fakeCommitmentStore) ListHistory(ctx context.Context, commitmentID uuid.UUID) ([]store.ProgressEntry, error) {
	return f.history, nil
}

func (f *fakeCommitmentStore) GetPreferences(ctx context.Context, ownerID uuid.UUID) (store.Preferences, error) {
	return f.prefs, nil
}

func (f *fakeCommitmentStore) SetPreferences(ctx context.Context, ownerID uuid.UUID, p store.Preferences) error {
	f.savedPrefs = &p
	return nil
}

type fakeRunner struct {
	runs int
	err  error
}

func (f *fakeRunner) Run(ctx context.Context) error {
	f.runs++
	return f.err
}

type fakeInsights struct {
	patterns []extractor.BehavioralPattern
	insight  *extractor.SessionInsight
	err      error
}

func (f *fakeInsights) AnalyzePatterns(ctx context.Context, transcripts []string) ([]extractor.BehavioralPattern, error) {
	return f.patterns, f.err
}

func (f *fakeInsights) SummarizeSession(ctx context.Context, msgs []extractor.ConversationMessage) (*extractor.SessionInsight, error) {
	return f.insight, f.err
}

const testToken = "test-token"

func newTestServer(st *fakeCommitmentStore, rem *fakeRunner, ins *fakeInsights) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(8640, testToken, st, rem, ins, logger)
}

func doRequest(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func sampleCommitment() store.Commitment {
	deadline := time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC)
	return store.Commitment{
		ID:          uuid.New(),
		Description: "Email the board",
		Deadline:    &deadline,
		Status:      store.StatusPending,
		Priority:    "high",
		Category:    "communication",
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&fakeCommitmentStore{}, &fakeRunner{}, &fakeInsights{})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestBearerAuthRequired(t *testing.T) {
	srv := newTestServer(&fakeCommitmentStore{}, &fakeRunner{}, &fakeInsights{})

	req := httptest.NewRequest("GET", "/api/v1/commitments?guest_code=g1", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", w.Code)
	}
}

func TestListCommitments(t *testing.T) {
	st := &fakeCommitmentStore{commitments: []store.Commitment{sampleCommitment()}}
	srv := newTestServer(st, &fakeRunner{}, &fakeInsights{})

	w := doRequest(srv, "GET", "/api/v1/commitments?guest_code=g1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Count != 1 {
		t.Errorf("count = %d, want 1", body.Count)
	}
}

func TestListCommitmentsRequiresOwner(t *testing.T) {
	srv := newTestServer(&fakeCommitmentStore{}, &fakeRunner{}, &fakeInsights{})

	w := doRequest(srv, "GET", "/api/v1/commitments", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without owner, got %d", w.Code)
	}

	w = doRequest(srv, "GET", "/api/v1/commitments?owner_id=not-a-uuid", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad owner_id, got %d", w.Code)
	}
}

func TestUpdateProgress(t *testing.T) {
	c := sampleCommitment()
	st := &fakeCommitmentStore{byID: map[uuid.UUID]*store.Commitment{c.ID: &c}}
	srv := newTestServer(st, &fakeRunner{}, &fakeInsights{})

	w := doRequest(srv, "PATCH", "/api/v1/commitments/"+c.ID.String()+"/progress",
		`{"progress":60,"status":"in_progress","note":"halfway"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var got store.Commitment
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Progress != 60 || got.Status != store.StatusInProgress {
		t.Errorf("commitment = progress %d status %s", got.Progress, got.Status)
	}
}

func TestUpdateProgressErrors(t *testing.T) {
	c := sampleCommitment()
	st := &fakeCommitmentStore{byID: map[uuid.UUID]*store.Commitment{c.ID: &c}}
	srv := newTestServer(st, &fakeRunner{}, &fakeInsights{})

	tests := []struct {
		name     string
		id       string
		body     string
		storeErr error
		wantCode int
	}{
		{"unknown id", uuid.NewString(), `{"progress":10,"status":"pending"}`, nil, http.StatusNotFound},
		{"bad status", c.ID.String(), `{"progress":10,"status":"done"}`, nil, http.StatusBadRequest},
		{"bad progress", c.ID.String(), `{"progress":150,"status":"pending"}`, store.ErrInvalidProgress, http.StatusBadRequest},
		{"bad json", c.ID.String(), `{`, nil, http.StatusBadRequest},
		{"bad uuid", "nope", `{"progress":10,"status":"pending"}`, nil, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st.updateErr = tc.storeErr
			w := doRequest(srv, "PATCH", "/api/v1/commitments/"+tc.id+"/progress", tc.body)
			if w.Code != tc.wantCode {
				t.Errorf("code = %d, want %d", w.Code, tc.wantCode)
			}
		})
	}
}

func TestListHistory(t *testing.T) {
	st := &fakeCommitmentStore{history: []store.ProgressEntry{
		{ID: uuid.New(), NewProgress: 40, NewStatus: store.StatusInProgress},
	}}
	srv := newTestServer(st, &fakeRunner{}, &fakeInsights{})

	w := doRequest(srv, "GET", "/api/v1/commitments/"+uuid.NewString()+"/history", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	st := &fakeCommitmentStore{prefs: store.Preferences{Enabled: true, Upcoming: true, Overdue: true, CheckIn: true}}
	srv := newTestServer(st, &fakeRunner{}, &fakeInsights{})
	ownerID := uuid.NewString()

	w := doRequest(srv, "GET", "/api/v1/preferences/"+ownerID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET prefs: expected 200, got %d", w.Code)
	}

	w = doRequest(srv, "PUT", "/api/v1/preferences/"+ownerID,
		`{"emails_enabled":true,"upcoming_reminders":false,"overdue_reminders":true,"check_in_emails":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT prefs: expected 200, got %d", w.Code)
	}
	if st.savedPrefs == nil || st.savedPrefs.Upcoming || !st.savedPrefs.Overdue {
		t.Errorf("saved prefs = %+v", st.savedPrefs)
	}
}

func TestSetPreferencesPartialBodyKeepsStoredToggles(t *testing.T) {
	st := &fakeCommitmentStore{prefs: store.Preferences{Enabled: true, Upcoming: true, Overdue: true, CheckIn: true}}
	srv := newTestServer(st, &fakeRunner{}, &fakeInsights{})

	w := doRequest(srv, "PUT", "/api/v1/preferences/"+uuid.NewString(),
		`{"upcoming_reminders":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if st.savedPrefs == nil {
		t.Fatal("preferences not saved")
	}
	if st.savedPrefs.Upcoming {
		t.Error("upcoming toggle not cleared")
	}
	if !st.savedPrefs.Enabled || !st.savedPrefs.Overdue || !st.savedPrefs.CheckIn {
		t.Errorf("omitted toggles were zeroed: %+v", st.savedPrefs)
	}
}

func TestRunReminders(t *testing.T) {
	rem := &fakeRunner{}
	srv := newTestServer(&fakeCommitmentStore{}, rem, &fakeInsights{})

	w := doRequest(srv, "POST", "/api/v1/reminders/run", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if rem.runs != 1 {
		t.Errorf("runner invoked %d times, want 1", rem.runs)
	}

	rem.err = errors.New("database unavailable")
	w = doRequest(srv, "POST", "/api/v1/reminders/run", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 on runner failure, got %d", w.Code)
	}
}

func TestAnalyzePatterns(t *testing.T) {
	ins := &fakeInsights{patterns: []extractor.BehavioralPattern{
		{Pattern: "deflects accountability questions", Frequency: 3},
	}}
	srv := newTestServer(&fakeCommitmentStore{}, &fakeRunner{}, ins)

	w := doRequest(srv, "POST", "/api/v1/insights/patterns", `{"transcripts":["Coach: ..."]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(srv, "POST", "/api/v1/insights/patterns", `{"transcripts":[]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty transcripts, got %d", w.Code)
	}

	ins.err = errors.New("api timeout")
	w = doRequest(srv, "POST", "/api/v1/insights/patterns", `{"transcripts":["Coach: ..."]}`)
	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502 on upstream failure, got %d", w.Code)
	}
}

func TestSummarizeSession(t *testing.T) {
	ins := &fakeInsights{insight: &extractor.SessionInsight{Summary: "Focused on delegation."}}
	srv := newTestServer(&fakeCommitmentStore{}, &fakeRunner{}, ins)

	w := doRequest(srv, "POST", "/api/v1/insights/session",
		`{"messages":[{"role":"user","text":"I keep doing everything myself."}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	ins.insight = nil
	w = doRequest(srv, "POST", "/api/v1/insights/session",
		`{"messages":[{"role":"user","text":"hi"}]}`)
	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502 when no summary is produced, got %d", w.Code)
	}
}
