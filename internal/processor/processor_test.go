package processor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/summitline/keel/internal/extractor"
	"github.com/summitline/keel/internal/store"
)

var wednesday = time.Date(2026, 9, 2, 14, 30, 0, 0, time.UTC)

type fakeExtractor struct {
	result []extractor.ExtractedCommitment
	err    error
	calls  int
}

func (f *fakeExtractor) Extract(ctx context.Context, msgs []extractor.ConversationMessage) ([]extractor.ExtractedCommitment, error) {
	f.calls++
	return f.result, f.err
}

type fakeStore struct {
	inserted  []store.NewCommitment
	duplicate bool
	err       error
}

func (f *fakeStore) InsertCommitment(ctx context.Context, nc store.NewCommitment) (uuid.UUID, bool, error) {
	if f.err != nil {
		return uuid.Nil, false, f.err
	}
	f.inserted = append(f.inserted, nc)
	if f.duplicate {
		return uuid.Nil, false, nil
	}
	return uuid.New(), true, nil
}

type fakePublisher struct {
	subjects []string
}

func (f *fakePublisher) Publish(subject string, data any) error {
	f.subjects = append(f.subjects, subject)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEvent() SessionEvent {
	return SessionEvent{
		SessionID: "sess-42",
		OwnerID:   uuid.NewString(),
		Messages: []extractor.ConversationMessage{
			{Role: "user", Text: "I will email the board by Friday."},
		},
	}
}

func newTestProcessor(ext Extractor, st Store, pub Publisher) *Processor {
	p := New(ext, st, pub, discardLogger())
	p.SetClock(func() time.Time { return wednesday })
	return p
}

func TestProcessSessionPersistsAndPublishes(t *testing.T) {
	ext := &fakeExtractor{result: []extractor.ExtractedCommitment{
		{Description: "Email the board", DueDate: "friday", Priority: "high", Category: "communication"},
		{Description: "Sketch Q4 plan", DueDate: "N/A", Priority: "low", Category: "planning"},
	}}
	st := &fakeStore{}
	pub := &fakePublisher{}

	if err := newTestProcessor(ext, st, pub).ProcessSession(context.Background(), testEvent()); err != nil {
		t.Fatalf("ProcessSession: %v", err)
	}

	if len(st.inserted) != 2 {
		t.Fatalf("inserted %d commitments, want 2", len(st.inserted))
	}
	first := st.inserted[0]
	if first.Deadline == nil {
		t.Fatal("friday deadline not resolved")
	}
	if got := first.Deadline.Weekday(); got != time.Friday {
		t.Errorf("deadline weekday = %v, want Friday", got)
	}
	if first.SourceSessionRef != "sess-42" {
		t.Errorf("source ref = %q", first.SourceSessionRef)
	}
	if st.inserted[1].Deadline != nil {
		t.Error("unresolvable due date produced a deadline")
	}
	if len(pub.subjects) != 2 {
		t.Errorf("published %d events, want one per inserted commitment", len(pub.subjects))
	}
}

func TestProcessSessionCountsDuplicates(t *testing.T) {
	ext := &fakeExtractor{result: []extractor.ExtractedCommitment{
		{Description: "Email the board", Priority: "medium", Category: "communication"},
	}}
	st := &fakeStore{duplicate: true}
	pub := &fakePublisher{}

	if err := newTestProcessor(ext, st, pub).ProcessSession(context.Background(), testEvent()); err != nil {
		t.Fatalf("ProcessSession: %v", err)
	}
	if len(pub.subjects) != 0 {
		t.Error("published a created event for a deduplicated commitment")
	}
}

func TestProcessSessionGuestOwner(t *testing.T) {
	ext := &fakeExtractor{result: []extractor.ExtractedCommitment{
		{Description: "Email the board", Priority: "medium", Category: "communication"},
	}}
	st := &fakeStore{}

	event := testEvent()
	event.OwnerID = ""
	event.GuestCode = "guest-7f3a"

	if err := newTestProcessor(ext, st, nil).ProcessSession(context.Background(), event); err != nil {
		t.Fatalf("ProcessSession: %v", err)
	}
	if got := st.inserted[0].Owner.GuestCode; got != "guest-7f3a" {
		t.Errorf("guest code = %q", got)
	}
}

func TestProcessSessionRejectsMissingOwner(t *testing.T) {
	event := testEvent()
	event.OwnerID = ""

	err := newTestProcessor(&fakeExtractor{}, &fakeStore{}, nil).ProcessSession(context.Background(), event)
	if err == nil {
		t.Fatal("expected error for event without an owner")
	}
}

func TestProcessSessionPropagatesExtractError(t *testing.T) {
	ext := &fakeExtractor{err: errors.New("api quota exceeded")}

	err := newTestProcessor(ext, &fakeStore{}, nil).ProcessSession(context.Background(), testEvent())
	if err == nil {
		t.Fatal("expected extraction error to propagate")
	}
}

func TestHandleSessionStoredSkipsDuplicateDeliveries(t *testing.T) {
	ext := &fakeExtractor{}
	p := newTestProcessor(ext, &fakeStore{}, nil)

	payload := []byte(`{"session_id":"sess-42","owner_id":"` + uuid.NewString() + `","messages":[{"role":"user","text":"hi"}]}`)
	p.HandleSessionStored("coach.session.stored", payload)
	p.HandleSessionStored("coach.session.stored", payload)

	if ext.calls != 1 {
		t.Errorf("extractor called %d times for a redelivered session, want 1", ext.calls)
	}
}

func TestHandleSessionStoredToleratesMalformedPayload(t *testing.T) {
	p := newTestProcessor(&fakeExtractor{}, &fakeStore{}, nil)
	p.HandleSessionStored("coach.session.stored", []byte("not json"))
}
