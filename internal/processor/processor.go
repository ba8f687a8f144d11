// Package processor drives the extraction pipeline: it consumes stored
// coaching sessions off the bus, runs commitment extraction, resolves
// deadlines, and persists the results.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/summitline/keel/internal/bus"
	"github.com/summitline/keel/internal/dates"
	"github.com/summitline/keel/internal/extractor"
	"github.com/summitline/keel/internal/metrics"
	"github.com/summitline/keel/internal/store"
)

// handleTimeout bounds one full session: the LLM call plus persistence.
const handleTimeout = 60 * time.Second

// Extractor produces commitments from a conversation transcript.
type Extractor interface {
	Extract(ctx context.Context, msgs []extractor.ConversationMessage) ([]extractor.ExtractedCommitment, error)
}

// Store persists extracted commitments.
type Store interface {
	InsertCommitment(ctx context.Context, nc store.NewCommitment) (uuid.UUID, bool, error)
}

// Publisher emits lifecycle events; it may be nil when NATS is not configured.
type Publisher interface {
	Publish(subject string, data any) error
}

// SessionEvent is the payload of a coach.session.stored message. Exactly one
// of OwnerID and GuestCode identifies the session owner.
type SessionEvent struct {
	SessionID string                          `json:"session_id"`
	OwnerID   string                          `json:"owner_id,omitempty"`
	GuestCode string                          `json:"guest_code,omitempty"`
	Messages  []extractor.ConversationMessage `json:"messages"`
}

type Processor struct {
	extractor Extractor
	store     Store
	bus       Publisher
	logger    *slog.Logger
	seen      *gocache.Cache
	now       func() time.Time
}

func New(ext Extractor, st Store, pub Publisher, logger *slog.Logger) *Processor {
	return &Processor{
		extractor: ext,
		store:     st,
		bus:       pub,
		logger:    logger,
		seen:      gocache.New(24*time.Hour, time.Hour),
		now:       time.Now,
	}
}

// SetClock overrides the processor's clock for tests.
func (p *Processor) SetClock(now func() time.Time) {
	p.now = now
}

// HandleSessionStored is the bus handler for stored sessions. It never
// returns an error: the bus delivery is fire-and-forget, so failures are
// logged and the message dropped rather than crashing the subscription.
func (p *Processor) HandleSessionStored(subject string, data []byte) {
	var event SessionEvent
	if err := json.Unmarshal(data, &event); err != nil {
		p.logger.Error("malformed session event", "subject", subject, "error", err)
		return
	}

	if event.SessionID != "" {
		if _, dup := p.seen.Get(event.SessionID); dup {
			p.logger.Debug("session already processed", "session_id", event.SessionID)
			return
		}
		p.seen.SetDefault(event.SessionID, struct{}{})
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	if err := p.ProcessSession(ctx, event); err != nil {
		p.logger.Error("session processing failed",
			"session_id", event.SessionID,
			"error", err,
		)
	}
}

// ProcessSession extracts commitments from one session and persists them.
// Per-commitment failures are logged and skipped so one bad row does not
// discard the rest of the batch.
func (p *Processor) ProcessSession(ctx context.Context, event SessionEvent) error {
	owner, err := parseOwner(event.OwnerID, event.GuestCode)
	if err != nil {
		return err
	}

	extracted, err := p.extractor.Extract(ctx, event.Messages)
	if err != nil {
		return fmt.Errorf("extract commitments: %w", err)
	}

	metrics.SessionsProcessed.Inc()
	metrics.CommitmentsExtracted.Add(float64(len(extracted)))
	if len(extracted) == 0 {
		p.logger.Info("no commitments in session", "session_id", event.SessionID)
		return nil
	}

	now := p.now()
	inserted, duplicates := 0, 0
	for _, c := range extracted {
		nc := store.NewCommitment{
			Owner:            owner,
			Description:      strings.TrimSpace(c.Description),
			Priority:         c.Priority,
			Category:         c.Category,
			SourceSessionRef: event.SessionID,
		}
		if deadline, ok := dates.Parse(c.DueDate, now); ok {
			nc.Deadline = &deadline
		}

		id, created, err := p.store.InsertCommitment(ctx, nc)
		if err != nil {
			p.logger.Error("failed to persist commitment",
				"session_id", event.SessionID,
				"description", nc.Description,
				"error", err,
			)
			continue
		}
		if !created {
			duplicates++
			metrics.CommitmentsDeduplicated.Inc()
			continue
		}
		inserted++
		metrics.CommitmentsInserted.Inc()

		if p.bus != nil {
			if err := p.bus.Publish(bus.SubjectCommitmentCreated, map[string]any{
				"commitment_id": id.String(),
				"session_id":    event.SessionID,
				"description":   nc.Description,
			}); err != nil {
				p.logger.Warn("failed to publish commitment event", "error", err)
			}
		}
	}

	p.logger.Info("session processed",
		"session_id", event.SessionID,
		"extracted", len(extracted),
		"inserted", inserted,
		"duplicates", duplicates,
	)
	return nil
}

func parseOwner(ownerID, guestCode string) (store.Owner, error) {
	if ownerID != "" {
		id, err := uuid.Parse(ownerID)
		if err != nil {
			return store.Owner{}, fmt.Errorf("invalid owner id %q: %w", ownerID, err)
		}
		return store.UserOwner(id), nil
	}
	if guestCode != "" {
		return store.GuestOwner(guestCode), nil
	}
	return store.Owner{}, fmt.Errorf("session event carries neither owner id nor guest code")
}
