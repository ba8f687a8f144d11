package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/summitline/keel/internal/bus"
	"github.com/summitline/keel/internal/mailer"
	"github.com/summitline/keel/internal/metrics"
	"github.com/summitline/keel/internal/store"
)

// Category distinguishes the three email kinds; a recipient gets at most one
// email per category per run.
type Category string

const (
	CategoryUpcoming Category = "upcoming"
	CategoryOverdue  Category = "overdue"
	CategoryCheckIn  Category = "check_in"
)

// Store is the persistence surface the scheduler needs.
type Store interface {
	DueCommitments(ctx context.Context) ([]store.DueCommitment, error)
	CheckInCandidates(ctx context.Context, createdAfter, createdBefore time.Time) ([]store.DueCommitment, error)
	MarkReminderSent(ctx context.Context, ids []uuid.UUID, at time.Time) error
	MarkCheckInSent(ctx context.Context, ids []uuid.UUID) error
}

// Sender is the email delivery capability.
type Sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Publisher emits lifecycle events; it may be nil when NATS is not configured.
type Publisher interface {
	Publish(subject string, data any) error
}

type Scheduler struct {
	store       Store
	mail        Sender
	bus         Publisher
	logger      *slog.Logger
	checkInDays int
	cron        *cron.Cron
	running     atomic.Bool
	now         func() time.Time
}

func New(st Store, mail Sender, pub Publisher, checkInDays int, logger *slog.Logger) *Scheduler {
	if checkInDays <= 0 {
		checkInDays = 3
	}
	return &Scheduler{
		store:       st,
		mail:        mail,
		bus:         pub,
		logger:      logger,
		checkInDays: checkInDays,
		now:         time.Now,
	}
}

// SetClock overrides the scheduler's clock for tests.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Start runs one pass immediately, then repeats on the given cron spec for
// the lifetime of the process.
func (s *Scheduler) Start(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if err := s.Run(context.Background()); err != nil {
			s.logger.Error("reminder run failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule reminder job: %w", err)
	}

	go func() {
		if err := s.Run(context.Background()); err != nil {
			s.logger.Error("initial reminder run failed", "error", err)
		}
	}()

	c.Start()
	s.cron = c
	s.logger.Info("reminder scheduler started", "spec", spec, "check_in_days", s.checkInDays)
	return nil
}

// Stop halts the cron loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Run executes a single scheduler pass. A pass still in flight when the next
// tick arrives is not overlapped; the late tick is skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous reminder run still active, skipping")
		return nil
	}
	defer s.running.Store(false)

	now := s.now()

	due, err := s.store.DueCommitments(ctx)
	if err != nil {
		return fmt.Errorf("load due commitments: %w", err)
	}

	upcoming := make(map[string]*batch)
	overdue := make(map[string]*batch)
	for _, d := range due {
		if d.Deadline == nil || !d.Prefs.Enabled {
			continue
		}
		if d.Deadline.Before(now) {
			if d.Prefs.Overdue && OverdueEligible(*d.Deadline, d.LastReminderSent, now) {
				addToBatch(overdue, d)
			}
			continue
		}
		if !d.Prefs.Upcoming {
			continue
		}
		if _, ok := UpcomingWindow(*d.Deadline, d.LastReminderSent, now); ok {
			addToBatch(upcoming, d)
		}
	}

	sent := 0
	sent += s.dispatch(ctx, upcoming, CategoryUpcoming, now)
	sent += s.dispatch(ctx, overdue, CategoryOverdue, now)

	after, before := CheckInWindow(now, s.checkInDays)
	candidates, err := s.store.CheckInCandidates(ctx, after, before)
	if err != nil {
		// Deadline reminders already went out; surface the partial failure.
		return fmt.Errorf("load check-in candidates: %w", err)
	}

	checkIns := make(map[string]*batch)
	for _, d := range candidates {
		if d.CheckInEmailSent || d.Status != store.StatusPending {
			continue
		}
		if !d.Prefs.Enabled || !d.Prefs.CheckIn {
			continue
		}
		addToBatch(checkIns, d)
	}
	sent += s.dispatch(ctx, checkIns, CategoryCheckIn, now)

	metrics.ReminderRuns.Inc()
	s.logger.Info("reminder run complete",
		"due", len(due),
		"check_in_candidates", len(candidates),
		"emails_sent", sent,
	)
	return nil
}

// batch collects one recipient's qualifying commitments for one category.
type batch struct {
	name  string
	items []mailer.CommitmentSummary
	ids   []uuid.UUID
}

func addToBatch(m map[string]*batch, d store.DueCommitment) {
	b, ok := m[d.Email]
	if !ok {
		b = &batch{name: d.Name}
		m[d.Email] = b
	}
	b.items = append(b.items, mailer.CommitmentSummary{
		Description: d.Description,
		Deadline:    d.Deadline,
		Progress:    d.Progress,
	})
	b.ids = append(b.ids, d.ID)
}

// dispatch sends one email per recipient and updates idempotency markers only
// for commitments whose email actually went out. Failures are logged and the
// affected recipient is retried on the next run.
func (s *Scheduler) dispatch(ctx context.Context, batches map[string]*batch, category Category, now time.Time) int {
	sent := 0
	for email, b := range batches {
		var msg mailer.Message
		switch category {
		case CategoryUpcoming:
			msg = mailer.UpcomingEmail(b.name, b.items, now)
		case CategoryOverdue:
			msg = mailer.OverdueEmail(b.name, b.items, now)
		case CategoryCheckIn:
			msg = mailer.CheckInEmail(b.name, b.items)
		}
		msg.To = email
		msg.ToName = b.name

		if err := s.mail.Send(ctx, msg); err != nil {
			metrics.EmailFailures.WithLabelValues(string(category)).Inc()
			s.logger.Error("reminder email failed",
				"category", string(category),
				"recipient", email,
				"commitments", len(b.items),
				"error", err,
			)
			continue
		}
		sent++
		metrics.EmailsSent.WithLabelValues(string(category)).Inc()

		var markErr error
		if category == CategoryCheckIn {
			markErr = s.store.MarkCheckInSent(ctx, b.ids)
		} else {
			markErr = s.store.MarkReminderSent(ctx, b.ids, now)
		}
		if markErr != nil {
			// The email went out; a marker failure risks a duplicate next
			// run, which beats silently dropping reminders.
			s.logger.Error("failed to record notification marker",
				"category", string(category),
				"recipient", email,
				"error", markErr,
			)
		}

		if s.bus != nil {
			if err := s.bus.Publish(bus.SubjectReminderSent, map[string]any{
				"category":    string(category),
				"recipient":   email,
				"commitments": len(b.items),
				"sent_at":     now.UTC().Format(time.RFC3339),
			}); err != nil {
				s.logger.Warn("failed to publish reminder event", "error", err)
			}
		}
	}
	return sent
}
