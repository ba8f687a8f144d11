package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the canonical commitment lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusMissed     Status = "missed"
	StatusAbandoned  Status = "abandoned"
)

// ParseStatus validates a caller-supplied status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusCompleted, StatusMissed, StatusAbandoned:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// normalizeStatus maps legacy vocabulary still present in older rows onto the
// canonical set. Applied at the scan boundary only; new writes always use
// canonical values.
func normalizeStatus(s string) Status {
	switch s {
	case "open":
		return StatusPending
	case "closed":
		return StatusCompleted
	case "overdue":
		return StatusMissed
	default:
		return Status(s)
	}
}

// Open reports whether the commitment still counts against dedup and
// receives reminders.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusInProgress
}

// Owner identifies who a commitment belongs to: a coaching user, or a guest
// pass code for unauthenticated sessions. Exactly one mode is set.
type Owner struct {
	UserID    uuid.UUID
	GuestCode string
}

func UserOwner(id uuid.UUID) Owner {
	return Owner{UserID: id}
}

func GuestOwner(code string) Owner {
	return Owner{GuestCode: code}
}

func (o Owner) Valid() bool {
	return (o.UserID != uuid.Nil) != (o.GuestCode != "")
}

// Commitment is a tracked promise with an optional deadline.
type Commitment struct {
	ID               uuid.UUID  `json:"id"`
	Owner            Owner      `json:"-"`
	OwnerID          *uuid.UUID `json:"owner_id,omitempty"`
	GuestCode        string     `json:"guest_code,omitempty"`
	Description      string     `json:"description"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	Status           Status     `json:"status"`
	Progress         int        `json:"progress"`
	Priority         string     `json:"priority"`
	Category         string     `json:"category"`
	SourceSessionRef string     `json:"source_session_ref,omitempty"`
	CheckInEmailSent bool       `json:"check_in_email_sent"`
	LastReminderSent *time.Time `json:"last_reminder_sent,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewCommitment is the insert shape produced by the extraction pipeline or a
// direct user action.
type NewCommitment struct {
	Owner            Owner
	Description      string
	Deadline         *time.Time
	Priority         string
	Category         string
	SourceSessionRef string
}

// ProgressEntry is one row of the append-only progress audit trail.
type ProgressEntry struct {
	ID               uuid.UUID `json:"id"`
	CommitmentID     uuid.UUID `json:"commitment_id"`
	PreviousProgress int       `json:"previous_progress"`
	NewProgress      int       `json:"new_progress"`
	PreviousStatus   Status    `json:"previous_status"`
	NewStatus        Status    `json:"new_status"`
	Note             string    `json:"note,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Preferences are a user's notification toggles. Users without a stored row
// default to everything enabled.
type Preferences struct {
	Enabled  bool `json:"emails_enabled"`
	Upcoming bool `json:"upcoming_reminders"`
	Overdue  bool `json:"overdue_reminders"`
	CheckIn  bool `json:"check_in_emails"`
}

// DueCommitment joins a commitment with its owner's contact details and
// notification preferences for the reminder scan. Guest-pass commitments have
// no contact address and never appear here.
type DueCommitment struct {
	Commitment
	Email string
	Name  string
	Prefs Preferences
}
