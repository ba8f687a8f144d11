package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const commitmentColumns = `id, owner_id, guest_code, description, deadline, status, progress,
	priority, category, source_session_ref, check_in_email_sent, last_reminder_sent,
	created_at, updated_at`

// InsertCommitment writes a new commitment row. Deduplication against open
// commitments with the same normalized description is enforced by a unique
// index; a conflicting insert reports inserted=false rather than an error, so
// two concurrent chat turns cannot double-insert.
func (s *Store) InsertCommitment(ctx context.Context, nc NewCommitment) (uuid.UUID, bool, error) {
	if !nc.Owner.Valid() {
		return uuid.Nil, false, fmt.Errorf("commitment owner must be a user or a guest code")
	}
	desc := strings.TrimSpace(nc.Description)
	if desc == "" {
		return uuid.Nil, false, fmt.Errorf("commitment description is empty")
	}

	var ownerID *uuid.UUID
	var guestCode *string
	if nc.Owner.UserID != uuid.Nil {
		ownerID = &nc.Owner.UserID
	} else {
		guestCode = &nc.Owner.GuestCode
	}

	id := uuid.New()
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO commitments (id, owner_id, guest_code, description, deadline, status, progress, priority, category, source_session_ref)
		VALUES ($1, $2, $3, $4, $5, 'pending', 0, $6, $7, $8)
		ON CONFLICT DO NOTHING`,
		id, ownerID, guestCode, desc, nc.Deadline, nc.Priority, nc.Category, nc.SourceSessionRef,
	)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("insert commitment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return uuid.Nil, false, nil // already open for this owner
	}
	return id, true, nil
}

// ListOpenCommitments returns the owner's pending and in-progress
// commitments, oldest first.
func (s *Store) ListOpenCommitments(ctx context.Context, owner Owner) ([]Commitment, error) {
	if !owner.Valid() {
		return nil, fmt.Errorf("owner must be a user or a guest code")
	}

	query := `SELECT ` + commitmentColumns + ` FROM commitments
		WHERE status IN ('pending', 'in_progress', 'open') AND owner_id = $1 ORDER BY created_at`
	arg := any(owner.UserID)
	if owner.UserID == uuid.Nil {
		query = `SELECT ` + commitmentColumns + ` FROM commitments
			WHERE status IN ('pending', 'in_progress', 'open') AND guest_code = $1 ORDER BY created_at`
		arg = owner.GuestCode
	}

	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list open commitments: %w", err)
	}
	defer rows.Close()
	return scanCommitments(rows)
}

// GetCommitment fetches a single commitment by id.
func (s *Store) GetCommitment(ctx context.Context, id uuid.UUID) (*Commitment, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+commitmentColumns+` FROM commitments WHERE id = $1`, id)
	c, err := scanCommitment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get commitment: %w", err)
	}
	return c, nil
}

// UpdateProgress applies a progress/status transition and appends the audit
// row in the same transaction. Validation failures surface as explicit errors
// since they indicate an invalid request, not an environmental condition.
func (s *Store) UpdateProgress(ctx context.Context, id uuid.UUID, progress int, status Status, note string) (*Commitment, error) {
	if progress < 0 || progress > 100 {
		return nil, ErrInvalidProgress
	}
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+commitmentColumns+` FROM commitments WHERE id = $1 FOR UPDATE`, id)
	current, err := scanCommitment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load commitment: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO commitment_progress_history (id, commitment_id, previous_progress, new_progress, previous_status, new_status, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), id, current.Progress, progress, current.Status, status, note,
	)
	if err != nil {
		return nil, fmt.Errorf("insert history: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `
		UPDATE commitments SET progress = $1, status = $2, updated_at = $3 WHERE id = $4`,
		progress, status, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update commitment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	current.Progress = progress
	current.Status = status
	current.UpdatedAt = now
	return current, nil
}

// DueCommitments returns open, deadline-bearing commitments of registered
// users, joined with contact email and notification preferences.
func (s *Store) DueCommitments(ctx context.Context) ([]DueCommitment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+prefixedCommitmentColumns("c")+`, u.email, u.name,
			coalesce(p.emails_enabled, true),
			coalesce(p.upcoming_reminders, true),
			coalesce(p.overdue_reminders, true),
			coalesce(p.check_in_emails, true)
		FROM commitments c
		JOIN coach_users u ON u.id = c.owner_id
		LEFT JOIN notification_preferences p ON p.owner_id = c.owner_id
		WHERE c.status IN ('pending', 'in_progress', 'open') AND c.deadline IS NOT NULL
		ORDER BY c.deadline`)
	if err != nil {
		return nil, fmt.Errorf("scan due commitments: %w", err)
	}
	defer rows.Close()
	return scanDueCommitments(rows)
}

// CheckInCandidates returns pending commitments created inside the check-in
// window that have not yet received their one-time check-in email.
func (s *Store) CheckInCandidates(ctx context.Context, createdAfter, createdBefore time.Time) ([]DueCommitment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+prefixedCommitmentColumns("c")+`, u.email, u.name,
			coalesce(p.emails_enabled, true),
			coalesce(p.upcoming_reminders, true),
			coalesce(p.overdue_reminders, true),
			coalesce(p.check_in_emails, true)
		FROM commitments c
		JOIN coach_users u ON u.id = c.owner_id
		LEFT JOIN notification_preferences p ON p.owner_id = c.owner_id
		WHERE c.status IN ('pending', 'open')
			AND c.check_in_email_sent = false
			AND c.created_at > $1 AND c.created_at <= $2
		ORDER BY c.created_at`,
		createdAfter, createdBefore)
	if err != nil {
		return nil, fmt.Errorf("scan check-in candidates: %w", err)
	}
	defer rows.Close()
	return scanDueCommitments(rows)
}

// MarkReminderSent records the reminder idempotency timestamp. Called only
// after a successful email dispatch so failed sends are retried next run.
func (s *Store) MarkReminderSent(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `UPDATE commitments SET last_reminder_sent = $1 WHERE id = ANY($2)`, at, ids)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}

// MarkCheckInSent permanently marks commitments as having received their
// one-time check-in email.
func (s *Store) MarkCheckInSent(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `UPDATE commitments SET check_in_email_sent = true WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("mark check-in sent: %w", err)
	}
	return nil
}

func prefixedCommitmentColumns(alias string) string {
	cols := strings.Split(commitmentColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func scanCommitment(row pgx.Row) (*Commitment, error) {
	var c Commitment
	var ownerID *uuid.UUID
	var guestCode *string
	var status string
	err := row.Scan(&c.ID, &ownerID, &guestCode, &c.Description, &c.Deadline, &status, &c.Progress,
		&c.Priority, &c.Category, &c.SourceSessionRef, &c.CheckInEmailSent, &c.LastReminderSent,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	fillOwner(&c, ownerID, guestCode)
	c.Status = normalizeStatus(status)
	return &c, nil
}

func scanCommitments(rows pgx.Rows) ([]Commitment, error) {
	var out []Commitment
	for rows.Next() {
		c, err := scanCommitment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan commitment: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commitments: %w", err)
	}
	return out, nil
}

func scanDueCommitments(rows pgx.Rows) ([]DueCommitment, error) {
	var out []DueCommitment
	for rows.Next() {
		var d DueCommitment
		var ownerID *uuid.UUID
		var guestCode *string
		var status string
		err := rows.Scan(&d.ID, &ownerID, &guestCode, &d.Description, &d.Deadline, &status, &d.Progress,
			&d.Priority, &d.Category, &d.SourceSessionRef, &d.CheckInEmailSent, &d.LastReminderSent,
			&d.CreatedAt, &d.UpdatedAt,
			&d.Email, &d.Name,
			&d.Prefs.Enabled, &d.Prefs.Upcoming, &d.Prefs.Overdue, &d.Prefs.CheckIn)
		if err != nil {
			return nil, fmt.Errorf("scan due commitment: %w", err)
		}
		fillOwner(&d.Commitment, ownerID, guestCode)
		d.Status = normalizeStatus(status)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due commitments: %w", err)
	}
	return out, nil
}

func fillOwner(c *Commitment, ownerID *uuid.UUID, guestCode *string) {
	c.OwnerID = ownerID
	if ownerID != nil {
		c.Owner = UserOwner(*ownerID)
	}
	if guestCode != nil {
		c.GuestCode = *guestCode
		c.Owner = GuestOwner(*guestCode)
	}
}
