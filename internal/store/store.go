package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a referenced commitment does not exist.
	ErrNotFound = errors.New("commitment not found")
	// ErrInvalidProgress is returned for progress values outside 0-100.
	ErrInvalidProgress = errors.New("progress must be between 0 and 100")
	// ErrInvalidStatus is returned for status values outside the canonical set.
	ErrInvalidStatus = errors.New("invalid commitment status")
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Migrate applies the schema. Statements are idempotent so this runs on
// every startup.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS coach_users (
		id uuid PRIMARY KEY,
		email text NOT NULL,
		name text NOT NULL DEFAULT '',
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS commitments (
		id uuid PRIMARY KEY,
		owner_id uuid REFERENCES coach_users(id),
		guest_code text,
		description text NOT NULL,
		deadline timestamptz,
		status text NOT NULL DEFAULT 'pending',
		progress int NOT NULL DEFAULT 0,
		priority text NOT NULL DEFAULT 'medium',
		category text NOT NULL DEFAULT '',
		source_session_ref text NOT NULL DEFAULT '',
		check_in_email_sent boolean NOT NULL DEFAULT false,
		last_reminder_sent timestamptz,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now(),
		CHECK (progress BETWEEN 0 AND 100),
		CHECK ((owner_id IS NULL) <> (guest_code IS NULL))
	)`,
	// One open commitment per owner and normalized description. The insert
	// path relies on this index for race-free deduplication.
	`CREATE UNIQUE INDEX IF NOT EXISTS commitments_open_owner_desc_idx
		ON commitments (coalesce(owner_id::text, guest_code), lower(btrim(description)))
		WHERE status IN ('pending', 'in_progress', 'open')`,
	`CREATE TABLE IF NOT EXISTS commitment_progress_history (
		id uuid PRIMARY KEY,
		commitment_id uuid NOT NULL REFERENCES commitments(id),
		previous_progress int NOT NULL,
		new_progress int NOT NULL,
		previous_status text NOT NULL,
		new_status text NOT NULL,
		note text NOT NULL DEFAULT '',
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS notification_preferences (
		owner_id uuid PRIMARY KEY REFERENCES coach_users(id),
		emails_enabled boolean NOT NULL DEFAULT true,
		upcoming_reminders boolean NOT NULL DEFAULT true,
		overdue_reminders boolean NOT NULL DEFAULT true,
		check_in_emails boolean NOT NULL DEFAULT true
	)`,
}
