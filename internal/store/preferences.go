package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// GetPreferences returns a user's notification preferences. Users who never
// touched their settings have no row and default to everything enabled.
func (s *Store) GetPreferences(ctx context.Context, ownerID uuid.UUID) (Preferences, error) {
	p := Preferences{Enabled: true, Upcoming: true, Overdue: true, CheckIn: true}
	rows, err := s.pool.Query(ctx, `
		SELECT emails_enabled, upcoming_reminders, overdue_reminders, check_in_emails
		FROM notification_preferences WHERE owner_id = $1`, ownerID)
	if err != nil {
		return p, fmt.Errorf("get preferences: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&p.Enabled, &p.Upcoming, &p.Overdue, &p.CheckIn); err != nil {
			return p, fmt.Errorf("scan preferences: %w", err)
		}
	}
	return p, rows.Err()
}

// SetPreferences upserts a user's notification preferences.
func (s *Store) SetPreferences(ctx context.Context, ownerID uuid.UUID, p Preferences) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_preferences (owner_id, emails_enabled, upcoming_reminders, overdue_reminders, check_in_emails)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_id) DO UPDATE SET
			emails_enabled = EXCLUDED.emails_enabled,
			upcoming_reminders = EXCLUDED.upcoming_reminders,
			overdue_reminders = EXCLUDED.overdue_reminders,
			check_in_emails = EXCLUDED.check_in_emails`,
		ownerID, p.Enabled, p.Upcoming, p.Overdue, p.CheckIn,
	)
	if err != nil {
		return fmt.Errorf("set preferences: %w", err)
	}
	return nil
}
