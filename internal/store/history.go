package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ListHistory returns the append-only progress trail for a commitment,
// oldest first.
func (s *Store) ListHistory(ctx context.Context, commitmentID uuid.UUID) ([]ProgressEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, commitment_id, previous_progress, new_progress, previous_status, new_status, note, created_at
		FROM commitment_progress_history
		WHERE commitment_id = $1
		ORDER BY created_at`, commitmentID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []ProgressEntry
	for rows.Next() {
		var e ProgressEntry
		var prevStatus, newStatus string
		if err := rows.Scan(&e.ID, &e.CommitmentID, &e.PreviousProgress, &e.NewProgress, &prevStatus, &newStatus, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		e.PreviousStatus = normalizeStatus(prevStatus)
		e.NewStatus = normalizeStatus(newStatus)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}
