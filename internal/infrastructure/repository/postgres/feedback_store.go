package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
)

// FeedbackStore is the append-only flat feedback log. Entries are never
// updated; Clear is the single bulk operation exposed to the feedback
// console collaborator.
type FeedbackStore struct {
	db *sql.DB
}

func NewFeedbackStore(db *sql.DB) *FeedbackStore {
	return &FeedbackStore{db: db}
}

func (s *FeedbackStore) Append(ctx context.Context, entry domain.FeedbackEntry) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO feedback_entries (id, feedback, created_at)
VALUES ($1,$2,$3)
`, entry.ID, entry.Text, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert feedback entry: %w", err)
	}
	return nil
}

// ListRecent returns the last N entries in submission order, oldest
// first, so joining them reads chronologically in the prompt.
func (s *FeedbackStore) ListRecent(ctx context.Context, limit int) ([]domain.FeedbackEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, feedback, created_at FROM (
	SELECT id, feedback, created_at
	FROM feedback_entries
	ORDER BY created_at DESC, id DESC
	LIMIT $1
) recent
ORDER BY created_at ASC, id ASC
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent feedback: %w", err)
	}
	defer rows.Close()

	var out []domain.FeedbackEntry
	for rows.Next() {
		var entry domain.FeedbackEntry
		if err := rows.Scan(&entry.ID, &entry.Text, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback entry: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback entries: %w", err)
	}
	return out, nil
}

func (s *FeedbackStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM feedback_entries`)
	if err != nil {
		return fmt.Errorf("clear feedback entries: %w", err)
	}
	return nil
}
