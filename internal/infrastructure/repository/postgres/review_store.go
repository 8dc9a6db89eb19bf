package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
)

// ReviewStore persists the per-fingerprint review state machine. A
// fingerprint with no row is in the initial drafted state.
type ReviewStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewReviewStore(db *sql.DB) *ReviewStore {
	return &ReviewStore{db: db, now: time.Now}
}

func (s *ReviewStore) Get(ctx context.Context, fingerprint string) (domain.ReviewState, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT state
FROM review_states
WHERE fingerprint = $1
`, fingerprint)

	var state string
	if err := row.Scan(&state); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ReviewDrafted, nil
		}
		return "", fmt.Errorf("scan review state: %w", err)
	}
	return domain.ReviewState(state), nil
}

func (s *ReviewStore) Set(ctx context.Context, fingerprint string, state domain.ReviewState) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO review_states (fingerprint, state, updated_at)
VALUES ($1,$2,$3)
ON CONFLICT (fingerprint)
DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at
`, fingerprint, state, s.now().UTC())
	if err != nil {
		return fmt.Errorf("upsert review state: %w", err)
	}
	return nil
}
