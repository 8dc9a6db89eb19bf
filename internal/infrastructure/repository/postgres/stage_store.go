package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
)

// StageStore keeps one row per fingerprint holding the latest pipeline
// stage. Upserts overwrite the previous stage so the row always answers
// "where is this document now".
type StageStore struct {
	db *sql.DB
}

func NewStageStore(db *sql.DB) *StageStore {
	return &StageStore{db: db}
}

func (s *StageStore) Upsert(ctx context.Context, record domain.StageRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO pipeline_stages (fingerprint, stage, status, retry_count, message, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (fingerprint)
DO UPDATE SET stage = EXCLUDED.stage, status = EXCLUDED.status,
	retry_count = EXCLUDED.retry_count, message = EXCLUDED.message,
	updated_at = EXCLUDED.updated_at
`, record.Fingerprint, record.Stage, record.Status, record.RetryCount, record.Message, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert pipeline stage: %w", err)
	}
	return nil
}

func (s *StageStore) Get(ctx context.Context, fingerprint string) (*domain.StageRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT fingerprint, stage, status, retry_count, message, updated_at
FROM pipeline_stages
WHERE fingerprint = $1
`, fingerprint)

	var record domain.StageRecord
	var message sql.NullString
	if err := row.Scan(&record.Fingerprint, &record.Stage, &record.Status, &record.RetryCount, &message, &record.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "stage.get", fmt.Errorf("no stage for fingerprint %s", fingerprint))
		}
		return nil, fmt.Errorf("scan pipeline stage: %w", err)
	}
	record.Message = message.String
	return &record, nil
}
