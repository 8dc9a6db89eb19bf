package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
)

// AuditStore persists one record per task terminal state.
type AuditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Record(ctx context.Context, record domain.AuditRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO audit_records (stage, status_code, fingerprint, message, exit_status, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, record.Stage, record.StatusCode, record.Fingerprint, record.Message, record.ExitStatus, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}
