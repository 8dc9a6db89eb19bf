package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
	"github.com/juzgadolab/sentencia-ciudadana/internal/core/ports"
)

const deliveryStage = "delivery"

// BriefReadUseCase delivers finished briefs one-shot: a successful read
// deletes the cache entry, so a second read of the same fingerprint is
// a miss by design of the delivery contract. Both outcomes write an
// audit record, like the stage runs do.
type BriefReadUseCase struct {
	cache  ports.Cache
	audit  ports.AuditLog
	logger *slog.Logger
	now    func() time.Time
}

func NewBriefReadUseCase(cache ports.Cache, audit ports.AuditLog, logger *slog.Logger) *BriefReadUseCase {
	return &BriefReadUseCase{cache: cache, audit: audit, logger: logger, now: time.Now}
}

func (u *BriefReadUseCase) Fetch(ctx context.Context, fingerprint string) (string, error) {
	text, ok, err := u.cache.Get(ctx, nsSentenceBrief, fingerprint)
	if err != nil {
		return "", fmt.Errorf("load brief: %w", err)
	}
	if !ok {
		u.writeAudit(ctx, fingerprint, 404, 1, "no brief ready")
		return "", domain.WrapError(domain.ErrNotFound, "brief.fetch",
			fmt.Errorf("no brief ready for fingerprint %s", fingerprint))
	}

	if err := u.cache.Delete(ctx, nsSentenceBrief, fingerprint); err != nil {
		// Delivery already happened; a failed delete only risks a
		// duplicate read, not a lost brief.
		u.logger.Warn("delete delivered brief", "fingerprint", fingerprint, "error", err)
	}
	u.writeAudit(ctx, fingerprint, 200, 0, "brief delivered")
	return text, nil
}

func (u *BriefReadUseCase) writeAudit(ctx context.Context, fingerprint string, status, exit int, message string) {
	record := domain.AuditRecord{
		Stage:       deliveryStage,
		StatusCode:  status,
		Fingerprint: fingerprint,
		Message:     message,
		ExitStatus:  exit,
		CreatedAt:   u.now().UTC(),
	}
	if err := u.audit.Record(ctx, record); err != nil {
		u.logger.Error("write audit record", "stage", deliveryStage, "error", err)
	}
}
