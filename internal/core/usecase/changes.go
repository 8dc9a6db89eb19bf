package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
	"github.com/juzgadolab/sentencia-ciudadana/internal/core/ports"
)

const requestChangesStage = "request_changes"

// ChangeRequestUseCase enqueues edit requests. The requester supplies
// the brief text it saw because delivery is one-shot; the worker falls
// back to the cached brief when the text is omitted. An accepted
// request writes an audit record before the update stage runs.
type ChangeRequestUseCase struct {
	runner *TaskRunner
	audit  ports.AuditLog
	logger *slog.Logger
	now    func() time.Time
}

func NewChangeRequestUseCase(runner *TaskRunner, audit ports.AuditLog, logger *slog.Logger) *ChangeRequestUseCase {
	return &ChangeRequestUseCase{runner: runner, audit: audit, logger: logger, now: time.Now}
}

func (u *ChangeRequestUseCase) RequestChanges(ctx context.Context, fingerprint, sentence, changes string) error {
	if strings.TrimSpace(fingerprint) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "request_changes",
			fmt.Errorf("missing fingerprint"))
	}
	if strings.TrimSpace(changes) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "request_changes",
			fmt.Errorf("empty change request"))
	}

	if err := u.runner.Enqueue(ctx, domain.StageUpdate, fingerprint, map[string]string{
		"sentence": sentence,
		"changes":  changes,
	}); err != nil {
		return err
	}

	record := domain.AuditRecord{
		Stage:       requestChangesStage,
		StatusCode:  200,
		Fingerprint: fingerprint,
		Message:     "change request queued",
		ExitStatus:  0,
		CreatedAt:   u.now().UTC(),
	}
	if err := u.audit.Record(ctx, record); err != nil {
		u.logger.Error("write audit record", "stage", requestChangesStage, "error", err)
	}
	return nil
}
