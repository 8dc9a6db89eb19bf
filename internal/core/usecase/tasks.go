package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
	"github.com/juzgadolab/sentencia-ciudadana/internal/core/ports"
	"github.com/juzgadolab/sentencia-ciudadana/internal/infrastructure/resilience"
)

// TaskMetrics is the worker-side instrumentation hook. A nil recorder
// disables it, which the api binary uses for its synchronous stage.
type TaskMetrics interface {
	StartTask()
	FinishTask(service, task string, duration time.Duration, err error)
	RecordRetries(service, task string, retries int)
	ObserveQueueLag(service string, lag time.Duration)
}

// TaskRunner executes pipeline stages with retry, audit records and a
// persisted current-stage row per fingerprint. The same runner serves
// the synchronous extraction stage in the request path and the
// asynchronous stages consumed from the broker.
type TaskRunner struct {
	executor *resilience.Executor
	audit    ports.AuditLog
	stages   ports.StageStore
	queue    ports.TaskQueue
	logger   *slog.Logger
	metrics  TaskMetrics
	service  string
	now      func() time.Time

	mu       sync.RWMutex
	handlers map[domain.Stage]func(context.Context, domain.TaskEnvelope) error
}

func NewTaskRunner(
	executor *resilience.Executor,
	audit ports.AuditLog,
	stages ports.StageStore,
	queue ports.TaskQueue,
	logger *slog.Logger,
	service string,
) *TaskRunner {
	return &TaskRunner{
		executor: executor,
		audit:    audit,
		stages:   stages,
		queue:    queue,
		logger:   logger,
		service:  service,
		now:      time.Now,
		handlers: make(map[domain.Stage]func(context.Context, domain.TaskEnvelope) error),
	}
}

func (r *TaskRunner) WithMetrics(metrics TaskMetrics) *TaskRunner {
	r.metrics = metrics
	return r
}

// Register binds a stage to its worker handler. Envelopes for stages
// without a handler fail permanently.
func (r *TaskRunner) Register(stage domain.Stage, handler func(context.Context, domain.TaskEnvelope) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[stage] = handler
}

// Enqueue records the stage as queued and submits its envelope.
func (r *TaskRunner) Enqueue(ctx context.Context, stage domain.Stage, fingerprint string, args map[string]string) error {
	r.upsertStage(ctx, fingerprint, stage, domain.StageQueued, 0, "")

	envelope := domain.TaskEnvelope{
		Task:        stage,
		Fingerprint: fingerprint,
		Args:        args,
		EnqueuedAt:  r.now().UTC(),
	}
	if err := r.queue.Submit(ctx, envelope); err != nil {
		return fmt.Errorf("enqueue %s: %w", stage, err)
	}
	return nil
}

// Handle dispatches one consumed envelope to its registered handler. It
// is the worker's queue callback.
func (r *TaskRunner) Handle(ctx context.Context, envelope domain.TaskEnvelope) error {
	r.mu.RLock()
	handler, ok := r.handlers[envelope.Task]
	r.mu.RUnlock()
	if !ok {
		err := fmt.Errorf("no handler registered for stage %s", envelope.Task)
		r.writeAudit(ctx, envelope.Task, envelope.Fingerprint, err)
		return err
	}

	if r.metrics != nil && !envelope.EnqueuedAt.IsZero() {
		r.metrics.ObserveQueueLag(r.service, r.now().Sub(envelope.EnqueuedAt))
	}

	return r.Run(ctx, envelope.Task, envelope.Fingerprint, func(runCtx context.Context) (string, error) {
		return envelope.Fingerprint, handler(runCtx, envelope)
	})
}

// Run executes one stage through the retry policy and records its
// terminal state. fn returns the fingerprint the terminal records should
// carry, which the extraction stage only knows after it has run.
func (r *TaskRunner) Run(ctx context.Context, stage domain.Stage, fingerprint string, fn func(context.Context) (string, error)) error {
	start := r.now()
	if r.metrics != nil {
		r.metrics.StartTask()
	}
	r.upsertStage(ctx, fingerprint, stage, domain.StageRunning, 0, "")

	attempts := 0
	resultFingerprint := fingerprint
	err := r.executor.Execute(ctx, "task."+string(stage), func(runCtx context.Context) error {
		attempts++
		fp, runErr := fn(runCtx)
		if fp != "" {
			resultFingerprint = fp
		}
		return runErr
	}, classifyTaskError)

	retries := attempts - 1
	if retries < 0 {
		retries = 0
	}
	if r.metrics != nil {
		r.metrics.FinishTask(r.service, string(stage), r.now().Sub(start), err)
		r.metrics.RecordRetries(r.service, string(stage), retries)
	}

	r.writeAudit(ctx, stage, resultFingerprint, err)
	if err != nil {
		r.upsertStage(ctx, resultFingerprint, stage, domain.StageFailed, retries, err.Error())
		r.logger.Error("stage failed",
			"stage", stage,
			"fingerprint", resultFingerprint,
			"retries", retries,
			"error", err)
		return err
	}

	r.upsertStage(ctx, resultFingerprint, stage, domain.StageDone, retries, "")
	r.logger.Info("stage done",
		"stage", stage,
		"fingerprint", resultFingerprint,
		"retries", retries,
		"duration", r.now().Sub(start))
	return nil
}

// Stage implements the inbound stage inspector.
func (r *TaskRunner) Stage(ctx context.Context, fingerprint string) (*domain.StageRecord, error) {
	return r.stages.Get(ctx, fingerprint)
}

func (r *TaskRunner) writeAudit(ctx context.Context, stage domain.Stage, fingerprint string, runErr error) {
	record := domain.AuditRecord{
		Stage:       string(stage),
		StatusCode:  200,
		Fingerprint: fingerprint,
		Message:     "ok",
		ExitStatus:  0,
		CreatedAt:   r.now().UTC(),
	}
	if runErr != nil {
		record.StatusCode = 500
		record.Message = runErr.Error()
		record.ExitStatus = 1
	}
	if err := r.audit.Record(ctx, record); err != nil {
		r.logger.Error("write audit record", "stage", stage, "error", err)
	}
}

func (r *TaskRunner) upsertStage(ctx context.Context, fingerprint string, stage domain.Stage, status domain.StageStatus, retries int, message string) {
	if fingerprint == "" {
		return
	}
	record := domain.StageRecord{
		Fingerprint: fingerprint,
		Stage:       stage,
		Status:      status,
		RetryCount:  retries,
		Message:     message,
		UpdatedAt:   r.now().UTC(),
	}
	if err := r.stages.Upsert(ctx, record); err != nil {
		r.logger.Error("persist stage record", "stage", stage, "fingerprint", fingerprint, "error", err)
	}
}

func classifyTaskError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if domain.IsRetryable(err) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}
	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: false,
	}
}
