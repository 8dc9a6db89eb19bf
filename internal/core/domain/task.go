package domain

import "time"

// Stage names the independently retryable units of the pipeline.
type Stage string

const (
	StageExtraction    Stage = "extraction"
	StageGeneration    Stage = "generation"
	StageUpdate        Stage = "update"
	StageFeedbackIndex Stage = "feedback_index"
)

type StageStatus string

const (
	StageQueued  StageStatus = "queued"
	StageRunning StageStatus = "running"
	StageDone    StageStatus = "done"
	StageFailed  StageStatus = "failed"
)

// StageRecord is the persisted "current stage" of one fingerprint's
// chain, making the pipeline inspectable and resumable after a crash.
type StageRecord struct {
	Fingerprint string      `json:"fingerprint"`
	Stage       Stage       `json:"stage"`
	Status      StageStatus `json:"status"`
	RetryCount  int         `json:"retry_count"`
	Message     string      `json:"message,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TaskEnvelope is the broker message for one asynchronous stage run.
// Args are stage-specific and opaque to the queue.
type TaskEnvelope struct {
	Task        Stage             `json:"task"`
	Fingerprint string            `json:"fingerprint"`
	Args        map[string]string `json:"args,omitempty"`
	EnqueuedAt  time.Time         `json:"enqueued_at"`
}

// AuditRecord is written for every task terminal state, success or
// failure. StatusCode is an HTTP analogue (200/500); ExitStatus mirrors
// the original operator-facing log (0 success, 1 failure).
type AuditRecord struct {
	Stage       string    `json:"stage"`
	StatusCode  int       `json:"status_code"`
	Fingerprint string    `json:"fingerprint"`
	Message     string    `json:"message"`
	ExitStatus  int       `json:"exit_status"`
	CreatedAt   time.Time `json:"created_at"`
}
