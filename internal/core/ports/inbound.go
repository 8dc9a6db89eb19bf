package ports

import (
	"context"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
)

// SubmitReceipt is returned immediately by the request path; the brief
// itself is retrieved later by polling on the fingerprint.
type SubmitReceipt struct {
	Fingerprint  string `json:"hash"`
	CompleteText string `json:"complete_text"`
	Documents    int    `json:"documents"`
	Images       int    `json:"images"`
	Skipped      int    `json:"skipped"`
}

// BriefSubmitter is the inbound contract for brief generation requests.
type BriefSubmitter interface {
	Submit(ctx context.Context, documentPaths, imagePaths []string) (*SubmitReceipt, error)
}

// BriefReader retrieves a finished brief (one-shot delivery: the cache
// entry is deleted on successful read in this flow).
type BriefReader interface {
	Fetch(ctx context.Context, fingerprint string) (string, error)
}

// ChangeRequester enqueues an edit request for an existing brief.
type ChangeRequester interface {
	RequestChanges(ctx context.Context, fingerprint, sentence, changes string) error
}

// FeedbackRecorder captures and clears user feedback.
type FeedbackRecorder interface {
	Record(ctx context.Context, text string) error
	ClearAll(ctx context.Context) error
}

// StageInspector exposes the persisted pipeline stage per fingerprint.
type StageInspector interface {
	Stage(ctx context.Context, fingerprint string) (*domain.StageRecord, error)
}
