package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
)

// Cache is the namespaced, TTL-bearing key-value store shared by every
// pipeline stage. A miss always means "recompute", never "error"; Set
// overwrites unconditionally (last-writer-wins, no compare-and-swap).
type Cache interface {
	Get(ctx context.Context, namespace, key string) (string, bool, error)
	Set(ctx context.Context, namespace, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, namespace, key string) error
}

// FeedbackLog is the append-only flat feedback log. Entries are never
// mutated; Clear is the explicit bulk operation exposed to the feedback
// console collaborator.
type FeedbackLog interface {
	Append(ctx context.Context, entry domain.FeedbackEntry) error
	ListRecent(ctx context.Context, limit int) ([]domain.FeedbackEntry, error)
	Clear(ctx context.Context) error
}

// FeedbackVectorIndex is the similarity-indexed feedback alternative.
type FeedbackVectorIndex interface {
	IndexFeedback(ctx context.Context, entry domain.FeedbackEntry) error
	SearchFeedback(ctx context.Context, queryText string, topK int) ([]string, error)
}

// AuditLog persists one record per task terminal state.
type AuditLog interface {
	Record(ctx context.Context, record domain.AuditRecord) error
}

// StageStore persists the current pipeline stage per fingerprint.
type StageStore interface {
	Upsert(ctx context.Context, record domain.StageRecord) error
	Get(ctx context.Context, fingerprint string) (*domain.StageRecord, error)
}

// ReviewStateStore persists the edit-request state machine.
type ReviewStateStore interface {
	Get(ctx context.Context, fingerprint string) (domain.ReviewState, error)
	Set(ctx context.Context, fingerprint string, state domain.ReviewState) error
}

// TaskQueue submits and consumes asynchronous stage runs. Subscribe
// blocks until the context is cancelled; handlers may run concurrently
// across worker processes with no cross-worker lock.
type TaskQueue interface {
	Submit(ctx context.Context, envelope domain.TaskEnvelope) error
	Subscribe(ctx context.Context, handler func(context.Context, domain.TaskEnvelope) error) error
}

// ModelProvider is the closed provider contract. All variants (local or
// hosted API) are treated uniformly through it; selection happens in
// configuration, not runtime type inspection.
type ModelProvider interface {
	Chat(ctx context.Context, messages []domain.Message) (string, error)
	ChatStructured(ctx context.Context, messages []domain.Message, schema json.RawMessage, out any) error
}

// Embedder builds vectors for chunk and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore manages single-use overflow collections and similarity
// queries. Collections are content-addressed by document fingerprint and
// deleted after their single read-back use.
type VectorStore interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	EnsureCollection(ctx context.Context, name string) error
	UpsertTexts(ctx context.Context, collection string, texts []string) error
	QueryTexts(ctx context.Context, collection string, queries []string, topK int) ([][]string, error)
	DeleteCollection(ctx context.Context, name string) error
}

// TextExtractor reads one staged source file into plain text. Raw format
// readers (PDF, OCR) live behind this boundary.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Chunker splits overflow text into bounded slices with fixed overlap.
type Chunker interface {
	Split(text string) []string
}

// LanguageDetector backs the language gate.
type LanguageDetector interface {
	IsSpanish(text string) bool
}

// PromptStore loads prompt templates and FAQ probes. A missing required
// template is a fatal configuration error at first use.
type PromptStore interface {
	SystemPrompt() (string, error)
	EditorPrompt() (string, error)
	TranslatorPrompt() (string, error)
	FAQQuestions() ([]string, error)
	ContextDocuments() (string, error)
}
