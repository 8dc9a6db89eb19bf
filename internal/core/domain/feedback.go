package domain

import "time"

// FeedbackEntry is free-text user feedback. The log is append-only:
// entries are never mutated and only removed by an explicit bulk clear.
type FeedbackEntry struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedbackStrategy selects how accumulated feedback is retrieved during
// prompt assembly. The two strategies have different recency/relevance
// semantics and must not be mixed within one deployment.
type FeedbackStrategy string

const (
	FeedbackFlatLog FeedbackStrategy = "log"
	FeedbackVector  FeedbackStrategy = "vector"
)
