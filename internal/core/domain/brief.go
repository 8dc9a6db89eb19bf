package domain

import "fmt"

// Workflow classifies the outcome of an edit request as returned by the
// model's structured verdict.
type Workflow string

const (
	WorkflowUpdate   Workflow = "update"
	WorkflowRejected Workflow = "rejected"
	WorkflowQuestion Workflow = "question"
)

func (w Workflow) Valid() bool {
	switch w {
	case WorkflowUpdate, WorkflowRejected, WorkflowQuestion:
		return true
	}
	return false
}

// GenerationResult is the normalized output of a generation run.
type GenerationResult struct {
	BriefText string   `json:"brief_text"`
	Rejected  bool     `json:"rejected"`
	Workflow  Workflow `json:"workflow,omitempty"`
}

// EditVerdict is the structured object the model returns for an edit
// request instead of free text.
type EditVerdict struct {
	Workflow Workflow `json:"workflow"`
	Rejected bool     `json:"rejected"`
	Message  string   `json:"message"`
	Sentence string   `json:"sentence"`
}

// ReviewState tracks one edit-request interaction per fingerprint.
type ReviewState string

const (
	ReviewDrafted        ReviewState = "drafted"
	ReviewAwaitingReview ReviewState = "awaiting_review"
	ReviewApplying       ReviewState = "applying_changes"
	ReviewAccepted       ReviewState = "accepted"
	ReviewRejected       ReviewState = "rejected"
)

// Transition validates a review-state change. Rejected is re-enterable:
// a further change request moves it back to applying_changes.
func (s ReviewState) Transition(to ReviewState) (ReviewState, error) {
	allowed := map[ReviewState][]ReviewState{
		ReviewDrafted:        {ReviewAwaitingReview},
		ReviewAwaitingReview: {ReviewApplying},
		ReviewApplying:       {ReviewAccepted, ReviewRejected},
		ReviewAccepted:       {ReviewApplying},
		ReviewRejected:       {ReviewApplying},
	}
	for _, next := range allowed[s] {
		if next == to {
			return to, nil
		}
	}
	return s, fmt.Errorf("review state %q cannot transition to %q", s, to)
}
