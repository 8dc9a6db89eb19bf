package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
	"github.com/juzgadolab/sentencia-ciudadana/internal/core/ports"
)

// FeedbackUseCase captures collaborator feedback. The flat log is always
// written; in similarity mode an indexing task is enqueued on top so
// the vector side stays eventually consistent with the log.
type FeedbackUseCase struct {
	log      ports.FeedbackLog
	runner   *TaskRunner
	strategy domain.FeedbackStrategy
	now      func() time.Time
}

func NewFeedbackUseCase(log ports.FeedbackLog, runner *TaskRunner, strategy domain.FeedbackStrategy) *FeedbackUseCase {
	return &FeedbackUseCase{
		log:      log,
		runner:   runner,
		strategy: strategy,
		now:      time.Now,
	}
}

func (u *FeedbackUseCase) Record(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.WrapError(domain.ErrInvalidInput, "feedback.record",
			fmt.Errorf("empty feedback"))
	}

	entry := domain.FeedbackEntry{
		ID:        uuid.NewString(),
		Text:      text,
		CreatedAt: u.now().UTC(),
	}
	if err := u.log.Append(ctx, entry); err != nil {
		return fmt.Errorf("append feedback: %w", err)
	}

	if u.strategy == domain.FeedbackVector {
		return u.runner.Enqueue(ctx, domain.StageFeedbackIndex, "", map[string]string{
			"id":   entry.ID,
			"text": entry.Text,
		})
	}
	return nil
}

func (u *FeedbackUseCase) ClearAll(ctx context.Context) error {
	if err := u.log.Clear(ctx); err != nil {
		return fmt.Errorf("clear feedback: %w", err)
	}
	return nil
}
