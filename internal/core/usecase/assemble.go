package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/canonical"
	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
	"github.com/juzgadolab/sentencia-ciudadana/internal/core/ports"
)

const (
	faqPlaceholder      = "{{faq}}"
	feedbackPlaceholder = "{{feedback}}"
	contextPlaceholder  = "{{context}}"
)

// AssembleConfig selects the feedback retrieval strategy and its bounds.
type AssembleConfig struct {
	Strategy        domain.FeedbackStrategy
	RecentN         int
	TopK            int
	EmbedChars      int
	IntermediateTTL time.Duration
}

// AssembleUseCase builds the canonical [system, user] message set for
// one ingested text, fingerprints it and caches the canonical bytes
// before any model call, so the model-facing input is reproducible.
type AssembleUseCase struct {
	prompts     ports.PromptStore
	cache       ports.Cache
	feedbackLog ports.FeedbackLog
	feedbackIdx ports.FeedbackVectorIndex
	logger      *slog.Logger
	cfg         AssembleConfig
}

func NewAssembleUseCase(
	prompts ports.PromptStore,
	cache ports.Cache,
	feedbackLog ports.FeedbackLog,
	feedbackIdx ports.FeedbackVectorIndex,
	logger *slog.Logger,
	cfg AssembleConfig,
) *AssembleUseCase {
	return &AssembleUseCase{
		prompts:     prompts,
		cache:       cache,
		feedbackLog: feedbackLog,
		feedbackIdx: feedbackIdx,
		logger:      logger,
		cfg:         cfg,
	}
}

// Assemble returns the fingerprint and the message set it identifies.
func (u *AssembleUseCase) Assemble(ctx context.Context, limitedText string) (string, []domain.Message, error) {
	system, err := u.prompts.SystemPrompt()
	if err != nil {
		return "", nil, err
	}

	system, err = u.substitute(ctx, system, limitedText)
	if err != nil {
		return "", nil, err
	}

	messages := []domain.Message{
		domain.SystemMessage(system),
		domain.UserMessage(limitedText),
	}

	fingerprint, canonicalBytes, err := canonical.FingerprintMessages(messages)
	if err != nil {
		return "", nil, err
	}
	if err := u.cache.Set(ctx, nsMessagesInput, fingerprint, string(canonicalBytes), u.cfg.IntermediateTTL); err != nil {
		return "", nil, fmt.Errorf("cache message set: %w", err)
	}
	return fingerprint, messages, nil
}

// substitute fills the optional template placeholders. Absent
// placeholders are left alone; absent material collapses to empty.
func (u *AssembleUseCase) substitute(ctx context.Context, system, userText string) (string, error) {
	if strings.Contains(system, faqPlaceholder) {
		questions, err := u.prompts.FAQQuestions()
		if err != nil {
			return "", err
		}
		system = strings.ReplaceAll(system, faqPlaceholder, strings.Join(questions, "\n"))
	}

	if strings.Contains(system, feedbackPlaceholder) {
		block, err := u.feedbackBlock(ctx, userText)
		if err != nil {
			// Feedback is advisory: assembly proceeds without it.
			u.logger.Warn("feedback retrieval failed", "strategy", u.cfg.Strategy, "error", err)
			block = ""
		}
		system = strings.ReplaceAll(system, feedbackPlaceholder, block)
	}

	if strings.Contains(system, contextPlaceholder) {
		docs, err := u.prompts.ContextDocuments()
		if err != nil {
			return "", err
		}
		system = strings.ReplaceAll(system, contextPlaceholder, docs)
	}
	return system, nil
}

func (u *AssembleUseCase) feedbackBlock(ctx context.Context, userText string) (string, error) {
	switch u.cfg.Strategy {
	case domain.FeedbackVector:
		query := userText
		if runes := []rune(query); len(runes) > u.cfg.EmbedChars {
			query = string(runes[:u.cfg.EmbedChars])
		}
		nearest, err := u.feedbackIdx.SearchFeedback(ctx, query, u.cfg.TopK)
		if err != nil {
			return "", err
		}
		return strings.Join(nearest, "\n"), nil
	default:
		entries, err := u.feedbackLog.ListRecent(ctx, u.cfg.RecentN)
		if err != nil {
			return "", err
		}
		lines := make([]string, 0, len(entries))
		for _, entry := range entries {
			lines = append(lines, entry.Text)
		}
		return strings.Join(lines, "\n"), nil
	}
}
