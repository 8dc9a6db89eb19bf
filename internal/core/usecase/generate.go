package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
	"github.com/juzgadolab/sentencia-ciudadana/internal/core/normalize"
	"github.com/juzgadolab/sentencia-ciudadana/internal/core/ports"
)

// GenerateConfig bounds the language gate sample and brief retention.
type GenerateConfig struct {
	LanguageSampleChars int
	BriefTTL            time.Duration
}

// GenerateUseCase runs the generation stage: replay the cached message
// set through the model, normalize the output, enforce the language
// gate and store the brief.
type GenerateUseCase struct {
	provider ports.ModelProvider
	cache    ports.Cache
	detector ports.LanguageDetector
	prompts  ports.PromptStore
	reviews  ports.ReviewStateStore
	logger   *slog.Logger
	cfg      GenerateConfig
}

func NewGenerateUseCase(
	provider ports.ModelProvider,
	cache ports.Cache,
	detector ports.LanguageDetector,
	prompts ports.PromptStore,
	reviews ports.ReviewStateStore,
	logger *slog.Logger,
	cfg GenerateConfig,
) *GenerateUseCase {
	return &GenerateUseCase{
		provider: provider,
		cache:    cache,
		detector: detector,
		prompts:  prompts,
		reviews:  reviews,
		logger:   logger,
		cfg:      cfg,
	}
}

func (u *GenerateUseCase) Generate(ctx context.Context, fingerprint string) error {
	messages, err := u.loadMessages(ctx, fingerprint)
	if err != nil {
		return err
	}

	raw, err := u.provider.Chat(ctx, messages)
	if err != nil {
		return fmt.Errorf("generate brief: %w", err)
	}

	text, rejected := normalize.Clean(raw)
	if rejected {
		u.logger.Warn("model rejected generation input", "fingerprint", fingerprint)
	}

	text, err = u.enforceSpanish(ctx, fingerprint, text)
	if err != nil {
		return err
	}

	if err := u.cache.Set(ctx, nsSentenceBrief, fingerprint, text, u.cfg.BriefTTL); err != nil {
		return fmt.Errorf("cache brief: %w", err)
	}

	u.advanceToAwaitingReview(ctx, fingerprint)
	return nil
}

func (u *GenerateUseCase) loadMessages(ctx context.Context, fingerprint string) ([]domain.Message, error) {
	canonicalJSON, ok, err := u.cache.Get(ctx, nsMessagesInput, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("load message set: %w", err)
	}
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "generate",
			fmt.Errorf("no cached message set for fingerprint %s", fingerprint))
	}

	var messages []domain.Message
	if err := json.Unmarshal([]byte(canonicalJSON), &messages); err != nil {
		return nil, domain.WrapError(domain.ErrValidation, "generate",
			fmt.Errorf("decode cached message set: %w", err))
	}
	return messages, nil
}

// enforceSpanish translates exactly once when the sample is not Spanish
// and re-runs the cleanup chain on the translation. Never loops: a
// translation that still fails the gate is stored as-is.
func (u *GenerateUseCase) enforceSpanish(ctx context.Context, fingerprint, text string) (string, error) {
	sample := text
	if runes := []rune(sample); len(runes) > u.cfg.LanguageSampleChars {
		sample = string(runes[:u.cfg.LanguageSampleChars])
	}
	if u.detector.IsSpanish(sample) {
		return text, nil
	}

	u.logger.Info("brief failed language gate, translating", "fingerprint", fingerprint)
	translatorPrompt, err := u.prompts.TranslatorPrompt()
	if err != nil {
		return "", err
	}

	translated, err := u.provider.Chat(ctx, []domain.Message{
		domain.SystemMessage(translatorPrompt),
		domain.UserMessage(text),
	})
	if err != nil {
		return "", fmt.Errorf("translate brief: %w", err)
	}

	cleaned, _ := normalize.Clean(translated)
	return cleaned, nil
}

func (u *GenerateUseCase) advanceToAwaitingReview(ctx context.Context, fingerprint string) {
	state, err := u.reviews.Get(ctx, fingerprint)
	if err != nil {
		u.logger.Error("load review state", "fingerprint", fingerprint, "error", err)
		return
	}
	if state != domain.ReviewDrafted {
		return
	}
	next, err := state.Transition(domain.ReviewAwaitingReview)
	if err != nil {
		u.logger.Error("advance review state", "fingerprint", fingerprint, "error", err)
		return
	}
	if err := u.reviews.Set(ctx, fingerprint, next); err != nil {
		u.logger.Error("persist review state", "fingerprint", fingerprint, "error", err)
	}
}
