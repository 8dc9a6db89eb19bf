package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
	"github.com/juzgadolab/sentencia-ciudadana/internal/core/normalize"
	"github.com/juzgadolab/sentencia-ciudadana/internal/core/ports"
)

const sentencePlaceholder = "{{sentence}}"

// editVerdictSchema constrains the editor's structured output. Every
// field is required so a partial verdict fails validation instead of
// silently defaulting.
var editVerdictSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"workflow": {"type": "string", "enum": ["update", "rejected", "question"]},
		"rejected": {"type": "boolean"},
		"message": {"type": "string"},
		"sentence": {"type": "string"}
	},
	"required": ["workflow", "rejected", "message", "sentence"]
}`)

// UpdateConfig bounds brief retention for applied edits.
type UpdateConfig struct {
	BriefTTL time.Duration
}

// UpdateUseCase runs the update stage: present the current brief and
// the requested changes to the editor model, apply its structured
// verdict. A rejected verdict must never overwrite the stored brief.
type UpdateUseCase struct {
	provider ports.ModelProvider
	cache    ports.Cache
	prompts  ports.PromptStore
	reviews  ports.ReviewStateStore
	logger   *slog.Logger
	cfg      UpdateConfig
}

func NewUpdateUseCase(
	provider ports.ModelProvider,
	cache ports.Cache,
	prompts ports.PromptStore,
	reviews ports.ReviewStateStore,
	logger *slog.Logger,
	cfg UpdateConfig,
) *UpdateUseCase {
	return &UpdateUseCase{
		provider: provider,
		cache:    cache,
		prompts:  prompts,
		reviews:  reviews,
		logger:   logger,
		cfg:      cfg,
	}
}

// Apply executes one edit request against the brief stored under the
// fingerprint. sentence is the brief text the requester saw; changes is
// the free-text change request.
func (u *UpdateUseCase) Apply(ctx context.Context, fingerprint, sentence, changes string) error {
	if strings.TrimSpace(changes) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "update",
			fmt.Errorf("empty change request"))
	}

	if sentence == "" {
		cached, ok, err := u.cache.Get(ctx, nsSentenceBrief, fingerprint)
		if err != nil {
			return fmt.Errorf("load current brief: %w", err)
		}
		if !ok {
			return domain.WrapError(domain.ErrNotFound, "update",
				fmt.Errorf("no brief stored for fingerprint %s", fingerprint))
		}
		sentence = cached
	}

	u.moveToApplying(ctx, fingerprint)

	editorPrompt, err := u.prompts.EditorPrompt()
	if err != nil {
		return err
	}
	system := strings.ReplaceAll(editorPrompt, sentencePlaceholder, sentence)

	var verdict domain.EditVerdict
	err = u.provider.ChatStructured(ctx, []domain.Message{
		domain.SystemMessage(system),
		domain.UserMessage(changes),
	}, editVerdictSchema, &verdict)
	if err != nil {
		return fmt.Errorf("editor verdict: %w", err)
	}
	if !verdict.Workflow.Valid() {
		return domain.WrapError(domain.ErrValidation, "update",
			fmt.Errorf("invalid workflow %q in editor verdict", verdict.Workflow))
	}

	if verdict.Rejected || verdict.Workflow != domain.WorkflowUpdate {
		u.logger.Info("edit request not applied",
			"fingerprint", fingerprint,
			"workflow", verdict.Workflow,
			"message", verdict.Message)
		u.setState(ctx, fingerprint, domain.ReviewRejected)
		return nil
	}

	cleaned := normalize.CleanSentence(verdict.Sentence)
	if strings.TrimSpace(cleaned) == "" {
		return domain.WrapError(domain.ErrValidation, "update",
			fmt.Errorf("editor accepted the change but returned an empty sentence"))
	}

	if err := u.cache.Set(ctx, nsSentenceBrief, fingerprint, cleaned, u.cfg.BriefTTL); err != nil {
		return fmt.Errorf("store updated brief: %w", err)
	}
	u.setState(ctx, fingerprint, domain.ReviewAccepted)
	return nil
}

func (u *UpdateUseCase) moveToApplying(ctx context.Context, fingerprint string) {
	state, err := u.reviews.Get(ctx, fingerprint)
	if err != nil {
		u.logger.Error("load review state", "fingerprint", fingerprint, "error", err)
		return
	}
	next, err := state.Transition(domain.ReviewApplying)
	if err != nil {
		u.logger.Warn("review state out of order", "fingerprint", fingerprint, "error", err)
		return
	}
	if err := u.reviews.Set(ctx, fingerprint, next); err != nil {
		u.logger.Error("persist review state", "fingerprint", fingerprint, "error", err)
	}
}

func (u *UpdateUseCase) setState(ctx context.Context, fingerprint string, state domain.ReviewState) {
	if err := u.reviews.Set(ctx, fingerprint, state); err != nil {
		u.logger.Error("persist review state", "fingerprint", fingerprint, "error", err)
	}
}
