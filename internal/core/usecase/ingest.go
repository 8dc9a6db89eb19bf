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

// IngestConfig bounds how much source text reaches the model directly
// and how the overflow remainder is indexed.
type IngestConfig struct {
	TextCharBudget  int
	FAQTopK         int
	IntermediateTTL time.Duration
}

// IngestUseCase turns staged source files into the budget-bounded text
// block embedded in the user message. Documents share the character
// budget evenly; a document's overflow remainder goes through a
// single-use vector collection probed with the FAQ questions. Image OCR
// text is appended verbatim and never counts against the budget.
type IngestUseCase struct {
	extractor ports.TextExtractor
	cache     ports.Cache
	vectors   ports.VectorStore
	chunker   ports.Chunker
	prompts   ports.PromptStore
	logger    *slog.Logger
	cfg       IngestConfig
}

func NewIngestUseCase(
	extractor ports.TextExtractor,
	cache ports.Cache,
	vectors ports.VectorStore,
	chunker ports.Chunker,
	prompts ports.PromptStore,
	logger *slog.Logger,
	cfg IngestConfig,
) *IngestUseCase {
	return &IngestUseCase{
		extractor: extractor,
		cache:     cache,
		vectors:   vectors,
		chunker:   chunker,
		prompts:   prompts,
		logger:    logger,
		cfg:       cfg,
	}
}

func (u *IngestUseCase) Ingest(ctx context.Context, documentPaths, imagePaths []string) (*domain.IngestResult, error) {
	if len(documentPaths) == 0 && len(imagePaths) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest",
			fmt.Errorf("no documents or images submitted"))
	}

	result := &domain.IngestResult{}
	var limitedParts, completeParts []string

	budget := u.cfg.TextCharBudget
	if len(documentPaths) > 1 {
		budget = u.cfg.TextCharBudget / len(documentPaths)
	}

	for _, path := range documentPaths {
		fullText, err := u.extractor.Extract(ctx, path)
		if err != nil {
			u.logger.Warn("skip unreadable document", "path", path, "error", err)
			result.Skipped++
			continue
		}
		if strings.TrimSpace(fullText) == "" {
			u.logger.Warn("skip empty document", "path", path)
			result.Skipped++
			continue
		}

		limited, err := u.boundDocument(ctx, fullText, budget)
		if err != nil {
			return nil, err
		}

		result.Documents++
		limitedParts = append(limitedParts, wrapBlock("documento", result.Documents, limited))
		completeParts = append(completeParts, wrapBlock("documento", result.Documents, fullText))
	}

	for _, path := range imagePaths {
		text, err := u.extractor.Extract(ctx, path)
		if err != nil {
			u.logger.Warn("skip unreadable image", "path", path, "error", err)
			result.Skipped++
			continue
		}
		if strings.TrimSpace(text) == "" {
			u.logger.Warn("skip image with no recognized text", "path", path)
			result.Skipped++
			continue
		}

		result.Images++
		limitedParts = append(limitedParts, wrapBlock("imagen", result.Images, text))
		completeParts = append(completeParts, wrapBlock("imagen", result.Images, text))
	}

	if result.Documents == 0 && result.Images == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest",
			fmt.Errorf("no readable sources among %d submitted", result.Skipped))
	}

	result.LimitedText = strings.Join(limitedParts, "\n\n")
	result.CompleteText = strings.Join(completeParts, "\n\n")
	return result, nil
}

// boundDocument caches the full text, truncates to the per-document
// budget and augments the truncation with FAQ-probed fragments from the
// overflow remainder.
func (u *IngestUseCase) boundDocument(ctx context.Context, fullText string, budget int) (string, error) {
	fingerprint := canonical.FingerprintText(fullText)
	if err := u.cache.Set(ctx, nsSourceText, fingerprint, fullText, u.cfg.IntermediateTTL); err != nil {
		return "", fmt.Errorf("cache source text: %w", err)
	}

	runes := []rune(fullText)
	if len(runes) <= budget {
		return fullText, nil
	}

	limited := string(runes[:budget])
	fragments, err := u.probeOverflow(ctx, fingerprint, string(runes[budget:]))
	if err != nil {
		return "", err
	}
	if len(fragments) > 0 {
		limited += "\n\n[Fragmentos relevantes del resto del documento]\n" + strings.Join(fragments, "\n---\n")
	}

	if err := u.cache.Set(ctx, nsExtractedData, fingerprint, limited, u.cfg.IntermediateTTL); err != nil {
		return "", fmt.Errorf("cache extracted data: %w", err)
	}
	return limited, nil
}

// probeOverflow indexes the remainder into a content-addressed
// collection, queries it with every FAQ question and deletes the
// collection right after. An existing collection is reused as-is.
func (u *IngestUseCase) probeOverflow(ctx context.Context, fingerprint, remainder string) ([]string, error) {
	chunks := u.chunker.Split(remainder)
	if len(chunks) == 0 {
		return nil, nil
	}

	questions, err := u.prompts.FAQQuestions()
	if err != nil {
		return nil, err
	}

	collection := "doc_" + fingerprint
	exists, err := u.vectors.HasCollection(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("probe overflow collection: %w", err)
	}
	if !exists {
		if err := u.vectors.EnsureCollection(ctx, collection); err != nil {
			return nil, fmt.Errorf("create overflow collection: %w", err)
		}
		if err := u.vectors.UpsertTexts(ctx, collection, chunks); err != nil {
			return nil, fmt.Errorf("index overflow chunks: %w", err)
		}
	}

	perQuery, err := u.vectors.QueryTexts(ctx, collection, questions, u.cfg.FAQTopK)
	if err != nil {
		return nil, fmt.Errorf("query overflow collection: %w", err)
	}

	if err := u.vectors.DeleteCollection(ctx, collection); err != nil {
		u.logger.Warn("delete overflow collection", "collection", collection, "error", err)
	}

	return dedupePreservingOrder(perQuery), nil
}

// dedupePreservingOrder flattens per-query results keeping first
// occurrence order, so earlier questions keep priority.
func dedupePreservingOrder(perQuery [][]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, results := range perQuery {
		for _, text := range results {
			if text == "" || seen[text] {
				continue
			}
			seen[text] = true
			out = append(out, text)
		}
	}
	return out
}

func wrapBlock(kind string, index int, text string) string {
	return fmt.Sprintf("<%s_%d>\n%s\n</%s_%d>", kind, index, strings.TrimSpace(text), kind, index)
}
