package usecase

import (
	"context"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
	"github.com/juzgadolab/sentencia-ciudadana/internal/core/ports"
)

// SubmitUseCase is the request-path pipeline head: ingestion and prompt
// assembly run synchronously (the extraction stage, audited like any
// other), then the generation stage is enqueued for the worker. The
// caller gets the fingerprint immediately and polls for the brief.
type SubmitUseCase struct {
	ingest   *IngestUseCase
	assemble *AssembleUseCase
	runner   *TaskRunner
}

func NewSubmitUseCase(ingest *IngestUseCase, assemble *AssembleUseCase, runner *TaskRunner) *SubmitUseCase {
	return &SubmitUseCase{
		ingest:   ingest,
		assemble: assemble,
		runner:   runner,
	}
}

func (u *SubmitUseCase) Submit(ctx context.Context, documentPaths, imagePaths []string) (*ports.SubmitReceipt, error) {
	var receipt *ports.SubmitReceipt

	err := u.runner.Run(ctx, domain.StageExtraction, "", func(runCtx context.Context) (string, error) {
		result, err := u.ingest.Ingest(runCtx, documentPaths, imagePaths)
		if err != nil {
			return "", err
		}
		fingerprint, _, err := u.assemble.Assemble(runCtx, result.LimitedText)
		if err != nil {
			return "", err
		}
		receipt = &ports.SubmitReceipt{
			Fingerprint:  fingerprint,
			CompleteText: result.CompleteText,
			Documents:    result.Documents,
			Images:       result.Images,
			Skipped:      result.Skipped,
		}
		return fingerprint, nil
	})
	if err != nil {
		return nil, err
	}

	if err := u.runner.Enqueue(ctx, domain.StageGeneration, receipt.Fingerprint, nil); err != nil {
		return nil, err
	}
	return receipt, nil
}
