package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/juzgadolab/sentencia-ciudadana/internal/config"
	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
	"github.com/juzgadolab/sentencia-ciudadana/internal/core/ports"
	"github.com/juzgadolab/sentencia-ciudadana/internal/core/usecase"
	"github.com/juzgadolab/sentencia-ciudadana/internal/infrastructure/chunking"
	"github.com/juzgadolab/sentencia-ciudadana/internal/infrastructure/extractor"
	"github.com/juzgadolab/sentencia-ciudadana/internal/infrastructure/extractor/ocrhttp"
	"github.com/juzgadolab/sentencia-ciudadana/internal/infrastructure/extractor/pdfread"
	"github.com/juzgadolab/sentencia-ciudadana/internal/infrastructure/extractor/plaintext"
	"github.com/juzgadolab/sentencia-ciudadana/internal/infrastructure/language"
	"github.com/juzgadolab/sentencia-ciudadana/internal/infrastructure/llm/ollama"
	"github.com/juzgadolab/sentencia-ciudadana/internal/infrastructure/llm/openaicompat"
	"github.com/juzgadolab/sentencia-ciudadana/internal/infrastructure/queue/nats"
	"github.com/juzgadolab/sentencia-ciudadana/internal/infrastructure/repository/postgres"
	"github.com/juzgadolab/sentencia-ciudadana/internal/infrastructure/resilience"
	"github.com/juzgadolab/sentencia-ciudadana/internal/infrastructure/templates"
	"github.com/juzgadolab/sentencia-ciudadana/internal/infrastructure/vector/qdrant"
)

// App wires the full dependency graph once for both binaries. The api
// consumes the inbound ports; the worker registers stage handlers on
// the task runner and subscribes.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue  *nats.Queue
	Runner *usecase.TaskRunner

	Submitter ports.BriefSubmitter
	Reader    ports.BriefReader
	Changes   ports.ChangeRequester
	Feedback  ports.FeedbackRecorder

	generate    *usecase.GenerateUseCase
	update      *usecase.UpdateUseCase
	feedbackIdx ports.FeedbackVectorIndex

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, service string) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts: cfg.TaskMaxAttempts,
	})

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubjectPrefix, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init task queue: %w", err)
	}

	provider, embedder, err := buildProvider(ctx, cfg, executor)
	if err != nil {
		queue.Close()
		return nil, err
	}

	cache := postgres.NewCacheStore(db)
	feedbackLog := postgres.NewFeedbackStore(db)
	audit := postgres.NewAuditStore(db)
	stages := postgres.NewStageStore(db)
	reviews := postgres.NewReviewStore(db)

	vectorStore := qdrant.New(cfg.QdrantURL, embedder)
	feedbackIdx := qdrant.NewFeedbackIndex(vectorStore, cfg.FeedbackCollection)
	prompts := templates.NewStore(cfg.ContextDir)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	detector := language.New()
	dispatcher := extractor.NewDispatcher(
		plaintext.New(),
		pdfread.New(),
		ocrhttp.New(cfg.OCRServiceURL),
	)

	runner := usecase.NewTaskRunner(executor, audit, stages, queue, logger, service)

	ingest := usecase.NewIngestUseCase(dispatcher, cache, vectorStore, chunker, prompts, logger, usecase.IngestConfig{
		TextCharBudget:  cfg.TextCharBudget,
		FAQTopK:         cfg.FAQTopK,
		IntermediateTTL: cfg.IntermediateTTL(),
	})
	assemble := usecase.NewAssembleUseCase(prompts, cache, feedbackLog, feedbackIdx, logger, usecase.AssembleConfig{
		Strategy:        domain.FeedbackStrategy(cfg.FeedbackStrategy),
		RecentN:         cfg.FeedbackRecentN,
		TopK:            cfg.FeedbackTopK,
		EmbedChars:      cfg.FeedbackEmbedChars,
		IntermediateTTL: cfg.IntermediateTTL(),
	})
	generate := usecase.NewGenerateUseCase(provider, cache, detector, prompts, reviews, logger, usecase.GenerateConfig{
		LanguageSampleChars: cfg.LanguageSampleChars,
		BriefTTL:            cfg.BriefTTL(),
	})
	update := usecase.NewUpdateUseCase(provider, cache, prompts, reviews, logger, usecase.UpdateConfig{
		BriefTTL: cfg.BriefTTL(),
	})

	return &App{
		Config:      cfg,
		Logger:      logger,
		Queue:       queue,
		Runner:      runner,
		Submitter:   usecase.NewSubmitUseCase(ingest, assemble, runner),
		Reader:      usecase.NewBriefReadUseCase(cache, audit, logger),
		Changes:     usecase.NewChangeRequestUseCase(runner, audit, logger),
		Feedback:    usecase.NewFeedbackUseCase(feedbackLog, runner, domain.FeedbackStrategy(cfg.FeedbackStrategy)),
		generate:    generate,
		update:      update,
		feedbackIdx: feedbackIdx,
		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// RegisterWorkerHandlers binds the asynchronous stages the worker
// serves. The api binary never calls this.
func (a *App) RegisterWorkerHandlers() {
	a.Runner.Register(domain.StageGeneration, func(ctx context.Context, envelope domain.TaskEnvelope) error {
		return a.generate.Generate(ctx, envelope.Fingerprint)
	})
	a.Runner.Register(domain.StageUpdate, func(ctx context.Context, envelope domain.TaskEnvelope) error {
		return a.update.Apply(ctx, envelope.Fingerprint, envelope.Args["sentence"], envelope.Args["changes"])
	})
	a.Runner.Register(domain.StageFeedbackIndex, func(ctx context.Context, envelope domain.TaskEnvelope) error {
		return a.feedbackIdx.IndexFeedback(ctx, domain.FeedbackEntry{
			ID:        envelope.Args["id"],
			Text:      envelope.Args["text"],
			CreatedAt: time.Now().UTC(),
		})
	})
}

func buildProvider(ctx context.Context, cfg config.Config, executor *resilience.Executor) (ports.ModelProvider, ports.Embedder, error) {
	// Embeddings always come from the local backend; hosted providers
	// only replace the chat surface.
	ollamaClient := ollama.New(cfg.OllamaURL, cfg.GenModel, cfg.EmbedModel).WithExecutor(executor)
	embedder := ollama.NewEmbedder(ollamaClient)

	switch cfg.Provider {
	case "", "ollama":
		if err := ollamaClient.CheckModel(ctx); err != nil {
			return nil, nil, err
		}
		return ollamaClient, embedder, nil
	case "openai":
		if cfg.OpenAIBaseURL == "" {
			return nil, nil, domain.WrapError(domain.ErrConfig, "bootstrap",
				fmt.Errorf("provider %q requires PROVIDER_BASE_URL", cfg.Provider))
		}
		client := openaicompat.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.GenModel).WithExecutor(executor)
		return client, embedder, nil
	default:
		return nil, nil, domain.WrapError(domain.ErrConfig, "bootstrap",
			fmt.Errorf("unknown provider %q", cfg.Provider))
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
