package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/euact-compliance/internal/config"
	"github.com/kirillkom/euact-compliance/internal/core/ports"
	"github.com/kirillkom/euact-compliance/internal/core/usecase"
	"github.com/kirillkom/euact-compliance/internal/infrastructure/chunking"
	"github.com/kirillkom/euact-compliance/internal/infrastructure/extractor/document"
	"github.com/kirillkom/euact-compliance/internal/infrastructure/llm/azureopenai"
	"github.com/kirillkom/euact-compliance/internal/infrastructure/queue/nats"
	"github.com/kirillkom/euact-compliance/internal/infrastructure/repository/memory"
	"github.com/kirillkom/euact-compliance/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/euact-compliance/internal/infrastructure/resilience"
	"github.com/kirillkom/euact-compliance/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/euact-compliance/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/euact-compliance/internal/report/excel"
)

type App struct {
	Config config.Config

	Queue    ports.MessageQueue
	Jobs     ports.JobStore
	Reporter ports.ReportRenderer

	SubmitUC  ports.JobSubmitter
	ProcessUC ports.JobProcessor
	IndexUC   ports.CorpusIndexer

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	jobs, db, err := newJobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init upload storage: %w", err)
	}
	corpusStorage, err := localfs.New(cfg.CorpusPath)
	if err != nil {
		return nil, fmt.Errorf("init corpus storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.Config{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   time.Duration(cfg.RetryBaseDelayMS) * time.Millisecond,
	})

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	azureClient := azureopenai.New(
		cfg.AzureOpenAI.Endpoint,
		cfg.AzureOpenAI.APIKey,
		cfg.AzureOpenAI.APIVersion,
		cfg.AzureOpenAI.ChatDeployment,
		cfg.AzureOpenAI.EmbedDeployment,
		executor,
	)
	model := azureopenai.NewModel(azureClient)
	embedder := azureopenai.NewEmbedder(azureClient)

	vectorIndex := qdrant.NewClient(cfg.QdrantURL, cfg.EmbeddingDim)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	extractor := document.NewExtractor()

	reporter, err := excel.NewGenerator(cfg.ReportPath)
	if err != nil {
		return nil, fmt.Errorf("init report generator: %w", err)
	}

	retriever := usecase.NewRetrieveContextUseCase(embedder, vectorIndex, cfg.CorpusCollection, cfg.RetrievalTopK)
	scorer := usecase.NewScorer(parseScorerConfig(cfg.EvalMetrics))

	submitUC := usecase.NewSubmitAnalysisUseCase(jobs, storage, queue)
	processUC := usecase.NewAnalyzeJobUseCase(jobs, storage, extractor, chunker, retriever, model, scorer, reporter, cfg.JudgeEnabled)
	indexUC := usecase.NewIndexCorpusUseCase(corpusStorage, extractor, chunker, embedder, vectorIndex, cfg.CorpusCollection, cfg.CorpusPDFName)

	return &App{
		Config: cfg,

		Queue:    queue,
		Jobs:     jobs,
		Reporter: reporter,

		SubmitUC:  submitUC,
		ProcessUC: processUC,
		IndexUC:   indexUC,

		closeFn: func() {
			queue.Close()
			if db != nil {
				_ = db.Close()
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newJobStore(ctx context.Context, cfg config.Config) (ports.JobStore, *sql.DB, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.JobStoreBackend)) {
	case "memory":
		return memory.NewJobStore(), nil, nil
	case "postgres", "":
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewJobRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return repo, db, nil
	default:
		return nil, nil, fmt.Errorf("unknown job store backend %q", cfg.JobStoreBackend)
	}
}

// parseScorerConfig maps the comma-separated metric list onto the scorer
// flags. Unknown names are ignored so a typo disables one metric, not all.
func parseScorerConfig(raw string) usecase.ScorerConfig {
	var out usecase.ScorerConfig
	for _, name := range strings.Split(raw, ",") {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "faithfulness":
			out.Faithfulness = true
		case "answer_relevance":
			out.AnswerRelevance = true
		case "context_precision":
			out.ContextPrecision = true
		case "context_recall":
			out.ContextRecall = true
		}
	}
	return out
}
