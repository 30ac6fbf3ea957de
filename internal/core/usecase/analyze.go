package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/euact-compliance/internal/core/domain"
	"github.com/kirillkom/euact-compliance/internal/core/ports"
)

// AnalyzeJobUseCase drives a submitted job through its lifecycle: extract,
// retrieve context, analyze, score, judge, render. Exactly one terminal
// transition happens per run; any fatal stage failure records the job as
// failed with the stage error verbatim.
type AnalyzeJobUseCase struct {
	jobs         ports.JobStore
	storage      ports.ObjectStorage
	extractor    ports.TextExtractor
	chunker      ports.Chunker
	retriever    ports.ContextRetriever
	model        ports.AnalysisModel
	scorer       *Scorer
	reporter     ports.ReportRenderer
	judgeEnabled bool
}

func NewAnalyzeJobUseCase(
	jobs ports.JobStore,
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	retriever ports.ContextRetriever,
	model ports.AnalysisModel,
	scorer *Scorer,
	reporter ports.ReportRenderer,
	judgeEnabled bool,
) *AnalyzeJobUseCase {
	return &AnalyzeJobUseCase{
		jobs:         jobs,
		storage:      storage,
		extractor:    extractor,
		chunker:      chunker,
		retriever:    retriever,
		model:        model,
		scorer:       scorer,
		reporter:     reporter,
		judgeEnabled: judgeEnabled,
	}
}

func (uc *AnalyzeJobUseCase) ProcessByID(ctx context.Context, jobID string) error {
	started := time.Now()

	job, err := uc.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if job.Status.Terminal() {
		slog.Info("job_already_terminal", "job_id", jobID, "status", job.Status)
		return nil
	}

	if err := uc.jobs.MarkProcessing(ctx, jobID); err != nil {
		return fmt.Errorf("mark job %s processing: %w", jobID, err)
	}

	if err := uc.run(ctx, job); err != nil {
		slog.Error("job_failed", "job_id", jobID, "duration_ms", time.Since(started).Milliseconds(), "error", err)
		if failErr := uc.jobs.Fail(ctx, jobID, err.Error()); failErr != nil {
			slog.Error("job_fail_transition_failed", "job_id", jobID, "error", failErr)
		}
		return err
	}

	slog.Info("job_completed", "job_id", jobID, "duration_ms", time.Since(started).Milliseconds())
	return nil
}

func (uc *AnalyzeJobUseCase) run(ctx context.Context, job *domain.Job) error {
	reader, err := uc.storage.Open(ctx, job.StoragePath)
	if err != nil {
		return fmt.Errorf("open document: %w", err)
	}
	defer reader.Close()

	text, err := uc.extractor.Extract(ctx, job.Filename, reader)
	if err != nil {
		return err
	}

	// A document that produces no chunks has no analyzable content; failing
	// here is cheaper than a model round-trip on empty input.
	if chunks := uc.chunker.Split(text); len(chunks) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "chunk document", fmt.Errorf("document has no analyzable text"))
	}

	passages, err := uc.retriever.Retrieve(ctx, text)
	if err != nil {
		return err
	}

	analysis, err := uc.model.Analyze(ctx, text, passages)
	if err != nil {
		return err
	}

	metrics := uc.scorer.Evaluate(text, analysis, passages)

	var judge *domain.JudgeVerdict
	if uc.judgeEnabled {
		judge, err = uc.model.Judge(ctx, text, analysis, passages)
		if err != nil {
			// The verdict is advisory; the job completes without it.
			slog.Warn("judge_call_failed", "job_id", job.ID, "error", err)
			judge = nil
		}
	}

	if _, err := uc.reporter.Render(ctx, job.ID, analysis, metrics, judge); err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	return uc.jobs.Complete(ctx, job.ID, analysis, metrics, judge)
}
