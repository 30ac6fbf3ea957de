package memory

import (
	"context"
	"testing"
	"time"

	"github.com/kirillkom/euact-compliance/internal/core/domain"
)

func pendingJob(id string) *domain.Job {
	return &domain.Job{
		ID:        id,
		Filename:  "doc.txt",
		Status:    domain.JobPending,
		CreatedAt: time.Now().UTC(),
	}
}

func TestJobStoreLifecycle(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()

	if err := store.Create(ctx, pendingJob("j-1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.MarkProcessing(ctx, "j-1"); err != nil {
		t.Fatalf("MarkProcessing() error = %v", err)
	}

	analysis := &domain.Analysis{ProjectName: "P"}
	metrics := &domain.EvaluationMetrics{OverallScore: 0.9}
	if err := store.Complete(ctx, "j-1", analysis, metrics, nil); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	job, err := store.GetByID(ctx, "j-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if job.Status != domain.JobCompleted || job.CompletedAt == nil {
		t.Fatalf("unexpected completed job %+v", job)
	}
}

func TestJobStoreGetMissingJobIsNotFound(t *testing.T) {
	store := NewJobStore()
	_, err := store.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestJobStoreTerminalStateIsImmutable(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()

	if err := store.Create(ctx, pendingJob("j-1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.MarkProcessing(ctx, "j-1"); err != nil {
		t.Fatalf("MarkProcessing() error = %v", err)
	}
	if err := store.Fail(ctx, "j-1", "boom"); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}

	if err := store.Fail(ctx, "j-1", "again"); err == nil {
		t.Fatalf("failing a failed job must be rejected")
	}
	if err := store.MarkProcessing(ctx, "j-1"); err == nil {
		t.Fatalf("reprocessing a failed job must be rejected")
	}
	if err := store.Complete(ctx, "j-1", nil, nil, nil); err == nil {
		t.Fatalf("completing a failed job must be rejected")
	}

	job, err := store.GetByID(ctx, "j-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if job.Status != domain.JobFailed || job.Error != "boom" {
		t.Fatalf("terminal job mutated: %+v", job)
	}
}

func TestJobStoreReadsReturnCopies(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()

	if err := store.Create(ctx, pendingJob("j-1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	first, _ := store.GetByID(ctx, "j-1")
	first.Status = domain.JobCompleted
	first.Error = "mutated"

	second, _ := store.GetByID(ctx, "j-1")
	if second.Status != domain.JobPending || second.Error != "" {
		t.Fatalf("caller mutation leaked into store: %+v", second)
	}
}

func TestJobStoreRejectsDuplicateIDs(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()

	if err := store.Create(ctx, pendingJob("j-1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.Create(ctx, pendingJob("j-1")); err == nil {
		t.Fatalf("duplicate id must be rejected")
	}
}
