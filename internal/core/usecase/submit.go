package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/euact-compliance/internal/core/domain"
	"github.com/kirillkom/euact-compliance/internal/core/ports"
)

var allowedExtensions = map[string]struct{}{
	".pdf": {},
	".txt": {},
	".md":  {},
}

// SubmitAnalysisUseCase accepts an uploaded document, persists it, creates a
// pending job and dispatches it to the worker queue.
type SubmitAnalysisUseCase struct {
	jobs    ports.JobStore
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	now     func() time.Time
}

func NewSubmitAnalysisUseCase(jobs ports.JobStore, storage ports.ObjectStorage, queue ports.MessageQueue) *SubmitAnalysisUseCase {
	return &SubmitAnalysisUseCase{
		jobs:    jobs,
		storage: storage,
		queue:   queue,
		now:     time.Now,
	}
}

func (uc *SubmitAnalysisUseCase) Submit(ctx context.Context, filename string, body io.Reader) (*domain.Job, error) {
	name := strings.TrimSpace(filename)
	if name == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit", fmt.Errorf("filename is empty"))
	}

	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := allowedExtensions[ext]; !ok {
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "submit", fmt.Errorf("extension %q is not accepted", ext))
	}

	jobID := uuid.NewString()
	storagePath := jobID + "_" + sanitizeFilename(name)

	if err := uc.storage.Save(ctx, storagePath, body); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	job := &domain.Job{
		ID:          jobID,
		Filename:    name,
		StoragePath: storagePath,
		Status:      domain.JobPending,
		CreatedAt:   uc.now().UTC(),
	}
	if err := uc.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if err := uc.queue.PublishJobSubmitted(ctx, jobID); err != nil {
		// The upload and job record survive; the publish failure is surfaced
		// so the caller can retry submission.
		return nil, domain.WrapError(domain.ErrTemporary, "publish job", err)
	}
	return job, nil
}

// sanitizeFilename keeps the stored key flat and shell-safe.
func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
