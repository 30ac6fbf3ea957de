package ports

import (
	"context"
	"io"

	"github.com/kirillkom/euact-compliance/internal/core/domain"
)

// JobSubmitter is the inbound contract for document upload and job creation.
type JobSubmitter interface {
	Submit(ctx context.Context, filename string, body io.Reader) (*domain.Job, error)
}

// JobProcessor is the inbound contract for asynchronous job execution.
type JobProcessor interface {
	ProcessByID(ctx context.Context, jobID string) error
}

// CorpusIndexer manages the reference corpus collection.
type CorpusIndexer interface {
	IndexCorpus(ctx context.Context, force bool) (int, error)
	Stats(ctx context.Context) (domain.CorpusStats, error)
}

// JobReader is the inbound read model for job state.
type JobReader interface {
	GetByID(ctx context.Context, id string) (*domain.Job, error)
}
