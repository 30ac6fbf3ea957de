package ports

import (
	"context"
	"io"

	"github.com/kirillkom/euact-compliance/internal/core/domain"
)

// JobStore persists job state. Implementations must refuse transitions out of
// a terminal status.
type JobStore interface {
	Create(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	MarkProcessing(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, analysis *domain.Analysis, metrics *domain.EvaluationMetrics, judge *domain.JudgeVerdict) error
	Fail(ctx context.Context, id string, errMessage string) error
}

// ObjectStorage stores uploaded source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue dispatches submitted jobs to workers.
type MessageQueue interface {
	PublishJobSubmitted(ctx context.Context, jobID string) error
	SubscribeJobSubmitted(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor pulls cleaned plain text out of a source document stream.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Chunker splits cleaned text into overlapping, size-bounded segments.
type Chunker interface {
	Split(text string) []string
}

// Embedder maps text to fixed-length vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex persists index points per named collection and answers
// nearest-neighbor queries. Querying an absent collection yields an empty
// result, not an error.
type VectorIndex interface {
	Upsert(ctx context.Context, collection string, points []domain.IndexPoint) error
	Query(ctx context.Context, collection string, vector []float32, topK int) ([]domain.ContextPassage, error)
	Count(ctx context.Context, collection string) (int, error)
	Clear(ctx context.Context, collection string) error
}

// AnalysisModel produces the structured compliance analysis and, separately,
// a judge verdict over an existing analysis.
type AnalysisModel interface {
	Analyze(ctx context.Context, documentText string, passages []domain.ContextPassage) (*domain.Analysis, error)
	Judge(ctx context.Context, documentText string, analysis *domain.Analysis, passages []domain.ContextPassage) (*domain.JudgeVerdict, error)
}

// ContextRetriever reformulates a document into a search query and fetches
// the top-k reference passages.
type ContextRetriever interface {
	Retrieve(ctx context.Context, documentText string) ([]domain.ContextPassage, error)
}

// ReportRenderer writes a spreadsheet report for a finished analysis and
// locates it afterwards.
type ReportRenderer interface {
	Render(ctx context.Context, jobID string, analysis *domain.Analysis, metrics *domain.EvaluationMetrics, judge *domain.JudgeVerdict) (string, error)
	ReportPath(jobID string) string
}
