package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kirillkom/euact-compliance/internal/core/domain"
)

// JobStore is an in-process ports.JobStore for single-node deployments and
// tests. Reads return copies so callers cannot mutate stored state.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*domain.Job)}
}

func (s *JobStore) Create(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *JobStore) GetByID(_ context.Context, id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrJobNotFound, "get job", fmt.Errorf("id %s", id))
	}
	copied := *job
	return &copied, nil
}

func (s *JobStore) MarkProcessing(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.WrapError(domain.ErrJobNotFound, "mark processing", fmt.Errorf("id %s", id))
	}
	if job.Status != domain.JobPending {
		return fmt.Errorf("job %s: cannot move from %s to %s", id, job.Status, domain.JobProcessing)
	}
	job.Status = domain.JobProcessing
	return nil
}

func (s *JobStore) Complete(_ context.Context, id string, analysis *domain.Analysis, metrics *domain.EvaluationMetrics, judge *domain.JudgeVerdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.WrapError(domain.ErrJobNotFound, "complete job", fmt.Errorf("id %s", id))
	}
	if job.Status != domain.JobProcessing {
		return fmt.Errorf("job %s: cannot complete from %s", id, job.Status)
	}
	job.Status = domain.JobCompleted
	job.Analysis = analysis
	job.Metrics = metrics
	job.Judge = judge
	now := time.Now().UTC()
	job.CompletedAt = &now
	return nil
}

func (s *JobStore) Fail(_ context.Context, id string, errMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.WrapError(domain.ErrJobNotFound, "fail job", fmt.Errorf("id %s", id))
	}
	if job.Status.Terminal() {
		return fmt.Errorf("job %s: cannot fail from terminal status %s", id, job.Status)
	}
	job.Status = domain.JobFailed
	job.Error = errMessage
	now := time.Now().UTC()
	job.CompletedAt = &now
	return nil
}
