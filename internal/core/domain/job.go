package domain

import "time"

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

type Job struct {
	ID          string             `json:"job_id"`
	Filename    string             `json:"filename"`
	StoragePath string             `json:"-"`
	Status      JobStatus          `json:"status"`
	Analysis    *Analysis          `json:"project_analysis,omitempty"`
	Metrics     *EvaluationMetrics `json:"evaluation_metrics,omitempty"`
	Judge       *JudgeVerdict      `json:"llm_judge_result,omitempty"`
	Error       string             `json:"error_message,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}
