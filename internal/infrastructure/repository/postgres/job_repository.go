package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/euact-compliance/internal/core/domain"
)

// JobRepository implements ports.JobStore on Postgres. Status transitions are
// guarded in SQL so a stale worker cannot move a job out of a terminal state.
type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *JobRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS analysis_jobs (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	status TEXT NOT NULL,
	analysis JSONB,
	metrics JSONB,
	judge JSONB,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_analysis_jobs_status ON analysis_jobs(status);
CREATE INDEX IF NOT EXISTS idx_analysis_jobs_created_at ON analysis_jobs(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO analysis_jobs (id, filename, storage_path, status, error_message, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, job.ID, job.Filename, job.StoragePath, string(job.Status), job.Error, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, storage_path, status, analysis, metrics, judge, error_message, created_at, completed_at
FROM analysis_jobs
WHERE id = $1
`, id)

	var job domain.Job
	var status string
	var analysisRaw, metricsRaw, judgeRaw []byte

	err := row.Scan(
		&job.ID, &job.Filename, &job.StoragePath, &status,
		&analysisRaw, &metricsRaw, &judgeRaw,
		&job.Error, &job.CreatedAt, &job.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrJobNotFound, "get job", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	job.Status = domain.JobStatus(status)

	if len(analysisRaw) > 0 {
		if err := json.Unmarshal(analysisRaw, &job.Analysis); err != nil {
			return nil, fmt.Errorf("unmarshal analysis: %w", err)
		}
	}
	if len(metricsRaw) > 0 {
		if err := json.Unmarshal(metricsRaw, &job.Metrics); err != nil {
			return nil, fmt.Errorf("unmarshal metrics: %w", err)
		}
	}
	if len(judgeRaw) > 0 {
		if err := json.Unmarshal(judgeRaw, &job.Judge); err != nil {
			return nil, fmt.Errorf("unmarshal judge verdict: %w", err)
		}
	}
	return &job, nil
}

func (r *JobRepository) MarkProcessing(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE analysis_jobs
SET status = $2
WHERE id = $1 AND status = $3
`, id, string(domain.JobProcessing), string(domain.JobPending))
	if err != nil {
		return fmt.Errorf("mark job processing: %w", err)
	}
	return requireTransition(result, id)
}

func (r *JobRepository) Complete(ctx context.Context, id string, analysis *domain.Analysis, metrics *domain.EvaluationMetrics, judge *domain.JudgeVerdict) error {
	analysisJSON, err := marshalNullable(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	metricsJSON, err := marshalNullable(metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	judgeJSON, err := marshalNullable(judge)
	if err != nil {
		return fmt.Errorf("marshal judge verdict: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE analysis_jobs
SET status = $2, analysis = $3, metrics = $4, judge = $5, completed_at = $6
WHERE id = $1 AND status = $7
`, id, string(domain.JobCompleted), analysisJSON, metricsJSON, judgeJSON, time.Now().UTC(), string(domain.JobProcessing))
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return requireTransition(result, id)
}

func (r *JobRepository) Fail(ctx context.Context, id string, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE analysis_jobs
SET status = $2, error_message = $3, completed_at = $4
WHERE id = $1 AND status IN ($5, $6)
`, id, string(domain.JobFailed), errMessage, time.Now().UTC(), string(domain.JobPending), string(domain.JobProcessing))
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return requireTransition(result, id)
}

func requireTransition(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("job %s: no eligible row for status transition", id)
	}
	return nil
}

// marshalNullable maps a nil record to SQL NULL instead of the JSON "null".
func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
