package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirillkom/euact-compliance/internal/core/domain"
)

type fakeSubmitter struct {
	job *domain.Job
	err error
}

func (f *fakeSubmitter) Submit(_ context.Context, filename string, _ io.Reader) (*domain.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	job := *f.job
	job.Filename = filename
	return &job, nil
}

type fakeJobReader struct {
	jobs map[string]*domain.Job
}

func (f *fakeJobReader) GetByID(_ context.Context, id string) (*domain.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrJobNotFound, "get job", fmt.Errorf("id %s", id))
	}
	return job, nil
}

type fakeIndexer struct {
	count     int
	lastForce bool
	err       error
}

func (f *fakeIndexer) IndexCorpus(_ context.Context, force bool) (int, error) {
	f.lastForce = force
	return f.count, f.err
}

func (f *fakeIndexer) Stats(context.Context) (domain.CorpusStats, error) {
	if f.err != nil {
		return domain.CorpusStats{}, f.err
	}
	return domain.CorpusStats{Collection: "eu_ai_act", Chunks: f.count, Indexed: f.count > 0}, nil
}

type fakePathReporter struct{ dir string }

func (f *fakePathReporter) Render(context.Context, string, *domain.Analysis, *domain.EvaluationMetrics, *domain.JudgeVerdict) (string, error) {
	return "", nil
}

func (f *fakePathReporter) ReportPath(jobID string) string {
	return f.dir + "/" + jobID + ".xlsx"
}

func testRouter(submitter *fakeSubmitter, jobs *fakeJobReader, indexer *fakeIndexer, cfg RouterConfig) http.Handler {
	if submitter == nil {
		submitter = &fakeSubmitter{job: &domain.Job{ID: "j-1", Status: domain.JobPending}}
	}
	if jobs == nil {
		jobs = &fakeJobReader{jobs: map[string]*domain.Job{}}
	}
	if indexer == nil {
		indexer = &fakeIndexer{}
	}
	return NewRouter(submitter, jobs, indexer, &fakePathReporter{dir: "/tmp"}, nil, cfg).Handler()
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestSubmitAnalysisReturnsAcceptedJob(t *testing.T) {
	handler := testRouter(nil, nil, nil, RouterConfig{})

	body, contentType := multipartBody(t, "project.txt", "An AI system description.")
	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body %s", rec.Code, rec.Body.String())
	}
	var job domain.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if job.ID != "j-1" || job.Status != domain.JobPending {
		t.Fatalf("unexpected job %+v", job)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("request id header missing")
	}
}

func TestSubmitAnalysisMapsUnsupportedFormatTo400(t *testing.T) {
	submitter := &fakeSubmitter{err: domain.WrapError(domain.ErrUnsupportedFormat, "submit", fmt.Errorf("extension .pptx"))}
	handler := testRouter(submitter, nil, nil, RouterConfig{})

	body, contentType := multipartBody(t, "slides.pptx", "x")
	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSubmitAnalysisRequiresMultipartFile(t *testing.T) {
	handler := testRouter(nil, nil, nil, RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", bytes.NewReader([]byte("not multipart")))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetAnalysisMissingJobReturns404(t *testing.T) {
	handler := testRouter(nil, nil, nil, RouterConfig{})

	req := httptest.NewRequest(http.MethodGet, "/v1/analyses/missing", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetAnalysisReturnsJobState(t *testing.T) {
	jobs := &fakeJobReader{jobs: map[string]*domain.Job{
		"j-9": {ID: "j-9", Status: domain.JobProcessing, CreatedAt: time.Now().UTC()},
	}}
	handler := testRouter(nil, jobs, nil, RouterConfig{})

	req := httptest.NewRequest(http.MethodGet, "/v1/analyses/j-9", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var job domain.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if job.ID != "j-9" || job.Status != domain.JobProcessing {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestDownloadReportRejectsNonCompletedJob(t *testing.T) {
	jobs := &fakeJobReader{jobs: map[string]*domain.Job{
		"j-9": {ID: "j-9", Status: domain.JobProcessing},
	}}
	handler := testRouter(nil, jobs, nil, RouterConfig{})

	req := httptest.NewRequest(http.MethodGet, "/v1/analyses/j-9/report", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestIndexCorpusParsesForceFlag(t *testing.T) {
	indexer := &fakeIndexer{count: 128}
	handler := testRouter(nil, nil, indexer, RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/v1/corpus/index?force=true", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if !indexer.lastForce {
		t.Fatalf("force flag not propagated")
	}

	var resp struct {
		TotalChunks int  `json:"total_chunks"`
		Forced      bool `json:"forced"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalChunks != 128 || !resp.Forced {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestIndexCorpusRejectsMalformedForce(t *testing.T) {
	handler := testRouter(nil, nil, nil, RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/v1/corpus/index?force=banana", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCorpusStatsEndpoint(t *testing.T) {
	handler := testRouter(nil, nil, &fakeIndexer{count: 7}, RouterConfig{})

	req := httptest.NewRequest(http.MethodGet, "/v1/corpus/stats", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var stats domain.CorpusStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if stats.Chunks != 7 || !stats.Indexed || stats.Collection != "eu_ai_act" {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestHealthz(t *testing.T) {
	handler := testRouter(nil, nil, nil, RouterConfig{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
