package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/euact-compliance/internal/core/domain"
	"github.com/kirillkom/euact-compliance/internal/core/ports"
	"github.com/kirillkom/euact-compliance/internal/observability/metrics"
)

type Router struct {
	submitter     ports.JobSubmitter
	jobs          ports.JobReader
	indexer       ports.CorpusIndexer
	reporter      ports.ReportRenderer
	httpMetrics   *metrics.HTTPServerMetrics
	maxUploadSize int64
	rateLimit     *trafficControl
}

type RouterConfig struct {
	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(
	submitter ports.JobSubmitter,
	jobs ports.JobReader,
	indexer ports.CorpusIndexer,
	reporter ports.ReportRenderer,
	httpMetrics *metrics.HTTPServerMetrics,
	cfg RouterConfig,
) *Router {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 20 << 20
	}
	return &Router{
		submitter:     submitter,
		jobs:          jobs,
		indexer:       indexer,
		reporter:      reporter,
		httpMetrics:   httpMetrics,
		maxUploadSize: maxUpload,
		rateLimit:     newTrafficControl(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/analyses", rt.submitAnalysis)
	mux.HandleFunc("/v1/analyses/", rt.analysisSubroutes)
	mux.HandleFunc("/v1/corpus/index", rt.indexCorpus)
	mux.HandleFunc("/v1/corpus/stats", rt.corpusStats)
	if rt.httpMetrics != nil {
		mux.Handle("/metrics", rt.httpMetrics.Handler())
	}

	var handler http.Handler = mux
	handler = rt.rateLimit.middleware(handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	if rt.httpMetrics != nil {
		handler = rt.httpMetrics.Middleware("api", handler)
	}
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) submitAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadSize)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		rt.recordSubmission("rejected")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	job, err := rt.submitter.Submit(r.Context(), fileHeader.Filename, file)
	if err != nil {
		rt.recordSubmission("rejected")
		writeError(w, err)
		return
	}

	rt.recordSubmission("accepted")
	writeJSON(w, http.StatusAccepted, job)
}

func (rt *Router) analysisSubroutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/analyses/")
	if rest == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "job id is required"})
		return
	}

	if jobID, ok := strings.CutSuffix(rest, "/report"); ok {
		rt.downloadReport(w, r, jobID)
		return
	}
	rt.getAnalysis(w, r, rest)
}

func (rt *Router) getAnalysis(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := rt.jobs.GetByID(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (rt *Router) downloadReport(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := rt.jobs.GetByID(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	if job.Status != domain.JobCompleted {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":  "report is only available for completed jobs",
			"status": string(job.Status),
		})
		return
	}

	path := rt.reporter.ReportPath(jobID)
	w.Header().Set("Content-Disposition", `attachment; filename="compliance_report_`+jobID+`.xlsx"`)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	http.ServeFile(w, r, path)
}

func (rt *Router) indexCorpus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	force := false
	if raw := r.URL.Query().Get("force"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "force must be a boolean"})
			return
		}
		force = parsed
	}

	count, err := rt.indexer.IndexCorpus(r.Context(), force)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"total_chunks": count, "forced": force})
}

func (rt *Router) corpusStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	stats, err := rt.indexer.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) recordSubmission(outcome string) {
	if rt.httpMetrics != nil {
		rt.httpMetrics.RecordSubmission("api", outcome)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
