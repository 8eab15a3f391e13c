// Package api exposes the HTTP interface for the crawl service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pagehound/pagehound/internal/config"
	"github.com/pagehound/pagehound/internal/crawler"
	"github.com/pagehound/pagehound/internal/worker"
)

// Enqueuer accepts jobs for asynchronous processing. The dispatcher
// satisfies this.
type Enqueuer interface {
	Enqueue(ctx context.Context, item crawler.QueueItem) error
}

// Server wires HTTP handlers to the queue, stores, and cancel registry.
type Server struct {
	router   chi.Router
	jobStore crawler.JobStore
	enqueuer Enqueuer
	cancels  *worker.Canceller
	idGen    crawler.IDGenerator
	clock    crawler.Clock
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	jobStore crawler.JobStore,
	enqueuer Enqueuer,
	cancels *worker.Canceller,
	idGen crawler.IDGenerator,
	clock crawler.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		jobStore: jobStore,
		enqueuer: enqueuer,
		cancels:  cancels,
		idGen:    idGen,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.submitJob)
			r.Route("/{job_id}", func(r chi.Router) {
				r.Get("/status", s.getJobStatus)
				r.Get("/result", s.getJobResult)
				r.Post("/cancel", s.cancelJob)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type submitJobRequest struct {
	SeedURL             string `json:"seed_url"`
	MaxPages            *int   `json:"max_pages"`
	MaxDocuments        *int   `json:"max_documents"`
	MaxDepth            *int   `json:"max_depth"`
	PerRequestTimeoutMS *int64 `json:"per_request_timeout_ms"`
	TotalTimeoutMS      *int64 `json:"total_timeout_ms"`
}

func (s *Server) submitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	params, err := s.toJobParameters(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	jobID, err := s.enqueueJob(r.Context(), params)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusRequestTimeout
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) getJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": job})
}

type jobResult struct {
	Job       crawler.Job              `json:"job"`
	Pages     []crawler.PageRecord     `json:"pages"`
	Documents []crawler.DocumentRecord `json:"documents"`
	Skipped   []crawler.SkippedURL     `json:"skipped,omitempty"`
}

func (s *Server) getJobResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	pages, err := s.jobStore.ListPages(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch job pages")
		return
	}
	docs, err := s.jobStore.ListDocuments(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch job documents")
		return
	}
	skips, err := s.jobStore.ListSkips(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch job skips")
		return
	}
	writeJSON(w, http.StatusOK, jobResult{Job: job, Pages: pages, Documents: docs, Skipped: skips})
}

// cancelJob flags the job for cooperative cancellation. The worker notices
// the flag between traversal steps and records the terminal state itself,
// so an already finished job is reported as a conflict here.
func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Status.IsTerminal() {
		writeError(w, http.StatusConflict, "job already finished")
		return
	}
	s.cancels.Cancel(jobID)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": "cancellation requested",
	})
}

func (s *Server) enqueueJob(ctx context.Context, params crawler.JobParameters) (string, error) {
	jobID, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	domain, err := crawler.Hostname(params.SeedURL)
	if err != nil {
		return "", fmt.Errorf("invalid seed url: %w", err)
	}
	now := s.clock.Now()
	job := crawler.Job{
		ID:            jobID,
		Status:        crawler.JobStatusPending,
		AllowedDomain: domain,
		Submitted:     now,
		Parameters:    params,
	}
	if err := s.jobStore.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	queueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	item := crawler.QueueItem{
		JobID:     jobID,
		Params:    params,
		Submitted: now.Unix(),
	}
	if err := s.enqueuer.Enqueue(queueCtx, item); err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	return jobID, nil
}

func (s *Server) toJobParameters(req submitJobRequest) (crawler.JobParameters, error) {
	if req.SeedURL == "" {
		return crawler.JobParameters{}, errors.New("seed_url is required")
	}
	if _, err := crawler.NormalizeURL(req.SeedURL); err != nil {
		return crawler.JobParameters{}, fmt.Errorf("invalid seed_url: %w", err)
	}
	params := crawler.JobParameters{
		SeedURL:           req.SeedURL,
		MaxPages:          valueOrDefault(req.MaxPages, s.cfg.Crawl.MaxPagesDefault),
		MaxDocuments:      valueOrDefault(req.MaxDocuments, s.cfg.Crawl.MaxDocumentsDefault),
		MaxDepth:          valueOrDefault(req.MaxDepth, s.cfg.Crawl.MaxDepthDefault),
		PerRequestTimeout: s.cfg.Crawl.PerRequestTimeout,
		TotalTimeout:      s.cfg.Crawl.TotalTimeout,
	}
	if req.PerRequestTimeoutMS != nil {
		params.PerRequestTimeout = time.Duration(*req.PerRequestTimeoutMS) * time.Millisecond
	}
	if req.TotalTimeoutMS != nil {
		params.TotalTimeout = time.Duration(*req.TotalTimeoutMS) * time.Millisecond
	}
	if params.MaxPages <= 0 {
		return crawler.JobParameters{}, errors.New("max_pages must be > 0")
	}
	if params.MaxDocuments < 0 {
		return crawler.JobParameters{}, errors.New("max_documents must be >= 0")
	}
	if params.MaxDepth < 0 {
		return crawler.JobParameters{}, errors.New("max_depth must be >= 0")
	}
	return params, nil
}

func valueOrDefault[T any](ptr *T, def T) T {
	if ptr == nil {
		return def
	}
	return *ptr
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Key") != expected {
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
