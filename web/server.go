// ABOUTME: HTTP server exposing the chatbot pipeline behind a chi router.
// ABOUTME: JSON APIs for ingest, questions, stats, storage, and cleanup, plus a chat page and /metrics.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/tubular-ai/tubular/chatbot"
	"github.com/tubular-ai/tubular/index"
	"github.com/tubular-ai/tubular/rag"
	"github.com/tubular-ai/tubular/storage"
)

// Bot is the slice of the chatbot the server drives.
type Bot interface {
	AddVideos(ctx context.Context, urls []string) chatbot.BatchResult
	Ask(ctx context.Context, question string) (rag.Answer, error)
	Stats(ctx context.Context) (index.Stats, error)
}

// Janitor runs retention cleanup and reports storage usage.
type Janitor interface {
	Cleanup(dryRun bool) storage.CleanupResult
	StorageStats() storage.StorageStats
}

// IngestJob tracks one asynchronous video ingest request.
type IngestJob struct {
	ID        string              `json:"id"`
	Status    string              `json:"status"` // running | done
	URLs      []string            `json:"urls"`
	StartedAt time.Time           `json:"started_at"`
	Result    *chatbot.BatchResult `json:"result,omitempty"`
}

// Config holds the web server configuration.
type Config struct {
	Addr            string // listen address (default: "127.0.0.1:8087")
	CleanupSchedule string // cron spec; empty disables scheduled cleanup
	Logger          *slog.Logger
}

// Server serves the chatbot over HTTP.
type Server struct {
	bot     Bot
	janitor Janitor
	metrics *Metrics
	router  chi.Router
	addr    string
	log     *slog.Logger

	cron *cron.Cron

	// jobsMu protects the jobs map for concurrent access from handler
	// goroutines and background ingest goroutines.
	jobsMu sync.RWMutex
	jobs   map[string]*IngestJob
}

// NewServer creates a Server over the given chatbot and cleaner.
func NewServer(bot Bot, janitor Janitor, cfg Config) (*Server, error) {
	if bot == nil {
		return nil, fmt.Errorf("bot must not be nil")
	}
	if janitor == nil {
		return nil, fmt.Errorf("janitor must not be nil")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8087"
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		bot:     bot,
		janitor: janitor,
		metrics: NewMetrics(),
		addr:    cfg.Addr,
		log:     log,
		jobs:    make(map[string]*IngestJob),
	}
	s.router = s.buildRouter()

	if cfg.CleanupSchedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(cfg.CleanupSchedule, s.scheduledCleanup); err != nil {
			return nil, fmt.Errorf("invalid cleanup schedule %q: %w", cfg.CleanupSchedule, err)
		}
		s.cron = c
	}

	return s, nil
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the router for embedding in a caller-owned http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// StartScheduler starts the cleanup cron when one is configured.
func (s *Server) StartScheduler() {
	if s.cron != nil {
		s.cron.Start()
	}
}

// StopScheduler stops the cleanup cron.
func (s *Server) StopScheduler() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// ListenAndServe starts the HTTP server with timeouts against slow clients,
// and the cleanup scheduler when one is configured.
func (s *Server) ListenAndServe() error {
	if s.cron != nil {
		s.cron.Start()
		defer s.cron.Stop()
	}

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	s.log.Info("server listening", "addr", s.addr)
	return srv.ListenAndServe()
}

// buildRouter constructs the chi router with all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(slogMiddleware(s.log))

	r.Get("/", s.handleChatPage)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/videos", s.handleAddVideos)
		r.Get("/videos/{jobID}", s.handleJobStatus)
		r.Post("/ask", s.handleAsk)
		r.Get("/stats", s.handleStats)
		r.Get("/storage", s.handleStorage)
		r.Post("/cleanup", s.handleCleanup)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAddVideos starts an asynchronous ingest of the posted URLs and
// returns a job ID for polling.
func (s *Server) handleAddVideos(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req struct {
		URLs []string `json:"urls"`
		URL  string   `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	urls := req.URLs
	if req.URL != "" {
		urls = append(urls, req.URL)
	}
	if len(urls) == 0 {
		writeError(w, http.StatusBadRequest, "provide url or urls")
		return
	}

	job := &IngestJob{
		ID:        uuid.NewString(),
		Status:    "running",
		URLs:      urls,
		StartedAt: time.Now(),
	}
	s.jobsMu.Lock()
	s.jobs[job.ID] = job
	s.jobsMu.Unlock()

	go func() {
		batch := s.bot.AddVideos(context.Background(), urls)

		s.metrics.VideosIngested.Add(float64(batch.Successful))
		s.metrics.VideosFailed.Add(float64(batch.Total - batch.Successful))

		s.jobsMu.Lock()
		job.Status = "done"
		job.Result = &batch
		s.jobsMu.Unlock()
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID, "status": job.Status})
}

// handleJobStatus reports an ingest job's progress and, once done, its result.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	s.jobsMu.RLock()
	job, ok := s.jobs[jobID]
	var snapshot IngestJob
	if ok {
		snapshot = *job
	}
	s.jobsMu.RUnlock()

	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	resp := map[string]any{
		"id":         snapshot.ID,
		"status":     snapshot.Status,
		"urls":       snapshot.URLs,
		"started_at": snapshot.StartedAt,
	}
	if snapshot.Result != nil {
		results := make([]map[string]any, len(snapshot.Result.Results))
		for i, res := range snapshot.Result.Results {
			entry := map[string]any{
				"video_id":     res.VideoID,
				"url":          res.URL,
				"chunks_added": res.ChunksAdded,
				"success":      res.Err == nil,
			}
			if res.Err != nil {
				entry["error"] = res.Err.Error()
			}
			results[i] = entry
		}
		resp["successful"] = snapshot.Result.Successful
		resp["total"] = snapshot.Result.Total
		resp["results"] = results
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAsk answers a question, optionally rendering the answer as HTML for
// the chat page.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, "question must not be empty")
		return
	}

	answer, err := s.bot.Ask(r.Context(), question)
	if err != nil {
		s.log.Error("ask failed", "error", err)
		writeError(w, http.StatusBadGateway, "answer generation failed")
		return
	}
	s.metrics.QuestionsAnswered.Inc()

	html, err := markdownToHTML(answer.Text)
	if err != nil {
		s.log.Warn("markdown rendering failed", "error", err)
		html = ""
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"answer":      answer.Text,
		"answer_html": html,
		"sources":     answer.Sources,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.bot.Stats(r.Context())
	if err != nil {
		s.log.Error("stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not read stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStorage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.janitor.StorageStats())
}

// handleCleanup runs a retention pass. dry_run=true previews without deleting.
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	dryRun := r.URL.Query().Get("dry_run") == "true"

	result := s.janitor.Cleanup(dryRun)
	if !dryRun {
		s.metrics.CleanupRuns.Inc()
		s.metrics.RunsDeleted.Add(float64(result.DeletedCount))
		s.metrics.BytesFreed.Add(float64(result.SpaceFreedBytes))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"dry_run": dryRun,
		"result":  result,
	})
}

// scheduledCleanup is the cron callback for periodic retention cleanup.
func (s *Server) scheduledCleanup() {
	result := s.janitor.Cleanup(false)
	s.metrics.CleanupRuns.Inc()
	s.metrics.RunsDeleted.Add(float64(result.DeletedCount))
	s.metrics.BytesFreed.Add(float64(result.SpaceFreedBytes))
	s.log.Info("scheduled cleanup complete",
		"deleted", result.DeletedCount,
		"freed", result.SpaceFreedHuman,
		"errors", len(result.Errors))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// slogMiddleware logs each request with method, path, status, and duration.
func slogMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start).Round(time.Millisecond))
		})
	}
}
