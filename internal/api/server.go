// Package api exposes the HTTP interface for the scraper control plane.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CyborPunk-2077/article-scraper/internal/config"
	"github.com/CyborPunk-2077/article-scraper/internal/convert"
	"github.com/CyborPunk-2077/article-scraper/internal/metrics"
	"github.com/CyborPunk-2077/article-scraper/internal/publisher"
	"github.com/CyborPunk-2077/article-scraper/internal/scrape"
	"github.com/CyborPunk-2077/article-scraper/internal/status"
	"github.com/CyborPunk-2077/article-scraper/internal/storage"
	"github.com/CyborPunk-2077/article-scraper/internal/summarize"
)

// Deps collects everything the server needs. Journals and stats are shared
// with the job implementations so status reads see live values.
type Deps struct {
	Config    config.Config
	Logger    *zap.Logger
	Gateway   storage.Gateway
	Publisher publisher.Publisher

	Runner     *scrape.Runner
	Converter  *convert.Converter
	Summarizer *summarize.Service

	ScrapeJournal    *status.Journal
	ScrapeStats      *status.ScrapeStats
	ConvertJournal   *status.Journal
	ConvertStats     *status.ConvertStats
	SummarizeJournal *status.Journal
	SummarizeStats   *status.SummarizeStats
}

// Server wires HTTP handlers to the job runners and the storage gateway.
type Server struct {
	router chi.Router
	deps   Deps
	logger *zap.Logger

	scrapeTracker    status.Tracker
	convertTracker   status.Tracker
	summarizeTracker status.Tracker

	// now is a seam for session-ID generation in tests.
	now func() time.Time
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		deps:   deps,
		logger: logger,
		now:    time.Now,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Post("/start_scraping", s.startScraping)
	r.Post("/stop_scraping", s.stopScraping)
	r.Get("/get_status", s.getStatus)

	r.Post("/list_bucket", s.listBucket)
	r.Post("/download_file", s.downloadFile)

	r.Post("/convert_to_text", s.convertToText)
	r.Get("/conversion_status", s.conversionStatus)

	r.Post("/generate_summaries", s.generateSummaries)
	r.Get("/summarization_status", s.summarizationStatus)

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

// runJob spawns the background worker for one job kind. The tracker must
// already be acquired; the worker releases it on exit and reports the outcome
// to metrics and the lifecycle publisher.
func (s *Server) runJob(kind status.Kind, sessionID string, tracker *status.Tracker, run func(context.Context) error) {
	metrics.SetJobActive(string(kind), true)
	go func() {
		ctx := context.Background()
		defer func() {
			tracker.Release()
			metrics.SetJobActive(string(kind), false)
		}()
		s.publish(ctx, publisher.Event{Event: publisher.EventStarted, Kind: string(kind), SessionID: sessionID})
		if err := run(ctx); err != nil {
			s.logger.Error("job failed",
				zap.String("kind", string(kind)),
				zap.String("session", sessionID),
				zap.Error(err),
			)
			metrics.ObserveJob(string(kind), "error")
			s.publish(ctx, publisher.Event{
				Event:     publisher.EventFailed,
				Kind:      string(kind),
				SessionID: sessionID,
				Error:     err.Error(),
			})
			return
		}
		metrics.ObserveJob(string(kind), "success")
		s.publish(ctx, publisher.Event{Event: publisher.EventFinished, Kind: string(kind), SessionID: sessionID})
	}()
}

func (s *Server) publish(ctx context.Context, evt publisher.Event) {
	if s.deps.Publisher == nil {
		return
	}
	if err := s.deps.Publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("lifecycle publish failed", zap.String("event", evt.Event), zap.Error(err))
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		duration := time.Since(start)
		metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.status, duration)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", duration.Milliseconds()),
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

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, statusCode int, msg string) {
	writeJSON(w, statusCode, map[string]string{"error": msg})
}
