package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/CyborPunk-2077/article-scraper/internal/scrape"
	"github.com/CyborPunk-2077/article-scraper/internal/status"
)

type startScrapingRequest struct {
	URL         string `json:"url"`
	MaxArticles int    `json:"maxArticles"`
}

type listBucketRequest struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
}

type downloadFileRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type sessionRequest struct {
	SourceSession string `json:"sourceSession"`
}

type folderDTO struct {
	Name string `json:"name"`
}

type fileDTO struct {
	Name         string `json:"name"`
	Key          string `json:"key"`
	Size         int64  `json:"size"`
	LastModified string `json:"lastModified"`
}

func (s *Server) startScraping(w http.ResponseWriter, r *http.Request) {
	var req startScrapingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}
	maxArticles := req.MaxArticles
	if maxArticles <= 0 {
		maxArticles = s.deps.Config.Scraper.DefaultMaxArticles
	}

	if !s.scrapeTracker.TryAcquire() {
		writeError(w, http.StatusBadRequest, "Scraping already in progress")
		return
	}

	s.deps.ScrapeJournal.Reset()
	s.deps.ScrapeStats.Reset()
	sessionID := scrape.NewSessionID(s.now())

	url := req.URL
	s.runJob(status.KindScrape, sessionID, &s.scrapeTracker, func(ctx context.Context) error {
		return s.deps.Runner.Run(ctx, url, maxArticles, sessionID)
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "started",
		"sessionId": sessionID,
		"message":   "Scraping job started",
	})
}

func (s *Server) stopScraping(w http.ResponseWriter, _ *http.Request) {
	s.deps.Runner.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.deps.ScrapeStats.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"active":        s.scrapeTracker.Active(),
		"logs":          s.deps.ScrapeJournal.Snapshot(),
		"articlesFound": snap.ArticlesFound,
		"articlesSaved": snap.ArticlesSaved,
		"imagesFound":   snap.ImagesFound,
		"progress":      snap.Progress,
		"completed":     snap.Completed,
		"sessionId":     nullableString(snap.SessionID),
	})
}

func (s *Server) listBucket(w http.ResponseWriter, r *http.Request) {
	var req listBucketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Bucket == "" {
		writeError(w, http.StatusBadRequest, "bucket is required")
		return
	}
	prefix := req.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	listing, err := s.deps.Gateway.List(r.Context(), req.Bucket, prefix, "/")
	if err != nil {
		s.logger.Error("list bucket failed", zap.String("bucket", req.Bucket), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	folders := make([]folderDTO, 0, len(listing.Prefixes))
	for _, p := range listing.Prefixes {
		name := strings.TrimSuffix(strings.TrimPrefix(p, prefix), "/")
		folders = append(folders, folderDTO{Name: name})
	}

	files := make([]fileDTO, 0, len(listing.Objects))
	for _, obj := range listing.Objects {
		// A "folder placeholder" object named exactly like the prefix.
		if obj.Key == prefix {
			continue
		}
		files = append(files, fileDTO{
			Name:         strings.TrimPrefix(obj.Key, prefix),
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.Updated.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"folders": folders,
		"files":   files,
	})
}

func (s *Server) downloadFile(w http.ResponseWriter, r *http.Request) {
	var req downloadFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Bucket == "" || req.Key == "" {
		writeError(w, http.StatusBadRequest, "bucket and key are required")
		return
	}

	data, contentType, err := s.deps.Gateway.Get(r.Context(), req.Bucket, req.Key)
	if err != nil {
		s.logger.Error("download failed", zap.String("bucket", req.Bucket), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	filename := req.Key
	if idx := strings.LastIndex(filename, "/"); idx >= 0 {
		filename = filename[idx+1:]
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	if _, err := w.Write(data); err != nil {
		s.logger.Error("write download failed", zap.Error(err))
	}
}

func (s *Server) convertToText(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.SourceSession == "" {
		writeError(w, http.StatusBadRequest, "sourceSession is required")
		return
	}

	if !s.convertTracker.TryAcquire() {
		writeError(w, http.StatusBadRequest, "Conversion already in progress")
		return
	}

	targetBucket := s.deps.Config.Storage.TextBucket
	s.deps.ConvertJournal.Reset()
	s.deps.ConvertStats.Reset(targetBucket)

	session := req.SourceSession
	s.runJob(status.KindConvert, session, &s.convertTracker, func(ctx context.Context) error {
		return s.deps.Converter.Run(ctx, session)
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"status":       "started",
		"message":      "Conversion started",
		"targetBucket": targetBucket,
	})
}

func (s *Server) conversionStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.deps.ConvertStats.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"logs":           s.deps.ConvertJournal.Snapshot(),
		"completed":      snap.Completed,
		"error":          snap.Err,
		"targetBucket":   snap.TargetBucket,
		"filesConverted": snap.FilesConverted,
	})
}

func (s *Server) generateSummaries(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.SourceSession == "" {
		writeError(w, http.StatusBadRequest, "sourceSession is required")
		return
	}

	if !s.summarizeTracker.TryAcquire() {
		writeError(w, http.StatusBadRequest, "Summarization already in progress")
		return
	}

	targetBucket := s.deps.Config.Storage.SummaryBucket
	s.deps.SummarizeJournal.Reset()
	s.deps.SummarizeStats.Reset(targetBucket)

	session := req.SourceSession
	s.runJob(status.KindSummarize, session, &s.summarizeTracker, func(ctx context.Context) error {
		return s.deps.Summarizer.Run(ctx, session)
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"status":       "started",
		"message":      "Summarization started",
		"targetBucket": targetBucket,
	})
}

func (s *Server) summarizationStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.deps.SummarizeStats.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"logs":           s.deps.SummarizeJournal.Snapshot(),
		"completed":      snap.Completed,
		"error":          snap.Err,
		"targetBucket":   snap.TargetBucket,
		"textSummaries":  snap.TextSummaries,
		"imageSummaries": snap.ImageSummaries,
		"totalFolders":   snap.TotalFolders,
	})
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
