package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/CyborPunk-2077/article-scraper/internal/convert"
	"github.com/CyborPunk-2077/article-scraper/internal/status"
	"github.com/CyborPunk-2077/article-scraper/internal/storage"
)

// Articles shorter than this are not worth a model round trip.
const minSummarizableChars = 100

// The summarizer only sees the head of long articles.
const maxSummarizerInputChars = 1024

// Config names the buckets the summarization pass reads and writes.
type Config struct {
	SourceBucket string
	TargetBucket string
}

// Service walks a session's artifacts, summarizing article JSON and
// captioning images, and writes the results into the target bucket.
type Service struct {
	cfg        Config
	gateway    storage.Gateway
	summarizer TextSummarizer
	captioner  ImageCaptioner
	journal    *status.Journal
	stats      *status.SummarizeStats
	logger     *zap.Logger
}

// New wires the service's collaborators.
func New(
	cfg Config,
	gateway storage.Gateway,
	summarizer TextSummarizer,
	captioner ImageCaptioner,
	journal *status.Journal,
	stats *status.SummarizeStats,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:        cfg,
		gateway:    gateway,
		summarizer: summarizer,
		captioner:  captioner,
		journal:    journal,
		stats:      stats,
		logger:     logger,
	}
}

// Run summarizes every eligible artifact under the session prefix. Per-object
// failures are journaled and skipped; only listing failures abort the pass.
// There is no cancellation once started.
func (s *Service) Run(ctx context.Context, sourceSession string) error {
	s.journal.Append(status.LevelInfo, "Starting AI summarization for session: "+sourceSession)
	prefix := sourceSession + "/"
	s.journal.Append(status.LevelInfo,
		fmt.Sprintf("Listing files in %s/%s", s.cfg.SourceBucket, prefix))

	listing, err := s.gateway.List(ctx, s.cfg.SourceBucket, prefix, "")
	if err != nil {
		msg := fmt.Sprintf("Summarization failed: %v", err)
		s.stats.Fail(msg)
		s.journal.Append(status.LevelError, msg)
		return fmt.Errorf("list session %s: %w", sourceSession, err)
	}

	textCount := 0
	imageCount := 0
	folders := make(map[string]bool)

	for _, obj := range listing.Objects {
		switch {
		case convert.ArticleKey(obj.Key):
			done, err := s.summarizeArticle(ctx, obj.Key)
			if err != nil {
				s.journal.Append(status.LevelError, fmt.Sprintf("Error summarizing %s: %v", obj.Key, err))
				continue
			}
			if done {
				textCount++
				folders[parentFolder(obj.Key)] = true
			}
		case imageKey(obj.Key):
			if err := s.captionImage(ctx, obj.Key); err != nil {
				s.journal.Append(status.LevelError, fmt.Sprintf("Error captioning %s: %v", obj.Key, err))
				continue
			}
			imageCount++
			folders[parentFolder(obj.Key)] = true
		}
	}

	s.stats.Finish(textCount, imageCount, len(folders))
	s.journal.Append(status.LevelSuccess,
		fmt.Sprintf("Complete! %d text summaries, %d image captions -> %s",
			textCount, imageCount, s.cfg.TargetBucket))
	return nil
}

func (s *Service) summarizeArticle(ctx context.Context, key string) (bool, error) {
	data, _, err := s.gateway.Get(ctx, s.cfg.SourceBucket, key)
	if err != nil {
		return false, err
	}
	var art struct {
		Content string `json:"content"`
		Text    string `json:"text"`
	}
	if err := json.Unmarshal(data, &art); err != nil {
		return false, fmt.Errorf("parse article JSON: %w", err)
	}
	text := art.Content
	if text == "" {
		text = art.Text
	}
	if len(text) <= minSummarizableChars {
		return false, nil
	}
	if len(text) > maxSummarizerInputChars {
		text = text[:maxSummarizerInputChars]
	}

	s.journal.Append(status.LevelInfo, "Summarizing text: "+key)
	summary, err := s.summarizer.Summarize(ctx, text)
	if err != nil {
		return false, err
	}

	summaryKey := strings.TrimSuffix(key, ".json") + "_text_summary.json"
	if err := s.putSummary(ctx, summaryKey, Summary{
		Filename:    baseName(key),
		SummaryType: "text",
		Summary:     summary,
	}); err != nil {
		return false, err
	}
	s.journal.Append(status.LevelSuccess, "Text summary saved: "+summaryKey)
	return true, nil
}

func (s *Service) captionImage(ctx context.Context, key string) error {
	s.journal.Append(status.LevelInfo, "Captioning image: "+key)
	data, _, err := s.gateway.Get(ctx, s.cfg.SourceBucket, key)
	if err != nil {
		return err
	}
	caption, err := s.captioner.Caption(ctx, data)
	if err != nil {
		return err
	}

	captionKey := trimExtension(key) + "_image_summary.json"
	if err := s.putSummary(ctx, captionKey, Summary{
		Filename:    baseName(key),
		SummaryType: "image",
		Summary:     caption,
	}); err != nil {
		return err
	}
	s.journal.Append(status.LevelSuccess, "Image caption saved: "+captionKey)
	return nil
}

func (s *Service) putSummary(ctx context.Context, key string, summary Summary) error {
	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return s.gateway.Put(ctx, s.cfg.TargetBucket, key, "application/json", payload)
}

func imageKey(key string) bool {
	lower := strings.ToLower(key)
	return strings.HasSuffix(lower, ".jpg") ||
		strings.HasSuffix(lower, ".jpeg") ||
		strings.HasSuffix(lower, ".png")
}

func baseName(key string) string {
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		return key[idx+1:]
	}
	return key
}

func parentFolder(key string) string {
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		return key[:idx]
	}
	return ""
}

func trimExtension(key string) string {
	if idx := strings.LastIndex(key, "."); idx >= 0 && idx > strings.LastIndex(key, "/") {
		return key[:idx]
	}
	return key
}
