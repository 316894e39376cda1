package status

import (
	"strings"
	"sync"
)

// Markers mined from scraper output to advance the counters. The scraper
// prints one "SAVED: .../article.json" per article and one
// "SUCCESS: Saved .../image.jpg" per image.
const (
	markerSaved        = "SAVED:"
	markerArticleFile  = "article.json"
	markerImageSuccess = "SUCCESS: Saved"
	markerImageFile    = "image.jpg"
	markerComplete     = "COMPLETE"
)

// ScrapeSnapshot is a point-in-time copy of the scrape statistics.
type ScrapeSnapshot struct {
	ArticlesFound int
	ArticlesSaved int
	ImagesFound   int
	Progress      int
	Completed     bool
	SessionID     string
}

// ScrapeStats tracks the mutable scrape job statistics. Progress only rises
// under log input: article saves interpolate 15→80, image saves 80→95, and a
// COMPLETE marker or successful exit pins 100. A failed or stopped run resets
// progress to zero.
type ScrapeStats struct {
	mu            sync.Mutex
	articlesFound int
	imagesFound   int
	progress      int
	completed     bool
	sessionID     string
}

// Reset returns the record to its initial state.
func (s *ScrapeStats) Reset() {
	s.mu.Lock()
	s.articlesFound = 0
	s.imagesFound = 0
	s.progress = 0
	s.completed = false
	s.sessionID = ""
	s.mu.Unlock()
}

// Snapshot copies the current values.
func (s *ScrapeStats) Snapshot() ScrapeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ScrapeSnapshot{
		ArticlesFound: s.articlesFound,
		ArticlesSaved: s.articlesFound,
		ImagesFound:   s.imagesFound,
		Progress:      s.progress,
		Completed:     s.completed,
		SessionID:     s.sessionID,
	}
}

// SetSession records the session grouping this run's artifacts.
func (s *ScrapeStats) SetSession(id string) {
	s.mu.Lock()
	s.sessionID = id
	s.mu.Unlock()
}

// RaiseProgress lifts progress to at least pct. It never lowers it.
func (s *ScrapeStats) RaiseProgress(pct int) {
	s.mu.Lock()
	if pct > s.progress {
		s.progress = pct
	}
	s.mu.Unlock()
}

// MarkCompleted pins progress at 100 and flags completion.
func (s *ScrapeStats) MarkCompleted() {
	s.mu.Lock()
	s.progress = 100
	s.completed = true
	s.mu.Unlock()
}

// MarkFailed resets progress after a failed or stopped run.
func (s *ScrapeStats) MarkFailed() {
	s.mu.Lock()
	s.progress = 0
	s.mu.Unlock()
}

// ObserveLine mines one scraper output line for artifact markers and
// advances the counters and progress bands. maxArticles scales the
// interpolation; values below one are treated as one.
func (s *ScrapeStats) ObserveLine(line string, maxArticles int) {
	if maxArticles < 1 {
		maxArticles = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.Contains(line, markerSaved) && strings.Contains(line, markerArticleFile) {
		s.articlesFound++
		pct := 15 + int(float64(s.articlesFound)/float64(maxArticles)*65)
		if pct > 80 {
			pct = 80
		}
		if pct > s.progress {
			s.progress = pct
		}
	}

	if strings.Contains(line, markerImageSuccess) && strings.Contains(line, markerImageFile) {
		s.imagesFound++
		pct := 80 + int(float64(s.imagesFound)/float64(maxArticles)*15)
		if pct > 95 {
			pct = 95
		}
		if pct > s.progress {
			s.progress = pct
		}
	}

	if strings.Contains(strings.ToUpper(line), markerComplete) {
		s.progress = 100
	}
}

// ArticleLine reports whether the line marks a saved article. Exposed so the
// scrape runner can bump the Prometheus artifact counters alongside the
// statistics record.
func ArticleLine(line string) bool {
	return strings.Contains(line, markerSaved) && strings.Contains(line, markerArticleFile)
}

// ImageLine reports whether the line marks a saved image.
func ImageLine(line string) bool {
	return strings.Contains(line, markerImageSuccess) && strings.Contains(line, markerImageFile)
}

// ConvertSnapshot is a point-in-time copy of the conversion statistics.
type ConvertSnapshot struct {
	FilesConverted int
	Completed      bool
	Err            *string
	TargetBucket   string
}

// ConvertStats tracks the text-conversion job statistics.
type ConvertStats struct {
	mu             sync.Mutex
	filesConverted int
	completed      bool
	err            *string
	targetBucket   string
}

// Reset clears the record, remembering the bucket conversions land in.
func (s *ConvertStats) Reset(targetBucket string) {
	s.mu.Lock()
	s.filesConverted = 0
	s.completed = false
	s.err = nil
	s.targetBucket = targetBucket
	s.mu.Unlock()
}

// Snapshot copies the current values.
func (s *ConvertStats) Snapshot() ConvertSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ConvertSnapshot{
		FilesConverted: s.filesConverted,
		Completed:      s.completed,
		Err:            s.err,
		TargetBucket:   s.targetBucket,
	}
}

// Finish records the converted-file count and flags completion.
func (s *ConvertStats) Finish(filesConverted int) {
	s.mu.Lock()
	s.filesConverted = filesConverted
	s.completed = true
	s.mu.Unlock()
}

// Fail records a human-readable failure.
func (s *ConvertStats) Fail(msg string) {
	s.mu.Lock()
	s.err = &msg
	s.mu.Unlock()
}

// SummarizeSnapshot is a point-in-time copy of the summarization statistics.
type SummarizeSnapshot struct {
	TextSummaries  int
	ImageSummaries int
	TotalFolders   int
	Completed      bool
	Err            *string
	TargetBucket   string
}

// SummarizeStats tracks the summarization job statistics.
type SummarizeStats struct {
	mu             sync.Mutex
	textSummaries  int
	imageSummaries int
	totalFolders   int
	completed      bool
	err            *string
	targetBucket   string
}

// Reset clears the record, remembering the bucket summaries land in.
func (s *SummarizeStats) Reset(targetBucket string) {
	s.mu.Lock()
	s.textSummaries = 0
	s.imageSummaries = 0
	s.totalFolders = 0
	s.completed = false
	s.err = nil
	s.targetBucket = targetBucket
	s.mu.Unlock()
}

// Snapshot copies the current values.
func (s *SummarizeStats) Snapshot() SummarizeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SummarizeSnapshot{
		TextSummaries:  s.textSummaries,
		ImageSummaries: s.imageSummaries,
		TotalFolders:   s.totalFolders,
		Completed:      s.completed,
		Err:            s.err,
		TargetBucket:   s.targetBucket,
	}
}

// Finish records the final counts and flags completion.
func (s *SummarizeStats) Finish(textSummaries, imageSummaries, totalFolders int) {
	s.mu.Lock()
	s.textSummaries = textSummaries
	s.imageSummaries = imageSummaries
	s.totalFolders = totalFolders
	s.completed = true
	s.mu.Unlock()
}

// Fail records a human-readable failure.
func (s *SummarizeStats) Fail(msg string) {
	s.mu.Lock()
	s.err = &msg
	s.mu.Unlock()
}
