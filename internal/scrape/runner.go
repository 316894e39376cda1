// Package scrape runs the external scraper binary and mines its output.
package scrape

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/CyborPunk-2077/article-scraper/internal/metrics"
	"github.com/CyborPunk-2077/article-scraper/internal/status"
	"github.com/CyborPunk-2077/article-scraper/internal/storage"
)

// Config controls how the scraper subprocess is launched and where its
// artifacts are uploaded.
type Config struct {
	// ScraperPath is the executable invoked as:
	//   scraper <url> --max-articles N --output DIR
	ScraperPath string
	// WorkDir hosts per-session output directories; empty means os.TempDir.
	WorkDir string
	// RawBucket receives the session's artifacts after a successful run.
	RawBucket string
	// StopGrace is how long Stop waits after SIGTERM before SIGKILL.
	StopGrace time.Duration
}

// NewSessionID derives the storage prefix grouping one run's artifacts.
func NewSessionID(now time.Time) string {
	return fmt.Sprintf("session_%d", now.Unix())
}

// Runner executes one scrape job at a time: spawn the scraper, stream its
// combined output through the classifier into the journal, then upload the
// output tree to the raw bucket under the session prefix.
type Runner struct {
	cfg     Config
	gateway storage.Gateway
	journal *status.Journal
	stats   *status.ScrapeStats
	logger  *zap.Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	stopping bool
}

// NewRunner wires the runner's collaborators.
func NewRunner(cfg Config, gateway storage.Gateway, journal *status.Journal, stats *status.ScrapeStats, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = 5 * time.Second
	}
	return &Runner{
		cfg:     cfg,
		gateway: gateway,
		journal: journal,
		stats:   stats,
		logger:  logger,
	}
}

// Run blocks until the scrape finishes, fails, or is stopped. All failures
// are recorded in the journal; the returned error mirrors the journal entry
// for the caller's log.
func (r *Runner) Run(ctx context.Context, url string, maxArticles int, sessionID string) error {
	r.journal.Append(status.LevelInfo, "Starting local scraper...")
	r.raiseProgress(10)

	workDir := r.cfg.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	outputDir := filepath.Join(workDir, "scraping_output_"+sessionID)
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		r.fail(fmt.Sprintf("Error: create output directory: %v", err))
		return fmt.Errorf("create output directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(outputDir); err != nil {
			r.logger.Warn("cleanup of scrape output failed", zap.String("dir", outputDir), zap.Error(err))
		}
	}()

	r.journal.Append(status.LevelInfo, fmt.Sprintf("Scraping %d articles from %s", maxArticles, url))
	r.journal.Append(status.LevelInfo, "Session ID: "+sessionID)
	r.stats.SetSession(sessionID)
	r.raiseProgress(15)

	cmd := exec.Command(r.cfg.ScraperPath, url, "--max-articles", strconv.Itoa(maxArticles), "--output", outputDir)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		r.fail(fmt.Sprintf("Error: open scraper stdout: %v", err))
		return fmt.Errorf("open scraper stdout: %w", err)
	}
	// Merge stderr into the same stream; the classifier sorts it out.
	cmd.Stderr = cmd.Stdout

	r.mu.Lock()
	r.stopping = false
	r.cmd = cmd
	r.mu.Unlock()

	if err := cmd.Start(); err != nil {
		r.fail(fmt.Sprintf("Error: start scraper: %v", err))
		return fmt.Errorf("start scraper: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if r.isStopping() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		r.observeLine(line, maxArticles)
	}

	waitErr := cmd.Wait()
	stopped := r.isStopping()

	r.mu.Lock()
	r.cmd = nil
	r.mu.Unlock()

	if waitErr != nil || stopped {
		r.fail("Scraping failed or was stopped")
		if waitErr != nil && !stopped {
			return fmt.Errorf("scraper exited: %w", waitErr)
		}
		return nil
	}

	uploaded, err := r.uploadArtifacts(ctx, outputDir, sessionID)
	if err != nil {
		r.fail(fmt.Sprintf("Error: upload artifacts: %v", err))
		return fmt.Errorf("upload artifacts: %w", err)
	}

	r.journal.Append(status.LevelSuccess, "Scraping completed successfully!")
	r.journal.Append(status.LevelSuccess,
		fmt.Sprintf("Uploaded %d files to %s/%s", uploaded, r.cfg.RawBucket, sessionID))
	r.stats.MarkCompleted()
	metrics.SetScrapeProgress(100)
	return nil
}

// Stop requests graceful termination of the current run. The process gets
// SIGTERM immediately and SIGKILL after the grace period if it is still
// alive. Safe to call when nothing is running.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.stopping = true
	cmd := r.cmd
	grace := r.cfg.StopGrace
	r.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		r.logger.Warn("SIGTERM failed", zap.Error(err))
		return
	}
	time.AfterFunc(grace, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		// Still the same run and Wait has not reaped it: force kill.
		if r.cmd == cmd {
			if err := cmd.Process.Kill(); err != nil {
				r.logger.Warn("SIGKILL failed", zap.Error(err))
			}
		}
	})
}

func (r *Runner) observeLine(line string, maxArticles int) {
	r.journal.Append(status.Classify(line), line)
	r.stats.ObserveLine(line, maxArticles)
	if status.ArticleLine(line) {
		metrics.ObserveArticleSaved()
	}
	if status.ImageLine(line) {
		metrics.ObserveImageSaved()
	}
	metrics.SetScrapeProgress(r.stats.Snapshot().Progress)
}

func (r *Runner) uploadArtifacts(ctx context.Context, outputDir, sessionID string) (int, error) {
	uploaded := 0
	err := filepath.WalkDir(outputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(outputDir, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read artifact %s: %w", rel, err)
		}
		key := sessionID + "/" + filepath.ToSlash(rel)
		if err := r.gateway.Put(ctx, r.cfg.RawBucket, key, contentTypeFor(rel), data); err != nil {
			return err
		}
		uploaded++
		return nil
	})
	if err != nil {
		return uploaded, err
	}
	return uploaded, nil
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (r *Runner) isStopping() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopping
}

func (r *Runner) raiseProgress(pct int) {
	r.stats.RaiseProgress(pct)
	metrics.SetScrapeProgress(r.stats.Snapshot().Progress)
}

func (r *Runner) fail(msg string) {
	r.journal.Append(status.LevelError, msg)
	r.stats.MarkFailed()
	metrics.SetScrapeProgress(0)
}
