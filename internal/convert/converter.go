// Package convert renders scraped article JSON into plain text files.
package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/CyborPunk-2077/article-scraper/internal/status"
	"github.com/CyborPunk-2077/article-scraper/internal/storage"
)

// Config names the buckets the conversion pass reads and writes.
type Config struct {
	SourceBucket string
	TargetBucket string
}

// Converter walks a session's artifacts and writes a formatted .txt rendering
// of every article JSON into the target bucket.
type Converter struct {
	cfg     Config
	gateway storage.Gateway
	journal *status.Journal
	stats   *status.ConvertStats
	logger  *zap.Logger
}

// New wires the converter's collaborators.
func New(cfg Config, gateway storage.Gateway, journal *status.Journal, stats *status.ConvertStats, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{
		cfg:     cfg,
		gateway: gateway,
		journal: journal,
		stats:   stats,
		logger:  logger,
	}
}

// article is the subset of scraper output the conversion cares about. The
// scraper has emitted the body under different names over time, so all three
// are accepted.
type article struct {
	Title   string `json:"title"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	Content string `json:"content"`
	Text    string `json:"text"`
	Article string `json:"article"`
}

func (a article) body() string {
	if a.Content != "" {
		return a.Content
	}
	if a.Text != "" {
		return a.Text
	}
	return a.Article
}

// ArticleKey reports whether key names an article JSON artifact (as opposed
// to a generated summary).
func ArticleKey(key string) bool {
	return strings.HasSuffix(key, ".json") && !strings.HasSuffix(key, "_summary.json")
}

// Run converts every article under the session prefix. Per-object failures
// are journaled and skipped; only listing failures abort the pass.
func (c *Converter) Run(ctx context.Context, sourceSession string) error {
	c.journal.Append(status.LevelInfo, "Starting conversion for session: "+sourceSession)
	prefix := sourceSession + "/"
	c.journal.Append(status.LevelInfo,
		fmt.Sprintf("Listing files in %s/%s", c.cfg.SourceBucket, prefix))

	listing, err := c.gateway.List(ctx, c.cfg.SourceBucket, prefix, "")
	if err != nil {
		msg := fmt.Sprintf("Conversion failed: %v", err)
		c.stats.Fail(msg)
		c.journal.Append(status.LevelError, msg)
		return fmt.Errorf("list session %s: %w", sourceSession, err)
	}

	filesConverted := 0
	for _, obj := range listing.Objects {
		if !ArticleKey(obj.Key) {
			continue
		}
		converted, err := c.convertOne(ctx, obj.Key)
		if err != nil {
			c.journal.Append(status.LevelError, fmt.Sprintf("Error converting %s: %v", obj.Key, err))
			continue
		}
		if converted {
			filesConverted++
		}
	}

	c.stats.Finish(filesConverted)
	c.journal.Append(status.LevelSuccess,
		fmt.Sprintf("Conversion complete! %d files converted to %s", filesConverted, c.cfg.TargetBucket))
	return nil
}

func (c *Converter) convertOne(ctx context.Context, key string) (bool, error) {
	data, _, err := c.gateway.Get(ctx, c.cfg.SourceBucket, key)
	if err != nil {
		return false, err
	}
	var art article
	if err := json.Unmarshal(data, &art); err != nil {
		return false, fmt.Errorf("parse article JSON: %w", err)
	}
	body := art.body()
	if body == "" {
		c.journal.Append(status.LevelWarning, fmt.Sprintf("Skipped %s (no text content)", key))
		return false, nil
	}

	title := art.Title
	if title == "" {
		title = "No Title"
	}
	author := art.Author
	if author == "" {
		author = "Unknown"
	}
	date := art.Date
	if date == "" {
		date = "Unknown"
	}

	formatted := fmt.Sprintf("Title: %s\nAuthor: %s\nDate: %s\n\nContent:\n%s", title, author, date, body)
	txtKey := strings.TrimSuffix(key, ".json") + ".txt"
	if err := c.gateway.Put(ctx, c.cfg.TargetBucket, txtKey, "text/plain", []byte(formatted)); err != nil {
		return false, err
	}
	c.journal.Append(status.LevelSuccess, fmt.Sprintf("Converted: %s -> %s", key, txtKey))
	return true, nil
}
