package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CyborPunk-2077/article-scraper/internal/config"
	"github.com/CyborPunk-2077/article-scraper/internal/convert"
	"github.com/CyborPunk-2077/article-scraper/internal/metrics"
	"github.com/CyborPunk-2077/article-scraper/internal/publisher"
	"github.com/CyborPunk-2077/article-scraper/internal/scrape"
	"github.com/CyborPunk-2077/article-scraper/internal/status"
	"github.com/CyborPunk-2077/article-scraper/internal/storage/memory"
	"github.com/CyborPunk-2077/article-scraper/internal/summarize"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

type stubSummarizer struct{}

func (stubSummarizer) Summarize(context.Context, string) (string, error) {
	return "stub summary", nil
}

type stubCaptioner struct{}

func (stubCaptioner) Caption(context.Context, []byte) (string, error) {
	return "stub caption", nil
}

// newTestServer wires a Server over the in-memory gateway with a shell script
// standing in for the scraper binary.
func newTestServer(t *testing.T, scraperScript string) (*Server, *memory.Gateway) {
	t.Helper()

	scraperPath := filepath.Join(t.TempDir(), "scraper.sh")
	require.NoError(t, os.WriteFile(scraperPath, []byte("#!/bin/sh\n"+scraperScript), 0o755))

	gateway := memory.New()
	scrapeJournal := status.NewJournal(500)
	convertJournal := status.NewJournal(200)
	summarizeJournal := status.NewJournal(300)
	scrapeStats := &status.ScrapeStats{}
	convertStats := &status.ConvertStats{}
	summarizeStats := &status.SummarizeStats{}

	cfg := config.Config{
		Scraper: config.ScraperConfig{
			Path:               scraperPath,
			WorkDir:            t.TempDir(),
			DefaultMaxArticles: 10,
			StopGraceSeconds:   1,
		},
		Storage: config.StorageConfig{
			Provider:      "memory",
			RawBucket:     "raw-bucket",
			TextBucket:    "text-bucket",
			SummaryBucket: "summary-bucket",
		},
	}

	runner := scrape.NewRunner(scrape.Config{
		ScraperPath: scraperPath,
		WorkDir:     cfg.Scraper.WorkDir,
		RawBucket:   cfg.Storage.RawBucket,
		StopGrace:   cfg.StopGrace(),
	}, gateway, scrapeJournal, scrapeStats, nil)

	converter := convert.New(convert.Config{
		SourceBucket: cfg.Storage.RawBucket,
		TargetBucket: cfg.Storage.TextBucket,
	}, gateway, convertJournal, convertStats, nil)

	summarizer := summarize.New(summarize.Config{
		SourceBucket: cfg.Storage.RawBucket,
		TargetBucket: cfg.Storage.SummaryBucket,
	}, gateway, stubSummarizer{}, stubCaptioner{}, summarizeJournal, summarizeStats, nil)

	s := NewServer(Deps{
		Config:           cfg,
		Gateway:          gateway,
		Publisher:        publisher.NoOp{},
		Runner:           runner,
		Converter:        converter,
		Summarizer:       summarizer,
		ScrapeJournal:    scrapeJournal,
		ScrapeStats:      scrapeStats,
		ConvertJournal:   convertJournal,
		ConvertStats:     convertStats,
		SummarizeJournal: summarizeJournal,
		SummarizeStats:   summarizeStats,
	})
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	return s, gateway
}

func postJSON(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func getPath(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

// waitIdle polls a tracker until its background job releases it.
func waitIdle(t *testing.T, tracker *status.Tracker) {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for tracker.Active() {
		select {
		case <-deadline:
			t.Fatal("job did not finish in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, "exit 0\n")
	rec := getPath(t, s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decodeBody(t, rec)["status"])
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestStartScraping_Validation(t *testing.T) {
	s, _ := newTestServer(t, "exit 0\n")

	rec := postJSON(t, s, "/start_scraping", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, s, "/start_scraping", `{"maxArticles":3}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "URL is required", decodeBody(t, rec)["error"])
}

func TestStartScraping_RejectsWhileActive(t *testing.T) {
	s, _ := newTestServer(t, "exit 0\n")

	require.True(t, s.scrapeTracker.TryAcquire())
	defer s.scrapeTracker.Release()

	rec := postJSON(t, s, "/start_scraping", `{"url":"http://example.com"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Scraping already in progress", decodeBody(t, rec)["error"])
}

func TestStartScraping_RunsToCompletion(t *testing.T) {
	s, gateway := newTestServer(t, `
for arg; do out="$arg"; done
mkdir -p "$out"
echo '{"title":"T","content":"b"}' > "$out/article.json"
echo "SAVED: $out/article.json"
echo "COMPLETE"
`)

	rec := postJSON(t, s, "/start_scraping", `{"url":"http://example.com","maxArticles":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decodeBody(t, rec)
	require.Equal(t, "started", payload["status"])
	require.Equal(t, "session_1700000000", payload["sessionId"])

	waitIdle(t, &s.scrapeTracker)

	rec = getPath(t, s, "/get_status")
	require.Equal(t, http.StatusOK, rec.Code)
	statusBody := decodeBody(t, rec)
	require.Equal(t, false, statusBody["active"])
	require.Equal(t, true, statusBody["completed"])
	require.Equal(t, float64(100), statusBody["progress"])
	require.Equal(t, float64(1), statusBody["articlesFound"])
	require.Equal(t, "session_1700000000", statusBody["sessionId"])

	require.Equal(t, []string{"session_1700000000/article.json"}, gateway.Keys("raw-bucket"))
}

func TestGetStatus_InitialShape(t *testing.T) {
	s, _ := newTestServer(t, "exit 0\n")

	rec := getPath(t, s, "/get_status")
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decodeBody(t, rec)
	require.Equal(t, false, payload["active"])
	require.Equal(t, false, payload["completed"])
	require.Equal(t, float64(0), payload["progress"])
	require.Nil(t, payload["sessionId"])
	require.Empty(t, payload["logs"])
}

func TestStopScraping(t *testing.T) {
	s, _ := newTestServer(t, "exit 0\n")
	rec := postJSON(t, s, "/stop_scraping", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "stopped", decodeBody(t, rec)["status"])
}

func TestListBucket_PartitionsFoldersAndFiles(t *testing.T) {
	s, gateway := newTestServer(t, "exit 0\n")
	ctx := context.Background()
	require.NoError(t, gateway.Put(ctx, "raw-bucket", "session_1/article.json", "", []byte("{}")))
	require.NoError(t, gateway.Put(ctx, "raw-bucket", "session_1/sub/deep.json", "", []byte("{}")))
	require.NoError(t, gateway.Put(ctx, "raw-bucket", "session_2/other.json", "", []byte("{}")))

	rec := postJSON(t, s, "/list_bucket", `{"bucket":"raw-bucket"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decodeBody(t, rec)
	require.Len(t, payload["folders"], 2)
	require.Empty(t, payload["files"])

	// Trailing slash is added to the prefix if missing.
	rec = postJSON(t, s, "/list_bucket", `{"bucket":"raw-bucket","prefix":"session_1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	payload = decodeBody(t, rec)

	folders := payload["folders"].([]any)
	require.Len(t, folders, 1)
	require.Equal(t, "sub", folders[0].(map[string]any)["name"])

	files := payload["files"].([]any)
	require.Len(t, files, 1)
	file := files[0].(map[string]any)
	require.Equal(t, "article.json", file["name"])
	require.Equal(t, "session_1/article.json", file["key"])
	require.Equal(t, float64(2), file["size"])
	require.NotEmpty(t, file["lastModified"])
}

func TestListBucket_Validation(t *testing.T) {
	s, _ := newTestServer(t, "exit 0\n")
	rec := postJSON(t, s, "/list_bucket", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadFile(t *testing.T) {
	s, gateway := newTestServer(t, "exit 0\n")
	ctx := context.Background()
	require.NoError(t, gateway.Put(ctx, "raw-bucket", "session_1/article.json", "application/json", []byte(`{"a":1}`)))

	rec := postJSON(t, s, "/download_file", `{"bucket":"raw-bucket","key":"session_1/article.json"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `{"a":1}`, rec.Body.String())
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "attachment; filename=article.json", rec.Header().Get("Content-Disposition"))

	rec = postJSON(t, s, "/download_file", `{"bucket":"raw-bucket","key":"missing"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = postJSON(t, s, "/download_file", `{"bucket":"raw-bucket"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConvertToText_Flow(t *testing.T) {
	s, gateway := newTestServer(t, "exit 0\n")
	ctx := context.Background()
	require.NoError(t, gateway.Put(ctx, "raw-bucket", "session_1/article.json", "",
		[]byte(`{"title":"T","content":"the body"}`)))

	rec := postJSON(t, s, "/convert_to_text", `{"sourceSession":"session_1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decodeBody(t, rec)
	require.Equal(t, "started", payload["status"])
	require.Equal(t, "text-bucket", payload["targetBucket"])

	waitIdle(t, &s.convertTracker)

	rec = getPath(t, s, "/conversion_status")
	require.Equal(t, http.StatusOK, rec.Code)
	statusBody := decodeBody(t, rec)
	require.Equal(t, true, statusBody["completed"])
	require.Nil(t, statusBody["error"])
	require.Equal(t, float64(1), statusBody["filesConverted"])
	require.Equal(t, "text-bucket", statusBody["targetBucket"])

	require.Equal(t, []string{"session_1/article.txt"}, gateway.Keys("text-bucket"))
}

func TestConvertToText_Validation(t *testing.T) {
	s, _ := newTestServer(t, "exit 0\n")

	rec := postJSON(t, s, "/convert_to_text", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	require.True(t, s.convertTracker.TryAcquire())
	defer s.convertTracker.Release()
	rec = postJSON(t, s, "/convert_to_text", `{"sourceSession":"session_1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Conversion already in progress", decodeBody(t, rec)["error"])
}

func TestGenerateSummaries_Flow(t *testing.T) {
	s, gateway := newTestServer(t, "exit 0\n")
	ctx := context.Background()
	body := strings.Repeat("inflation datapoint. ", 20)
	require.NoError(t, gateway.Put(ctx, "raw-bucket", "session_1/article.json", "",
		[]byte(`{"content":"`+body+`"}`)))
	require.NoError(t, gateway.Put(ctx, "raw-bucket", "session_1/image.jpg", "", []byte("jpeg")))

	rec := postJSON(t, s, "/generate_summaries", `{"sourceSession":"session_1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "summary-bucket", decodeBody(t, rec)["targetBucket"])

	waitIdle(t, &s.summarizeTracker)

	rec = getPath(t, s, "/summarization_status")
	require.Equal(t, http.StatusOK, rec.Code)
	statusBody := decodeBody(t, rec)
	require.Equal(t, true, statusBody["completed"])
	require.Equal(t, float64(1), statusBody["textSummaries"])
	require.Equal(t, float64(1), statusBody["imageSummaries"])
	require.Equal(t, float64(1), statusBody["totalFolders"])

	require.Equal(t, []string{
		"session_1/article_text_summary.json",
		"session_1/image_image_summary.json",
	}, gateway.Keys("summary-bucket"))
}

func TestGenerateSummaries_Validation(t *testing.T) {
	s, _ := newTestServer(t, "exit 0\n")

	rec := postJSON(t, s, "/generate_summaries", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	require.True(t, s.summarizeTracker.TryAcquire())
	defer s.summarizeTracker.Release()
	rec = postJSON(t, s, "/generate_summaries", `{"sourceSession":"session_1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Summarization already in progress", decodeBody(t, rec)["error"])
}
