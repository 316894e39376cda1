// Package metrics exposes Prometheus collectors for the control plane.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	jobsTotal          *prometheus.CounterVec
	activeJobs         *prometheus.GaugeVec
	logLinesTotal      *prometheus.CounterVec
	scrapeProgress     prometheus.Gauge
	articlesSavedTotal prometheus.Counter
	imagesSavedTotal   prometheus.Counter
	httpRequestsTotal  *prometheus.CounterVec
	httpDurationSecs   *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		jobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_jobs_total",
				Help: "Total background jobs run, labeled by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		activeJobs = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scraper_active_jobs",
				Help: "Whether a job of each kind is currently running.",
			},
			[]string{"kind"},
		)

		logLinesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_log_lines_total",
				Help: "Journal entries recorded, labeled by job kind and level.",
			},
			[]string{"kind", "level"},
		)

		scrapeProgress = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scraper_scrape_progress_percent",
				Help: "Progress of the current or last scrape run.",
			},
		)

		articlesSavedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_articles_saved_total",
				Help: "Articles the scraper reported saved, across all runs.",
			},
		)

		imagesSavedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_images_saved_total",
				Help: "Images the scraper reported saved, across all runs.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpDurationSecs = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and path.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "path"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveJob increments the job counter for the given kind and outcome.
func ObserveJob(kind, outcome string) {
	jobsTotal.WithLabelValues(kind, outcome).Inc()
}

// SetJobActive flips the active gauge for a job kind.
func SetJobActive(kind string, active bool) {
	v := 0.0
	if active {
		v = 1.0
	}
	activeJobs.WithLabelValues(kind).Set(v)
}

// ObserveLogLine counts a journal entry by kind and level.
func ObserveLogLine(kind, level string) {
	logLinesTotal.WithLabelValues(kind, level).Inc()
}

// SetScrapeProgress records the scrape progress percentage.
func SetScrapeProgress(pct int) {
	scrapeProgress.Set(float64(pct))
}

// ObserveArticleSaved counts one saved article.
func ObserveArticleSaved() {
	articlesSavedTotal.Inc()
}

// ObserveImageSaved counts one saved image.
func ObserveImageSaved() {
	imagesSavedTotal.Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, path string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpDurationSecs.WithLabelValues(method, path).Observe(duration.Seconds())
}
