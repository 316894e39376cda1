// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"

	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/CyborPunk-2077/article-scraper/internal/api"
	"github.com/CyborPunk-2077/article-scraper/internal/config"
	"github.com/CyborPunk-2077/article-scraper/internal/convert"
	"github.com/CyborPunk-2077/article-scraper/internal/metrics"
	"github.com/CyborPunk-2077/article-scraper/internal/publisher"
	pubsubpublisher "github.com/CyborPunk-2077/article-scraper/internal/publisher/pubsub"
	"github.com/CyborPunk-2077/article-scraper/internal/scrape"
	"github.com/CyborPunk-2077/article-scraper/internal/status"
	"github.com/CyborPunk-2077/article-scraper/internal/storage"
	gcsgateway "github.com/CyborPunk-2077/article-scraper/internal/storage/gcs"
	memorygateway "github.com/CyborPunk-2077/article-scraper/internal/storage/memory"
	"github.com/CyborPunk-2077/article-scraper/internal/summarize"
	"github.com/CyborPunk-2077/article-scraper/internal/summarize/hf"
)

// App holds the shared, long-lived services for the control plane. It is
// initialized once at startup and torn down via Close.
type App struct {
	Server    *api.Server
	logger    *zap.Logger
	publisher publisher.Publisher
	gcsClient *gstorage.Client
}

// New builds every service from configuration, failing fast if any critical
// dependency cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	logger.Info("initializing application services")
	metrics.Init()

	a := &App{logger: logger}

	gateway, err := a.buildGateway(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pub, err := a.buildPublisher(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.publisher = pub

	inference, err := hf.New(hf.Config{
		Endpoint:   cfg.Summarizer.Endpoint,
		APIToken:   cfg.Summarizer.APIToken,
		TextModel:  cfg.Summarizer.TextModel,
		ImageModel: cfg.Summarizer.ImageModel,
		Timeout:    cfg.SummarizerTimeout(),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("init inference client: %w", err)
	}

	scrapeJournal := status.NewJournal(500)
	convertJournal := status.NewJournal(200)
	summarizeJournal := status.NewJournal(300)
	scrapeJournal.OnAppend(func(level status.Level) {
		metrics.ObserveLogLine(string(status.KindScrape), string(level))
	})
	convertJournal.OnAppend(func(level status.Level) {
		metrics.ObserveLogLine(string(status.KindConvert), string(level))
	})
	summarizeJournal.OnAppend(func(level status.Level) {
		metrics.ObserveLogLine(string(status.KindSummarize), string(level))
	})

	scrapeStats := &status.ScrapeStats{}
	convertStats := &status.ConvertStats{}
	summarizeStats := &status.SummarizeStats{}

	runner := scrape.NewRunner(scrape.Config{
		ScraperPath: cfg.Scraper.Path,
		WorkDir:     cfg.Scraper.WorkDir,
		RawBucket:   cfg.Storage.RawBucket,
		StopGrace:   cfg.StopGrace(),
	}, gateway, scrapeJournal, scrapeStats, logger.Named("scrape"))

	converter := convert.New(convert.Config{
		SourceBucket: cfg.Storage.RawBucket,
		TargetBucket: cfg.Storage.TextBucket,
	}, gateway, convertJournal, convertStats, logger.Named("convert"))

	summarizer := summarize.New(summarize.Config{
		SourceBucket: cfg.Storage.RawBucket,
		TargetBucket: cfg.Storage.SummaryBucket,
	}, gateway, inference, inference, summarizeJournal, summarizeStats, logger.Named("summarize"))

	a.Server = api.NewServer(api.Deps{
		Config:           cfg,
		Logger:           logger.Named("api"),
		Gateway:          gateway,
		Publisher:        pub,
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

	logger.Info("application services initialized")
	return a, nil
}

func (a *App) buildGateway(ctx context.Context, cfg config.Config) (storage.Gateway, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		a.logger.Info("using GCS storage provider",
			zap.String("raw_bucket", cfg.Storage.RawBucket),
			zap.String("text_bucket", cfg.Storage.TextBucket),
			zap.String("summary_bucket", cfg.Storage.SummaryBucket),
		)
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create GCS client: %w", err)
		}
		a.gcsClient = client
		gw, err := gcsgateway.New(client)
		if err != nil {
			return nil, fmt.Errorf("init GCS gateway: %w", err)
		}
		return gw, nil
	case "memory":
		a.logger.Info("using in-memory storage provider; objects are discarded on exit")
		return memorygateway.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Storage.Provider)
	}
}

func (a *App) buildPublisher(ctx context.Context, cfg config.Config) (publisher.Publisher, error) {
	if !cfg.PubSub.Enabled {
		a.logger.Info("lifecycle publishing disabled")
		return publisher.NoOp{}, nil
	}
	a.logger.Info("connecting to Pub/Sub", zap.String("topic", cfg.PubSub.TopicName))
	pub, err := pubsubpublisher.New(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
	if err != nil {
		return nil, fmt.Errorf("init pubsub publisher: %w", err)
	}
	return pub, nil
}

// Close gracefully shuts down all services in the container.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("error closing publisher", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("error closing storage client", zap.Error(err))
		}
	}
	if err := a.logger.Sync(); err != nil {
		// Best effort; logging itself may be failing.
		_ = err
	}
}
