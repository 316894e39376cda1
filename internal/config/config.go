// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Scraper    ScraperConfig    `mapstructure:"scraper"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Summarizer SummarizerConfig `mapstructure:"summarizer"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// ScraperConfig describes how the external scraper binary is launched.
type ScraperConfig struct {
	// Path is the scraper executable invoked as:
	//   scraper <url> --max-articles N --output DIR
	Path               string `mapstructure:"path"`
	WorkDir            string `mapstructure:"work_dir"`
	DefaultMaxArticles int    `mapstructure:"default_max_articles"`
	StopGraceSeconds   int    `mapstructure:"stop_grace_seconds"`
}

// StorageConfig names the buckets each pipeline stage reads or writes.
type StorageConfig struct {
	// Provider selects the gateway implementation: "gcs" or "memory".
	Provider      string `mapstructure:"provider"`
	RawBucket     string `mapstructure:"raw_bucket"`
	TextBucket    string `mapstructure:"text_bucket"`
	SummaryBucket string `mapstructure:"summary_bucket"`
}

// SummarizerConfig points at the hosted inference API used for summaries.
type SummarizerConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	APIToken       string `mapstructure:"api_token"`
	TextModel      string `mapstructure:"text_model"`
	ImageModel     string `mapstructure:"image_model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// PubSubConfig holds metadata for job lifecycle notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("scraper.path", "/usr/local/bin/ultimate_scraper")
	v.SetDefault("scraper.work_dir", "")
	v.SetDefault("scraper.default_max_articles", 10)
	v.SetDefault("scraper.stop_grace_seconds", 5)
	v.SetDefault("storage.provider", "gcs")
	v.SetDefault("storage.raw_bucket", "bockscraper")
	v.SetDefault("storage.text_bucket", "bockscraper1")
	v.SetDefault("storage.summary_bucket", "bockscraper2")
	v.SetDefault("summarizer.endpoint", "https://api-inference.huggingface.co")
	v.SetDefault("summarizer.text_model", "sshleifer/distilbart-cnn-6-6")
	v.SetDefault("summarizer.image_model", "Salesforce/blip-image-captioning-base")
	v.SetDefault("summarizer.timeout_seconds", 120)
	v.SetDefault("pubsub.enabled", false)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scraper.Path == "" {
		return fmt.Errorf("scraper.path must be set")
	}
	if c.Scraper.DefaultMaxArticles <= 0 {
		return fmt.Errorf("scraper.default_max_articles must be > 0")
	}
	if c.Scraper.StopGraceSeconds <= 0 {
		return fmt.Errorf("scraper.stop_grace_seconds must be > 0")
	}
	switch c.Storage.Provider {
	case "gcs", "memory":
	default:
		return fmt.Errorf("unknown storage provider: %s", c.Storage.Provider)
	}
	if c.Storage.RawBucket == "" || c.Storage.TextBucket == "" || c.Storage.SummaryBucket == "" {
		return fmt.Errorf("storage raw/text/summary buckets must all be set")
	}
	if c.Summarizer.Endpoint == "" {
		return fmt.Errorf("summarizer.endpoint must be set")
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
	}
	return nil
}

// StopGrace converts the scraper stop grace period into a duration.
func (c Config) StopGrace() time.Duration {
	return time.Duration(c.Scraper.StopGraceSeconds) * time.Second
}

// SummarizerTimeout converts the inference timeout into a duration.
func (c Config) SummarizerTimeout() time.Duration {
	return time.Duration(c.Summarizer.TimeoutSeconds) * time.Second
}
