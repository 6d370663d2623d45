// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Site     string         `mapstructure:"site"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	DB       DBConfig       `mapstructure:"db"`
	Blob     BlobConfig     `mapstructure:"blob"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// CrawlerConfig governs the pagination loop.
type CrawlerConfig struct {
	PageSize     int  `mapstructure:"page_size"`
	MaxPages     int  `mapstructure:"max_pages"`
	StopOnEmpty  bool `mapstructure:"stop_on_empty"`
	DelaySeconds int  `mapstructure:"delay_seconds"`
}

// Delay converts the pacing knob into a duration.
func (c CrawlerConfig) Delay() time.Duration {
	return time.Duration(c.DelaySeconds) * time.Second
}

// FetchConfig configures the page fetcher.
type FetchConfig struct {
	// Mode selects the fetcher: "headless" (chromedp) or "static" (colly).
	Mode                    string `mapstructure:"mode"`
	UserAgent               string `mapstructure:"user_agent"`
	NavTimeoutSeconds       int    `mapstructure:"nav_timeout_seconds"`
	SettleSeconds           int    `mapstructure:"settle_seconds"`
	ConsentTimeoutSeconds   int    `mapstructure:"consent_timeout_seconds"`
	ContainerTimeoutSeconds int    `mapstructure:"container_timeout_seconds"`
	HTTPTimeoutSeconds      int    `mapstructure:"http_timeout_seconds"`
}

// NavTimeout bounds one page navigation.
func (c FetchConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSeconds) * time.Second
}

// SettleDelay is the pause after navigation that lets dynamic content render.
func (c FetchConfig) SettleDelay() time.Duration {
	return time.Duration(c.SettleSeconds) * time.Second
}

// ConsentTimeout bounds the wait for the consent-dismiss control.
func (c FetchConfig) ConsentTimeout() time.Duration {
	return time.Duration(c.ConsentTimeoutSeconds) * time.Second
}

// ContainerTimeout bounds the wait for product containers to appear.
func (c FetchConfig) ContainerTimeout() time.Duration {
	return time.Duration(c.ContainerTimeoutSeconds) * time.Second
}

// HTTPTimeout bounds one static-mode request.
func (c FetchConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// SnapshotConfig sets the CSV snapshot destination.
type SnapshotConfig struct {
	Path string `mapstructure:"path"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN        string `mapstructure:"dsn"`
	Refresh    bool   `mapstructure:"refresh"`
	AppendRaw  bool   `mapstructure:"append_raw"`
	RawTable   string `mapstructure:"raw_table"`
	CleanTable string `mapstructure:"clean_table"`
	MaxConns   int32  `mapstructure:"max_conns"`
	MinConns   int32  `mapstructure:"min_conns"`
}

// Enabled reports whether any database work is requested.
func (c DBConfig) Enabled() bool {
	return c.Refresh || c.AppendRaw
}

// BlobConfig selects the snapshot archive provider.
type BlobConfig struct {
	// Provider is one of "none", "local" or "gcs".
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for run-completion notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CATALOG")
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
	v.SetDefault("site", "decathlon")
	v.SetDefault("crawler.page_size", 40)
	v.SetDefault("crawler.max_pages", 12)
	v.SetDefault("crawler.stop_on_empty", true)
	v.SetDefault("crawler.delay_seconds", 3)
	v.SetDefault("fetch.mode", "headless")
	v.SetDefault("fetch.user_agent", "catalog-crawler/0.1")
	v.SetDefault("fetch.nav_timeout_seconds", 25)
	v.SetDefault("fetch.settle_seconds", 2)
	v.SetDefault("fetch.consent_timeout_seconds", 10)
	v.SetDefault("fetch.container_timeout_seconds", 10)
	v.SetDefault("fetch.http_timeout_seconds", 15)
	v.SetDefault("snapshot.path", "data/products.csv")
	v.SetDefault("db.refresh", false)
	v.SetDefault("db.append_raw", false)
	v.SetDefault("db.raw_table", "products_raw")
	v.SetDefault("db.clean_table", "products_clean")
	v.SetDefault("blob.provider", "none")
	v.SetDefault("pubsub.enabled", false)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Site == "" {
		return fmt.Errorf("site must be set")
	}
	if c.Crawler.PageSize <= 0 {
		return fmt.Errorf("crawler.page_size must be > 0")
	}
	if c.Crawler.MaxPages <= 0 {
		return fmt.Errorf("crawler.max_pages must be > 0")
	}
	if c.Fetch.Mode != "headless" && c.Fetch.Mode != "static" {
		return fmt.Errorf("fetch.mode must be headless or static, got %q", c.Fetch.Mode)
	}
	if c.Snapshot.Path == "" {
		return fmt.Errorf("snapshot.path must be set")
	}
	if c.DB.Enabled() && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set when db.refresh or db.append_raw is enabled")
	}
	switch c.Blob.Provider {
	case "none":
	case "local":
		if c.Blob.LocalDir == "" {
			return fmt.Errorf("blob.local_dir must be set when blob.provider is local")
		}
	case "gcs":
		if c.Blob.GCSBucket == "" {
			return fmt.Errorf("blob.gcs_bucket must be set when blob.provider is gcs")
		}
	default:
		return fmt.Errorf("blob.provider must be none, local or gcs, got %q", c.Blob.Provider)
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
	}
	if c.Metrics.Enabled && c.Metrics.Port <= 0 {
		return fmt.Errorf("metrics.port must be > 0 when metrics are enabled")
	}
	return nil
}
