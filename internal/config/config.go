// Package config loads and validates indexer configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/JakeFAU/site-indexer/internal/indexing"
)

// EnvPrefix namespaces every environment override, e.g. INDEXER_INDEXING_DAILY_QUOTA.
const EnvPrefix = "INDEXER"

// Config captures all indexer configuration knobs loaded via Viper.
type Config struct {
	Site        SiteConfig        `mapstructure:"site"`
	Indexing    IndexingConfig    `mapstructure:"indexing"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Paths       PathsConfig       `mapstructure:"paths"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Quota       QuotaConfig       `mapstructure:"quota"`
	PubSub      PubSubConfig      `mapstructure:"pubsub"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Schedule    ScheduleConfig    `mapstructure:"schedule"`
}

// SiteConfig identifies the site whose sitemap is submitted.
type SiteConfig struct {
	Domain     string `mapstructure:"domain"`
	BaseURL    string `mapstructure:"base_url"`
	SitemapURL string `mapstructure:"sitemap_url"`
}

// IndexingConfig controls the submission endpoint, quota and pacing.
type IndexingConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	Scopes     []string      `mapstructure:"scopes"`
	Action     string        `mapstructure:"action"`
	DailyQuota int           `mapstructure:"daily_quota"`
	MaxPerRun  int           `mapstructure:"max_per_run"`
	PaceEvery  int           `mapstructure:"pace_every"`
	PaceDelay  time.Duration `mapstructure:"pace_delay"`

	// SkipProcessed drops URLs an earlier run already submitted successfully.
	SkipProcessed bool `mapstructure:"skip_processed"`
}

// CredentialsConfig points at the service-account key. JSON wins over File.
type CredentialsConfig struct {
	File string `mapstructure:"file"`
	JSON string `mapstructure:"json"`
}

// HTTPConfig configures the outbound HTTP client.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// PathsConfig holds the flat-file locations.
type PathsConfig struct {
	ResultsLog string `mapstructure:"results_log"`
	Summary    string `mapstructure:"summary"`
	Quota      string `mapstructure:"quota"`
	Processed  string `mapstructure:"processed"`
	LogFile    string `mapstructure:"log_file"`
}

// StorageConfig selects where the daily summary is written.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// QuotaConfig selects where quota state and the processed-URL set live.
type QuotaConfig struct {
	Backend           string `mapstructure:"backend"`
	RedisAddr         string `mapstructure:"redis_addr"`
	RedisKey          string `mapstructure:"redis_key"`
	ProcessedRedisKey string `mapstructure:"processed_redis_key"`
	DSN               string `mapstructure:"dsn"`
	Table             string `mapstructure:"table"`
	ProcessedTable    string `mapstructure:"processed_table"`
}

// PubSubConfig enables result fan-out to a topic.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// Enabled reports whether both project and topic are set.
func (p PubSubConfig) Enabled() bool {
	return p.ProjectID != "" && p.Topic != ""
}

// MetricsConfig configures the Prometheus pushgateway.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// ScheduleConfig turns the binary into a long-running cron scheduler when Cron is set.
type ScheduleConfig struct {
	Cron string `mapstructure:"cron"`
}

// Load builds a Config from disk/environment. With an empty path the
// standard search locations are tried; a missing file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/site-indexer/")
		v.AddConfigPath("$HOME/.site-indexer")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Site.SitemapURL == "" {
		cfg.Site.SitemapURL = strings.TrimRight(cfg.Site.BaseURL, "/") + "/sitemap.xml"
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.domain", "heic2png.store")
	v.SetDefault("site.base_url", "https://heic2png.store")
	v.SetDefault("site.sitemap_url", "")
	v.SetDefault("indexing.endpoint", "https://indexing.googleapis.com/v3/urlNotifications:publish")
	v.SetDefault("indexing.scopes", []string{"https://www.googleapis.com/auth/indexing"})
	v.SetDefault("indexing.action", string(indexing.ActionUpdated))
	v.SetDefault("indexing.daily_quota", 200)
	v.SetDefault("indexing.max_per_run", 0)
	v.SetDefault("indexing.pace_every", 10)
	v.SetDefault("indexing.pace_delay", "1s")
	v.SetDefault("indexing.skip_processed", false)
	v.SetDefault("credentials.file", "credentials/service-account.json")
	v.SetDefault("credentials.json", "")
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.user_agent", "site-indexer/1.0")
	v.SetDefault("paths.results_log", "logs/indexing_results.jsonl")
	v.SetDefault("paths.summary", "logs/daily_summary.json")
	v.SetDefault("paths.quota", "logs/quota_state.json")
	v.SetDefault("paths.processed", "logs/processed_urls.txt")
	v.SetDefault("paths.log_file", "logs/indexing_log.txt")
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("quota.backend", "file")
	v.SetDefault("quota.redis_addr", "")
	v.SetDefault("quota.redis_key", "site-indexer:quota")
	v.SetDefault("quota.processed_redis_key", "site-indexer:processed")
	v.SetDefault("quota.dsn", "")
	v.SetDefault("quota.table", "indexing_quota")
	v.SetDefault("quota.processed_table", "indexing_processed")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "site_indexer")
	v.SetDefault("logging.development", true)
	v.SetDefault("schedule.cron", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Site.Domain == "" {
		return fmt.Errorf("site.domain is required")
	}
	if c.Site.SitemapURL == "" {
		return fmt.Errorf("site.sitemap_url or site.base_url is required")
	}
	if c.Indexing.Endpoint == "" {
		return fmt.Errorf("indexing.endpoint is required")
	}
	if len(c.Indexing.Scopes) == 0 {
		return fmt.Errorf("indexing.scopes must not be empty")
	}
	if !indexing.Action(c.Indexing.Action).Valid() {
		return fmt.Errorf("indexing.action must be %s or %s, got %q",
			indexing.ActionUpdated, indexing.ActionDeleted, c.Indexing.Action)
	}
	if c.Indexing.DailyQuota <= 0 {
		return fmt.Errorf("indexing.daily_quota must be > 0")
	}
	if c.Indexing.MaxPerRun < 0 {
		return fmt.Errorf("indexing.max_per_run must be >= 0")
	}
	if c.Indexing.PaceEvery <= 0 {
		return fmt.Errorf("indexing.pace_every must be > 0")
	}
	if c.Indexing.PaceDelay < 0 {
		return fmt.Errorf("indexing.pace_delay must be >= 0")
	}
	if c.Credentials.File == "" && c.Credentials.JSON == "" {
		return fmt.Errorf("credentials.file or credentials.json is required")
	}
	if c.HTTP.TimeoutSeconds < 0 {
		return fmt.Errorf("http.timeout_seconds must be >= 0")
	}
	switch c.Storage.Backend {
	case "local", "memory":
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set when storage.backend is gcs")
		}
	default:
		return fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend)
	}
	switch c.Quota.Backend {
	case "file":
		if c.Indexing.SkipProcessed && c.Paths.Processed == "" {
			return fmt.Errorf("paths.processed must be set when indexing.skip_processed is on")
		}
	case "memory":
	case "redis":
		if c.Quota.RedisAddr == "" {
			return fmt.Errorf("quota.redis_addr must be set when quota.backend is redis")
		}
	case "postgres":
		if c.Quota.DSN == "" {
			return fmt.Errorf("quota.dsn must be set when quota.backend is postgres")
		}
	default:
		return fmt.Errorf("quota.backend %q is not supported", c.Quota.Backend)
	}
	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return fmt.Errorf("schedule.cron %q: %w", c.Schedule.Cron, err)
		}
	}
	return nil
}

// HTTPTimeout converts http.timeout_seconds into a duration; zero means no client timeout.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// Action returns the configured notification type.
func (c Config) Action() indexing.Action {
	return indexing.Action(c.Indexing.Action)
}
