// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pagehound/pagehound/internal/crawler"
	"github.com/pagehound/pagehound/internal/policy/ratelimit"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server       ServerConfig               `mapstructure:"server"`
	Auth         AuthConfig                 `mapstructure:"auth"`
	Crawl        CrawlConfig                `mapstructure:"crawl"`
	Tiers        []crawler.TierConfig       `mapstructure:"tiers"`
	Completeness crawler.CompletenessConfig `mapstructure:"completeness"`
	Persist      PersistConfig              `mapstructure:"persist"`
	RateLimit    ratelimit.Config           `mapstructure:"rate_limit"`
	Headless     HeadlessConfig             `mapstructure:"headless"`
	Storage      StorageConfig              `mapstructure:"storage"`
	Database     DatabaseConfig             `mapstructure:"database"`
	Ledger       LedgerConfig               `mapstructure:"ledger"`
	Logging      LoggingConfig              `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CrawlConfig governs worker pool behavior and per-job defaults.
type CrawlConfig struct {
	Concurrency         int           `mapstructure:"concurrency"`
	QueueDepth          int           `mapstructure:"queue_depth"`
	UserAgent           string        `mapstructure:"user_agent"`
	RespectRobots       bool          `mapstructure:"respect_robots"`
	MaxPagesDefault     int           `mapstructure:"max_pages_default"`
	MaxDocumentsDefault int           `mapstructure:"max_documents_default"`
	MaxDepthDefault     int           `mapstructure:"max_depth_default"`
	PerRequestTimeout   time.Duration `mapstructure:"per_request_timeout"`
	TotalTimeout        time.Duration `mapstructure:"total_timeout"`
}

// PersistConfig controls object store retry behavior.
type PersistConfig struct {
	MaxStoreRetries int           `mapstructure:"max_store_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
}

// HeadlessConfig configures the rendering fetch tiers.
type HeadlessConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxParallel int           `mapstructure:"max_parallel"`
	NavTimeout  time.Duration `mapstructure:"nav_timeout"`
	ProxyURL    string        `mapstructure:"proxy_url"`
}

// StorageConfig selects and parameterizes the object store backend.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// DatabaseConfig selects and parameterizes the job store backend.
type DatabaseConfig struct {
	Provider        string        `mapstructure:"provider"`
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// LedgerConfig selects and parameterizes the report ledger backend.
type LedgerConfig struct {
	Provider      string `mapstructure:"provider"`
	ProjectID     string `mapstructure:"project_id"`
	ProgressTopic string `mapstructure:"progress_topic"`
	TerminalTopic string `mapstructure:"terminal_topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PAGEHOUND")
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
	if len(cfg.Tiers) == 0 {
		cfg.Tiers = DefaultTiers()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultTiers returns the built-in three-tier strategy table ordered by
// cost: plain HTTP, rendered, rendered with stealth and premium proxies.
func DefaultTiers() []crawler.TierConfig {
	return []crawler.TierConfig{
		{
			Name:           "basic",
			Render:         false,
			Timeout:        15 * time.Second,
			CostPerRequest: 1,
		},
		{
			Name:           "rendered",
			Render:         true,
			Wait:           2 * time.Second,
			Timeout:        25 * time.Second,
			CostPerRequest: 5,
		},
		{
			Name:           "stealth",
			Render:         true,
			ProxyClass:     "residential",
			Wait:           4 * time.Second,
			Timeout:        40 * time.Second,
			CostPerRequest: 25,
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("crawl.concurrency", 4)
	v.SetDefault("crawl.queue_depth", 64)
	v.SetDefault("crawl.user_agent", "pagehound/0.1")
	v.SetDefault("crawl.respect_robots", true)
	v.SetDefault("crawl.max_pages_default", 100)
	v.SetDefault("crawl.max_documents_default", 50)
	v.SetDefault("crawl.max_depth_default", 3)
	v.SetDefault("crawl.per_request_timeout", "30s")
	v.SetDefault("crawl.total_timeout", "15m")
	v.SetDefault("completeness.min_html_bytes", 512)
	v.SetDefault("completeness.min_text_blocks", 2)
	v.SetDefault("completeness.placeholder_keywords", []string{
		"enable javascript",
		"javascript is required",
		"loading...",
	})
	v.SetDefault("persist.max_store_retries", 3)
	v.SetDefault("persist.retry_backoff", "250ms")
	v.SetDefault("rate_limit.requests_per_second", 2)
	v.SetDefault("rate_limit.burst", 1)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 2)
	v.SetDefault("headless.nav_timeout", "25s")
	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.local_dir", "./data/objects")
	v.SetDefault("database.provider", "memory")
	v.SetDefault("ledger.provider", "memory")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawl.Concurrency <= 0 {
		return fmt.Errorf("crawl.concurrency must be > 0")
	}
	if c.Crawl.QueueDepth <= 0 {
		return fmt.Errorf("crawl.queue_depth must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if len(c.Tiers) == 0 {
		return fmt.Errorf("at least one fetch tier is required")
	}
	for i, tier := range c.Tiers {
		if tier.Name == "" {
			return fmt.Errorf("tiers[%d].name is required", i)
		}
		if tier.CostPerRequest < 0 {
			return fmt.Errorf("tiers[%d].cost_per_request must be >= 0", i)
		}
		if i > 0 && tier.CostPerRequest < c.Tiers[i-1].CostPerRequest {
			return fmt.Errorf("tiers must be ordered by ascending cost: %q is cheaper than %q",
				tier.Name, c.Tiers[i-1].Name)
		}
	}
	switch c.Storage.Provider {
	case "memory":
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir is required for the local provider")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket is required for the gcs provider")
		}
	default:
		return fmt.Errorf("unknown storage.provider %q", c.Storage.Provider)
	}
	switch c.Database.Provider {
	case "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres provider")
		}
	default:
		return fmt.Errorf("unknown database.provider %q", c.Database.Provider)
	}
	switch c.Ledger.Provider {
	case "memory":
	case "pubsub":
		if c.Ledger.ProjectID == "" || c.Ledger.ProgressTopic == "" || c.Ledger.TerminalTopic == "" {
			return fmt.Errorf("ledger.project_id, ledger.progress_topic, and ledger.terminal_topic are required for the pubsub provider")
		}
	default:
		return fmt.Errorf("unknown ledger.provider %q", c.Ledger.Provider)
	}
	return nil
}
