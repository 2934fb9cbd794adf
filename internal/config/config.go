// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store driver names accepted in db.driver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config captures all crawler configuration knobs loaded via Viper.
type Config struct {
	DB      DBConfig      `mapstructure:"db"`
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Ops     OpsConfig     `mapstructure:"ops"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// DBConfig selects and configures the durable store backing the frontier and
// document collections.
type DBConfig struct {
	Driver         string `mapstructure:"driver"`
	DSN            string `mapstructure:"dsn"`
	Path           string `mapstructure:"path"`
	FrontierTable  string `mapstructure:"frontier_table"`
	DocumentsTable string `mapstructure:"documents_table"`
	MaxConns       int    `mapstructure:"max_conns"`
}

// CrawlConfig governs seeding, scheduling and worker behavior.
type CrawlConfig struct {
	StartURLs          []string `mapstructure:"start_urls"`
	URLsJSONL          string   `mapstructure:"urls_jsonl"`
	AllowedDomains     []string `mapstructure:"allowed_domains"`
	RequestDelaySec    float64  `mapstructure:"request_delay_sec"`
	IdleWaitSec        float64  `mapstructure:"idle_wait_sec"`
	RecrawlIntervalSec int      `mapstructure:"recrawl_interval_sec"`
	MaxPages           int      `mapstructure:"max_pages"`
	WorkerCount        int      `mapstructure:"worker_count"`
	UserAgent          string   `mapstructure:"user_agent"`
	RespectRobots      bool     `mapstructure:"respect_robots"`
	FollowLinks        bool     `mapstructure:"follow_links"`
}

// HTTPConfig configures the page fetch client.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// OpsConfig controls the operational HTTP endpoint. Port 0 disables it.
type OpsConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
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
	v.SetDefault("db.driver", DriverSQLite)
	v.SetDefault("db.path", "data/crawl.db")
	v.SetDefault("db.frontier_table", "frontier")
	v.SetDefault("db.documents_table", "documents")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("crawl.request_delay_sec", 1.0)
	v.SetDefault("crawl.idle_wait_sec", 1.0)
	v.SetDefault("crawl.recrawl_interval_sec", 86400)
	v.SetDefault("crawl.max_pages", 0)
	v.SetDefault("crawl.worker_count", 4)
	v.SetDefault("crawl.user_agent", "unisearch-bot/0.1")
	v.SetDefault("crawl.respect_robots", true)
	v.SetDefault("crawl.follow_links", false)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("ops.port", 0)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch c.DB.Driver {
	case DriverPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required for the postgres driver")
		}
	case DriverSQLite:
		if c.DB.Path == "" {
			return fmt.Errorf("db.path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("db.driver must be one of postgres, sqlite, memory")
	}
	if c.Crawl.WorkerCount <= 0 {
		return fmt.Errorf("crawl.worker_count must be > 0")
	}
	if c.Crawl.RecrawlIntervalSec <= 0 {
		return fmt.Errorf("crawl.recrawl_interval_sec must be > 0")
	}
	if c.Crawl.RequestDelaySec < 0 {
		return fmt.Errorf("crawl.request_delay_sec must be >= 0")
	}
	if c.Crawl.MaxPages < 0 {
		return fmt.Errorf("crawl.max_pages must be >= 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if len(c.Crawl.StartURLs) == 0 && c.Crawl.URLsJSONL == "" {
		return fmt.Errorf("one of crawl.start_urls or crawl.urls_jsonl must be set")
	}
	return nil
}

// RequestDelay returns the per-worker politeness delay.
func (c Config) RequestDelay() time.Duration {
	return time.Duration(c.Crawl.RequestDelaySec * float64(time.Second))
}

// IdleWait returns the sleep applied when no frontier item is eligible.
func (c Config) IdleWait() time.Duration {
	return time.Duration(c.Crawl.IdleWaitSec * float64(time.Second))
}

// RecrawlInterval returns the delay before a completed URL becomes eligible
// again. The same interval applies to successes and failures.
func (c Config) RecrawlInterval() time.Duration {
	return time.Duration(c.Crawl.RecrawlIntervalSec) * time.Second
}

// FetchTimeout returns the bound applied to each page fetch.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
