package pipeline

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/sportwire/httpapi"
	"github.com/hazyhaar/sportwire/internal/discovery"
	"github.com/hazyhaar/sportwire/internal/trending"
	"github.com/hazyhaar/sportwire/internal/worker"
)

// Config is the whole pipeline's configuration: one YAML file, nested
// sections, env overrides in a flat SECTION_FIELD scheme applied after
// unmarshal, defaults applied last.
type Config struct {
	Database  DatabaseConfig            `yaml:"database"`
	HTTP      httpapi.Config            `yaml:"http"`
	Worker    worker.Config             `yaml:"worker"`
	Fetch     FetchConfig               `yaml:"fetch"`
	Proxy     ProxyConfig               `yaml:"proxy"`
	Quality   QualityConfig             `yaml:"quality"`
	Search    SearchConfig              `yaml:"search"`
	Trending  trending.Config           `yaml:"trending"`
	Dedupe    DedupeConfig              `yaml:"dedupe"`
	Providers []discovery.JSONAPIConfig `yaml:"providers"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

func (c *DatabaseConfig) defaults() {
	if c.Path == "" {
		c.Path = "sportwire.db"
	}
}

// FetchConfig shapes the fetcher and its per-host pacing.
type FetchConfig struct {
	UserAgent      string        `yaml:"user_agent"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	MaxContentSize int64         `yaml:"max_content_size"`
	MaxRedirects   int           `yaml:"max_redirects"`
	MaxPerDomain   int           `yaml:"max_per_domain"`
	DefaultDelay   time.Duration `yaml:"default_delay"`
	// RespectRobots defaults on; nil means unset.
	RespectRobots *bool `yaml:"respect_robots"`
}

func (c *FetchConfig) defaults() {
	if c.DefaultDelay <= 0 {
		c.DefaultDelay = 2 * time.Second
	}
	if c.RespectRobots == nil {
		on := true
		c.RespectRobots = &on
	}
}

type ProxyConfig struct {
	Endpoints   []string `yaml:"endpoints"`
	DailyBudget float64  `yaml:"daily_budget"`
	CostPerGB   float64  `yaml:"cost_per_gb"`
}

type QualityConfig struct {
	// Threshold is the minimum accepted score; it doubles as the
	// acceptable classification band.
	Threshold        float64 `yaml:"threshold"`
	PremiumThreshold float64 `yaml:"premium_threshold"`
	DefaultThreshold float64 `yaml:"default_threshold"`
	MinReputation    float64 `yaml:"min_reputation"`
	MaxReputation    float64 `yaml:"max_reputation"`
	Enforce          bool    `yaml:"enforce"`
}

func (c *QualityConfig) defaults() {
	if c.Threshold <= 0 {
		c.Threshold = 0.4
	}
	if c.PremiumThreshold <= 0 {
		c.PremiumThreshold = 0.8
	}
	if c.DefaultThreshold <= 0 {
		c.DefaultThreshold = 0.6
	}
	if c.MaxReputation <= 0 {
		c.MaxReputation = 1
	}
}

// SearchConfig tunes the result cache of the search engine.
type SearchConfig struct {
	SlowThreshold time.Duration `yaml:"slow_threshold"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
}

type DedupeConfig struct {
	Threshold   float64 `yaml:"threshold"`
	MaxEntries  int     `yaml:"max_entries"`
	ShingleSize int     `yaml:"shingle_size"`
}

// Defaults applies every section's defaults. Component packages own
// their own zero-value handling; this only covers facade-level fields.
func (c *Config) Defaults() {
	c.Database.defaults()
	c.Fetch.defaults()
	c.Quality.defaults()
}

// Load reads a YAML config file, applies env overrides and defaults.
// A missing file is not an error: env + defaults alone run a worker.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// fall through to env + defaults
		default:
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	cfg.Defaults()
	return cfg, nil
}

// ApplyEnv overlays SECTION_FIELD environment variables. get is
// parameterised for tests.
func (c *Config) ApplyEnv(get func(string) string) error {
	var err error
	set := func(key string, apply func(string) error) {
		if err != nil {
			return
		}
		if v := get(key); v != "" {
			if e := apply(v); e != nil {
				err = fmt.Errorf("config: %s: %w", key, e)
			}
		}
	}

	set("DATABASE_PATH", func(v string) error { c.Database.Path = v; return nil })
	set("HTTP_ADDR", func(v string) error { c.HTTP.Addr = v; return nil })
	set("HTTP_RATE_PER_SECOND", floatInto(&c.HTTP.RatePerSecond))
	set("HTTP_RATE_BURST", intInto(&c.HTTP.RateBurst))
	set("WORKER_ID", func(v string) error { c.Worker.WorkerID = v; return nil })
	set("WORKER_BATCH_SIZE", intInto(&c.Worker.BatchSize))
	set("WORKER_MAX_URLS_PER_CYCLE", intInto(&c.Worker.MaxURLsPerCycle))
	set("WORKER_CYCLE_DELAY", durationInto(&c.Worker.CycleDelay))
	set("WORKER_HEARTBEAT_INTERVAL", durationInto(&c.Worker.HeartbeatInterval))
	set("WORKER_TRENDING_INTERVAL", durationInto(&c.Worker.TrendingInterval))
	set("FETCH_USER_AGENT", func(v string) error { c.Fetch.UserAgent = v; return nil })
	set("FETCH_TIMEOUT", durationInto(&c.Fetch.Timeout))
	set("FETCH_DEFAULT_DELAY", durationInto(&c.Fetch.DefaultDelay))
	set("FETCH_MAX_CONTENT_SIZE", int64Into(&c.Fetch.MaxContentSize))
	set("FETCH_RESPECT_ROBOTS", func(v string) error {
		b, e := strconv.ParseBool(v)
		if e != nil {
			return e
		}
		c.Fetch.RespectRobots = &b
		return nil
	})
	set("PROXY_ENDPOINTS", func(v string) error {
		c.Proxy.Endpoints = splitNonEmpty(v)
		return nil
	})
	set("PROXY_DAILY_BUDGET", floatInto(&c.Proxy.DailyBudget))
	set("PROXY_COST_PER_GB", floatInto(&c.Proxy.CostPerGB))
	set("QUALITY_THRESHOLD", floatInto(&c.Quality.Threshold))
	set("QUALITY_PREMIUM_THRESHOLD", floatInto(&c.Quality.PremiumThreshold))
	set("QUALITY_DEFAULT_THRESHOLD", floatInto(&c.Quality.DefaultThreshold))
	set("QUALITY_MIN_REPUTATION", floatInto(&c.Quality.MinReputation))
	set("QUALITY_MAX_REPUTATION", floatInto(&c.Quality.MaxReputation))
	set("QUALITY_ENFORCE", boolInto(&c.Quality.Enforce))
	set("SEARCH_SLOW_THRESHOLD", durationInto(&c.Search.SlowThreshold))
	set("SEARCH_CACHE_TTL", durationInto(&c.Search.CacheTTL))
	set("TRENDING_MIN_BURST_RATIO", floatInto(&c.Trending.MinBurstRatio))
	set("TRENDING_MIN_TREND_SCORE", floatInto(&c.Trending.MinTrendScore))
	set("DEDUPE_THRESHOLD", floatInto(&c.Dedupe.Threshold))
	return err
}

func floatInto(dst *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func intInto(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func int64Into(dst *int64) func(string) error {
	return func(v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func boolInto(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func durationInto(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}

func splitNonEmpty(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
