package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WHAT: YAML file -> env overlay -> defaults, in that order.
func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sportwire.yaml")
	doc := `
database:
  path: /var/lib/sportwire.db
http:
  addr: ":9090"
quality:
  threshold: 0.55
  enforce: true
fetch:
  user_agent: filebot/1.0
providers:
  - name: newsapi
    url_template: https://api.example.com/search?q=${QUERY}
    link_field: link
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("QUALITY_ENFORCE", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/var/lib/sportwire.db" {
		t.Errorf("database.path: %q", cfg.Database.Path)
	}
	if cfg.HTTP.Addr != ":7070" {
		t.Errorf("env should win over file: addr %q", cfg.HTTP.Addr)
	}
	if cfg.Quality.Threshold != 0.55 {
		t.Errorf("quality.threshold: %v", cfg.Quality.Threshold)
	}
	if cfg.Quality.Enforce {
		t.Error("QUALITY_ENFORCE=false should override the file")
	}
	if cfg.Fetch.UserAgent != "filebot/1.0" {
		t.Errorf("fetch.user_agent: %q", cfg.Fetch.UserAgent)
	}
	if len(cfg.Providers) != 1 || cfg.Providers[0].Name != "newsapi" {
		t.Errorf("providers: %+v", cfg.Providers)
	}
	if cfg.Fetch.RespectRobots == nil || !*cfg.Fetch.RespectRobots {
		t.Error("respect_robots should default on")
	}
}

// WHAT: a missing config file is not an error; defaults still apply.
func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "sportwire.db" {
		t.Errorf("default database path: %q", cfg.Database.Path)
	}
	if cfg.Quality.Threshold != 0.4 {
		t.Errorf("default quality threshold: %v", cfg.Quality.Threshold)
	}
	if cfg.Quality.PremiumThreshold != 0.8 || cfg.Quality.DefaultThreshold != 0.6 {
		t.Errorf("default classification bands: %+v", cfg.Quality)
	}
	if cfg.Quality.MinReputation != 0 || cfg.Quality.MaxReputation != 1 {
		t.Errorf("default reputation bounds: %+v", cfg.Quality)
	}
	if cfg.Fetch.DefaultDelay != 2*time.Second {
		t.Errorf("default crawl delay: %v", cfg.Fetch.DefaultDelay)
	}
}

// WHAT: typed env parsing, including durations and bad values.
func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"WORKER_CYCLE_DELAY":        "90s",
		"FETCH_TIMEOUT":             "15s",
		"PROXY_ENDPOINTS":           "http://u:p@a:8080, http://u:p@b:8080",
		"QUALITY_THRESHOLD":         "0.6",
		"QUALITY_PREMIUM_THRESHOLD": "0.9",
		"SEARCH_SLOW_THRESHOLD":     "250ms",
		"SEARCH_CACHE_TTL":          "10m",
		"FETCH_RESPECT_ROBOTS":      "false",
	}
	var cfg Config
	if err := cfg.ApplyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Worker.CycleDelay != 90*time.Second {
		t.Errorf("cycle delay: %v", cfg.Worker.CycleDelay)
	}
	if cfg.Fetch.Timeout != 15*time.Second {
		t.Errorf("fetch timeout: %v", cfg.Fetch.Timeout)
	}
	if len(cfg.Proxy.Endpoints) != 2 || cfg.Proxy.Endpoints[1] != "http://u:p@b:8080" {
		t.Errorf("proxy endpoints: %v", cfg.Proxy.Endpoints)
	}
	if cfg.Quality.Threshold != 0.6 {
		t.Errorf("threshold: %v", cfg.Quality.Threshold)
	}
	if cfg.Quality.PremiumThreshold != 0.9 {
		t.Errorf("premium threshold: %v", cfg.Quality.PremiumThreshold)
	}
	if cfg.Search.SlowThreshold != 250*time.Millisecond || cfg.Search.CacheTTL != 10*time.Minute {
		t.Errorf("search cache settings: %+v", cfg.Search)
	}
	if cfg.Fetch.RespectRobots == nil || *cfg.Fetch.RespectRobots {
		t.Error("respect_robots override lost")
	}

	bad := func(string) string { return "not-a-duration" }
	var cfg2 Config
	if err := cfg2.ApplyEnv(bad); err == nil {
		t.Error("garbage env values should error")
	}
}
