// Package pipeline is the composition root: it wires the store, registry,
// fetcher, discovery, trending, quality gate, worker, search engine and
// HTTP API into one Service, and exposes the facade types callers use.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/sportwire/extract"
	"github.com/hazyhaar/sportwire/httpapi"
	"github.com/hazyhaar/sportwire/internal/discovery"
	"github.com/hazyhaar/sportwire/internal/fetch"
	"github.com/hazyhaar/sportwire/internal/proxy"
	"github.com/hazyhaar/sportwire/internal/quality"
	"github.com/hazyhaar/sportwire/internal/queryqueue"
	"github.com/hazyhaar/sportwire/internal/ratelimit"
	"github.com/hazyhaar/sportwire/internal/robots"
	"github.com/hazyhaar/sportwire/internal/store"
	"github.com/hazyhaar/sportwire/internal/trending"
	"github.com/hazyhaar/sportwire/internal/worker"
	"github.com/hazyhaar/sportwire/neardup"
	"github.com/hazyhaar/sportwire/registry"
	"github.com/hazyhaar/sportwire/search"
	"github.com/hazyhaar/sportwire/watch"
)

// FlagShadowMode is the registry feature flag that holds the quality
// gate in shadow mode. It is re-read live via the flag watcher.
const FlagShadowMode = "shadow_mode"

// Service owns every pipeline component. One Service per process.
type Service struct {
	cfg Config
	db  *sql.DB
	log *slog.Logger

	store   *store.Store
	reg     *registry.Registry
	gate    *quality.Gate
	queue   *queryqueue.Queue
	worker  *worker.Worker
	search  *search.Engine
	api     *httpapi.API
	watcher *watch.Watcher
}

// New wires a Service onto an open database. cfg should have passed
// through Load (or Defaults); New applies Defaults again so a
// hand-built Config works too.
func New(db *sql.DB, cfg Config, log *slog.Logger) (*Service, error) {
	cfg.Defaults()
	if log == nil {
		log = slog.Default()
	}

	st, err := store.NewStore(db)
	if err != nil {
		return nil, fmt.Errorf("pipeline: store: %w", err)
	}
	reg, err := registry.New(db)
	if err != nil {
		return nil, fmt.Errorf("pipeline: registry: %w", err)
	}

	pm, err := proxy.New(proxy.Config{
		Endpoints:   cfg.Proxy.Endpoints,
		DailyBudget: cfg.Proxy.DailyBudget,
		CostPerGB:   cfg.Proxy.CostPerGB,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: proxy: %w", err)
	}

	rc := robots.New(robots.Options{Agent: cfg.Fetch.UserAgent}, log)
	rl := ratelimit.New(cfg.Fetch.DefaultDelay)
	record := func(url string, status int, bytes int64, duration time.Duration, proxyLabel, errMsg string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		e := &store.FetchLogEntry{
			URL:        url,
			Status:     status,
			Bytes:      bytes,
			DurationMs: duration.Milliseconds(),
			Proxy:      proxyLabel,
			Error:      errMsg,
		}
		if err := st.AppendFetchLog(ctx, e); err != nil {
			log.Warn("fetch log append failed", "url", url, "error", err)
		}
	}
	fetcher := fetch.New(fetch.Config{
		UserAgent:      cfg.Fetch.UserAgent,
		Timeout:        cfg.Fetch.Timeout,
		MaxRetries:     cfg.Fetch.MaxRetries,
		RetryDelay:     cfg.Fetch.RetryDelay,
		MaxContentSize: cfg.Fetch.MaxContentSize,
		MaxRedirects:   cfg.Fetch.MaxRedirects,
		MaxPerDomain:   cfg.Fetch.MaxPerDomain,
		RespectRobots:  *cfg.Fetch.RespectRobots,
	}, rc, rl, pm, record, log)

	extractor := extract.New(extract.Options{}, log)

	fetchDoc := func(ctx context.Context, url string) ([]byte, error) {
		res, err := fetcher.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		if !res.OK() {
			return nil, fmt.Errorf("pipeline: fetch %s: status %d", url, res.Status)
		}
		return res.Body, nil
	}
	providers := discovery.NewProviders()
	for _, pc := range cfg.Providers {
		providers.Register(discovery.NewJSONAPIProvider(pc, nil))
	}
	disc := discovery.NewEngine(fetchDoc, providers, log)

	detector := trending.NewDetector(st, cfg.Trending, log)
	queue := queryqueue.New(db, log)
	gate := quality.NewGate(cfg.Quality.Threshold, cfg.Quality.Enforce)
	dedupe := neardup.NewIndex(neardup.IndexConfig{
		Threshold:   cfg.Dedupe.Threshold,
		MaxEntries:  cfg.Dedupe.MaxEntries,
		ShingleSize: cfg.Dedupe.ShingleSize,
	})

	w := worker.New(cfg.Worker, worker.Deps{
		Store:     st,
		Registry:  reg,
		Fetcher:   fetcher,
		Extractor: extractor,
		Discovery: disc,
		Detector:  detector,
		Queue:     queue,
		Gate:      gate,
		Dedupe:    dedupe,
		Log:       log,
		Thresholds: quality.Thresholds{
			Premium:  cfg.Quality.PremiumThreshold,
			Default:  cfg.Quality.DefaultThreshold,
			MinScore: cfg.Quality.Threshold,
		},
		RepBounds: quality.Bounds{
			Min: cfg.Quality.MinReputation,
			Max: cfg.Quality.MaxReputation,
		},
	})

	se := search.New(db, reg, search.Options{
		SlowThreshold: cfg.Search.SlowThreshold,
		CacheTTL:      cfg.Search.CacheTTL,
	}, log)

	s := &Service{
		cfg:     cfg,
		db:      db,
		log:     log.With("component", "pipeline"),
		store:   st,
		reg:     reg,
		gate:    gate,
		queue:   queue,
		worker:  w,
		search:  se,
		watcher: watch.New(db, watch.Options{Interval: time.Second, Debounce: 200 * time.Millisecond, Logger: log}),
	}
	s.api = httpapi.New(cfg.HTTP, se, st, reg, s.Stats, log)
	return s, nil
}

// Store exposes the persistence layer, mainly for seeding sources.
func (s *Service) Store() *store.Store { return s.store }

// Search exposes the query engine.
func (s *Service) Search() *search.Engine { return s.search }

// Registry exposes the KV registry.
func (s *Service) Registry() *registry.Registry { return s.reg }

// Run starts the worker loop, the HTTP API and the flag watcher, and
// blocks until ctx is cancelled or a component fails.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ReloadFlags(ctx); err != nil {
		s.log.Warn("initial flag load failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.worker.Run(ctx) })
	g.Go(func() error { return s.api.Serve(ctx) })
	g.Go(func() error {
		s.watcher.OnChange(ctx, func() error { return s.ReloadFlags(ctx) })
		return nil
	})
	return g.Wait()
}

// ReloadFlags re-reads registry feature flags and applies them. The
// default for shadow_mode is the inverse of the configured enforce
// setting, so an absent flag leaves the static config in charge.
func (s *Service) ReloadFlags(ctx context.Context) error {
	shadow, err := s.reg.Flag(ctx, FlagShadowMode, !s.cfg.Quality.Enforce)
	if err != nil {
		return err
	}
	if changed := s.gate.SetEnforce(!shadow); changed {
		s.log.Info("quality gate mode changed", "shadow", shadow)
	}
	return nil
}

// Stats aggregates component counters for /v1/stats and the MCP
// pipeline_stats tool.
func (s *Service) Stats(ctx context.Context) (map[string]any, error) {
	ws := s.worker.Stats()
	out := map[string]any{
		"worker_id":         ws.WorkerID,
		"worker_state":      ws.State,
		"pages_crawled":     ws.PagesCrawled,
		"content_extracted": ws.ContentExtracted,
		"duplicates":        ws.Duplicates,
		"quality_filtered":  ws.QualityFiltered,
		"errors":            ws.Errors,
		"avg_fetch_ms":      ws.AvgFetchMs,
		"avg_extract_ms":    ws.AvgExtractMs,
		"gate":              s.gate.Stats(),
		"flag_watch":        s.watcher.Stats(),
	}
	if d, err := s.queue.Depth(ctx); err == nil {
		out["query_queue_depth"] = d
	}
	return out, nil
}
