// Package worker runs the ingestion loop: discover URLs for the active
// sources, fetch and extract them with bounded concurrency, dedupe, score,
// gate and persist. One worker per process; parallel workers coordinate
// only through the store and registry.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hazyhaar/sportwire/canon"
	"github.com/hazyhaar/sportwire/extract"
	"github.com/hazyhaar/sportwire/idgen"
	"github.com/hazyhaar/sportwire/internal/discovery"
	"github.com/hazyhaar/sportwire/internal/fetch"
	"github.com/hazyhaar/sportwire/internal/quality"
	"github.com/hazyhaar/sportwire/internal/queryqueue"
	"github.com/hazyhaar/sportwire/internal/store"
	"github.com/hazyhaar/sportwire/internal/trending"
	"github.com/hazyhaar/sportwire/neardup"
	"github.com/hazyhaar/sportwire/registry"
)

// Worker states, visible in heartbeats.
const (
	StateInitializing = "initializing"
	StateRunning      = "running"
	StateCycling      = "cycling"
	StateIdle         = "idle"
	StateDraining     = "draining"
	StateStopped      = "stopped"
)

// Config tunes one worker.
type Config struct {
	WorkerID              string        `yaml:"worker_id"`
	BatchSize             int           `yaml:"batch_size"`
	MaxConcurrentRequests int64         `yaml:"max_concurrent_requests"`
	MaxURLsPerCycle       int           `yaml:"max_urls_per_cycle"`
	CycleDelay            time.Duration `yaml:"cycle_delay"`
	HeartbeatInterval     time.Duration `yaml:"heartbeat_interval"`
	TrendingInterval      time.Duration `yaml:"trending_interval"`
	IndexWarmup           int           `yaml:"index_warmup"`
}

func (c *Config) defaults() {
	if c.WorkerID == "" {
		c.WorkerID = idgen.New()
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.MaxConcurrentRequests <= 0 {
		c.MaxConcurrentRequests = 8
	}
	if c.MaxURLsPerCycle <= 0 {
		c.MaxURLsPerCycle = 200
	}
	if c.CycleDelay <= 0 {
		c.CycleDelay = 60 * time.Second
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.TrendingInterval <= 0 {
		c.TrendingInterval = 5 * time.Minute
	}
	if c.IndexWarmup <= 0 {
		c.IndexWarmup = 1000
	}
}

// Deps are the collaborators a worker orchestrates.
type Deps struct {
	Store     *store.Store
	Registry  *registry.Registry
	Fetcher   *fetch.Fetcher
	Extractor *extract.Extractor
	Discovery *discovery.Engine
	Detector  *trending.Detector
	Queue     *queryqueue.Queue
	Gate      *quality.Gate
	Dedupe    *neardup.Index
	Log       *slog.Logger

	// Thresholds and RepBounds tune classification and reputation
	// clamping; zero values use the package defaults.
	Thresholds quality.Thresholds
	RepBounds  quality.Bounds
}

// Worker is the ingestion loop.
type Worker struct {
	cfg  Config
	deps Deps
	log  *slog.Logger

	mu    sync.Mutex
	state string

	pagesCrawled     atomic.Int64
	contentExtracted atomic.Int64
	duplicates       atomic.Int64
	qualityFiltered  atomic.Int64
	errCount         atomic.Int64

	fetchMs   ring
	extractMs ring

	cycleErrors int

	// sleep is swapped in tests so cycles run without wall-clock delays.
	sleep func(ctx context.Context, d time.Duration)
}

func New(cfg Config, deps Deps) *Worker {
	cfg.defaults()
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		cfg:   cfg,
		deps:  deps,
		log:   log.With("component", "worker", "worker_id", cfg.WorkerID),
		state: StateInitializing,
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (w *Worker) setState(s string) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// State returns the current lifecycle state.
func (w *Worker) State() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Run drives the worker until ctx is cancelled, then drains: background
// tasks stop, in-flight work finishes, the heartbeat key is removed.
func (w *Worker) Run(ctx context.Context) error {
	w.setState(StateInitializing)
	if err := w.warmIndex(ctx); err != nil {
		w.log.Warn("index warmup failed", "error", err)
	}

	bg, cancelBG := context.WithCancel(context.WithoutCancel(ctx))
	var tasks sync.WaitGroup
	tasks.Add(2)
	go func() {
		defer tasks.Done()
		w.deps.Registry.HeartbeatLoop(bg, w.cfg.HeartbeatInterval, w.heartbeat, w.log)
	}()
	go func() {
		defer tasks.Done()
		w.trendingLoop(bg)
	}()

	w.setState(StateRunning)
	w.log.Info("worker started",
		"batch_size", w.cfg.BatchSize,
		"max_concurrent", w.cfg.MaxConcurrentRequests)

	for ctx.Err() == nil {
		w.setState(StateCycling)
		err := w.cycle(ctx)
		switch {
		case err == nil || errors.Is(err, context.Canceled):
			w.cycleErrors = 0
			w.setState(StateIdle)
			w.sleep(ctx, w.cfg.CycleDelay)
		default:
			w.cycleErrors++
			w.errCount.Add(1)
			backoff := cycleBackoff(w.cycleErrors)
			w.log.Error("cycle failed", "error", err, "consecutive", w.cycleErrors, "backoff", backoff)
			w.setState(StateIdle)
			w.sleep(ctx, backoff)
		}
	}

	w.setState(StateDraining)
	w.log.Info("worker draining")
	cancelBG()
	tasks.Wait()
	w.setState(StateStopped)
	w.log.Info("worker stopped")
	return nil
}

// cycleBackoff grows exponentially with consecutive cycle failures,
// capped at one minute.
func cycleBackoff(errs int) time.Duration {
	if errs > 6 {
		errs = 6
	}
	secs := math.Min(60, math.Pow(2, float64(errs)))
	return time.Duration(secs) * time.Second
}

// warmIndex reloads recent content signatures so restarts keep catching
// near-duplicates of recently stored items.
func (w *Worker) warmIndex(ctx context.Context) error {
	rows, err := w.deps.Store.RecentContentHashes(ctx, w.cfg.IndexWarmup)
	if err != nil {
		return err
	}
	for _, r := range rows {
		w.deps.Dedupe.Add(r[0], r[1], r[2])
	}
	w.log.Info("index warmed", "entries", len(rows))
	return nil
}

func (w *Worker) heartbeat() registry.Heartbeat {
	return registry.Heartbeat{
		WorkerID:         w.cfg.WorkerID,
		State:            w.State(),
		PagesCrawled:     w.pagesCrawled.Load(),
		ContentExtracted: w.contentExtracted.Load(),
		Duplicates:       w.duplicates.Load(),
		QualityFiltered:  w.qualityFiltered.Load(),
		Errors:           w.errCount.Load(),
		AvgFetchMs:       w.fetchMs.avg(),
		AvgExtractMs:     w.extractMs.avg(),
	}
}

// trendingLoop runs the detector periodically and turns trending terms
// into queued discovery queries.
func (w *Worker) trendingLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.TrendingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.RunTrending(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.log.Warn("trending pass failed", "error", err)
			}
		}
	}
}

// RunTrending is one detector pass: detect, generate queries, enqueue,
// cool the emitting terms down.
func (w *Worker) RunTrending(ctx context.Context) error {
	terms, err := w.deps.Detector.Detect(ctx)
	if err != nil {
		return err
	}
	queries := trending.GenerateQueries(terms, time.Now())
	emitted := make(map[string]struct{})
	for _, q := range queries {
		if err := w.deps.Queue.Push(ctx, q.TermNorm, q.Query, q.Priority); err != nil {
			return err
		}
		emitted[q.TermNorm] = struct{}{}
	}
	for termNorm := range emitted {
		if err := w.deps.Detector.Cooldown(ctx, termNorm); err != nil {
			w.log.Warn("cooldown failed", "term", termNorm, "error", err)
		}
	}
	if len(queries) > 0 {
		w.log.Info("trending queries enqueued", "terms", len(emitted), "queries", len(queries))
	}
	return nil
}

// Cycle runs one full pass over the active sources plus any claimed
// trending queries. Exported for the facade's RunOnce.
func (w *Worker) Cycle(ctx context.Context) error { return w.cycle(ctx) }

func (w *Worker) cycle(ctx context.Context) error {
	sources, err := w.deps.Store.ListActiveSources(ctx)
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}

	budget := w.cfg.MaxURLsPerCycle
	for _, src := range sources {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if budget <= 0 {
			break
		}
		n, err := w.crawlSource(ctx, src, budget)
		if err != nil {
			w.log.Warn("source cycle failed", "domain", src.Domain, "error", err)
		}
		budget -= n
	}

	if budget > 0 {
		if err := w.drainTrendingQueries(ctx, budget); err != nil && !errors.Is(err, context.Canceled) {
			w.log.Warn("trending drain failed", "error", err)
		}
	}
	return ctx.Err()
}

// crawlSource discovers and processes URLs for one source under one
// ingestion job. Returns how many URLs it consumed from the cycle budget.
func (w *Worker) crawlSource(ctx context.Context, src *store.Source, budget int) (int, error) {
	job := &store.IngestionJob{
		ID:       idgen.New(),
		SourceID: src.ID,
		Kind:     "crawl",
		Status:   store.JobPending,
	}
	if err := w.deps.Store.CreateJob(ctx, job); err != nil {
		return 0, err
	}
	if err := w.deps.Store.StartJob(ctx, job.ID); err != nil {
		return 0, err
	}

	urls, err := w.deps.Discovery.Discover(ctx, discovery.SourceConfig{
		SourceID:      src.ID,
		RSSURL:        src.RSSURL,
		SitemapURL:    src.SitemapURL,
		SearchQueries: src.SearchQueries,
	})
	if err != nil {
		w.recordDiscoveryFailure(ctx, src, err)
		_ = w.deps.Store.CompleteJob(ctx, job.ID, store.JobFailed, 0, 0, 0, 0, err.Error())
		return 0, err
	}
	if src.RSSURL != "" {
		_ = w.deps.Store.RecordSourceSuccess(ctx, src.ID, "feed")
	}
	if src.SitemapURL != "" {
		_ = w.deps.Store.RecordSourceSuccess(ctx, src.ID, "sitemap")
	}

	if len(urls) > budget {
		urls = urls[:budget]
	}
	ok, failed := w.processBatches(ctx, src.ID, urls)

	status := store.JobCompleted
	if ctx.Err() != nil {
		status = store.JobFailed
	}
	summary := fmt.Sprintf("discovered=%d ok=%d failed=%d", len(urls), ok, failed)
	if err := w.deps.Store.CompleteJob(ctx, job.ID, status, len(urls), ok+failed, ok, failed, summary); err != nil {
		w.log.Warn("job completion failed", "job_id", job.ID, "error", err)
	}

	w.refreshReputation(ctx, src)
	return len(urls), nil
}

// recordDiscoveryFailure counts a consecutive failure and deactivates the
// source once the run is long enough to call it dead.
func (w *Worker) recordDiscoveryFailure(ctx context.Context, src *store.Source, cause error) {
	failures, err := w.deps.Store.RecordSourceFailure(ctx, src.ID)
	if err != nil {
		w.log.Warn("failure bookkeeping failed", "domain", src.Domain, "error", err)
		return
	}
	if failures >= quality.DeactivateThreshold {
		if err := w.deps.Store.SetSourceActive(ctx, src.ID, false); err != nil {
			w.log.Warn("deactivation failed", "domain", src.Domain, "error", err)
			return
		}
		w.log.Error("source deactivated",
			"domain", src.Domain,
			"consecutive_failures", failures,
			"last_error", cause.Error())
	}
}

// refreshReputation recomputes a source's reputation, tier and rates from
// its recent output.
func (w *Worker) refreshReputation(ctx context.Context, src *store.Source) {
	scores, err := w.deps.Store.RecentQualityScores(ctx, src.ID, 50)
	if err != nil || len(scores) == 0 {
		return
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	avg := sum / float64(len(scores))

	errRate, _, err := w.deps.Store.SourceErrorRate(ctx, src.ID, 24*time.Hour)
	if err != nil {
		return
	}
	succRate, err := w.deps.Store.SourceSuccessRate(ctx, src.ID, 24*time.Hour)
	if err != nil {
		return
	}

	rep := quality.Reputation(avg, errRate, w.deps.RepBounds)
	tier := quality.TierFor(rep, errRate)
	if err := w.deps.Store.UpdateSourceReputation(ctx, src.ID, rep, tier, succRate, errRate); err != nil {
		w.log.Warn("reputation update failed", "domain", src.Domain, "error", err)
	}
}

// drainTrendingQueries claims queued discovery queries and routes them
// through the registered search providers.
func (w *Worker) drainTrendingQueries(ctx context.Context, budget int) error {
	providers := w.deps.Discovery.Providers()
	names := providers.Names()
	if len(names) == 0 {
		return nil
	}
	for budget > 0 && ctx.Err() == nil {
		entry, err := w.deps.Queue.Claim(ctx)
		if err != nil {
			return err
		}
		if entry == nil {
			return nil
		}

		var urls []string
		for _, name := range names {
			p, ok := providers.Get(name)
			if !ok {
				continue
			}
			found, err := p.Search(ctx, entry.Query, budget)
			if err != nil {
				w.log.Warn("provider search failed", "provider", name, "query", entry.Query, "error", err)
				continue
			}
			urls = append(urls, found...)
		}
		urls = discovery.Dedupe(urls)
		if len(urls) > budget {
			urls = urls[:budget]
		}
		okCount, _ := w.processBatches(ctx, "", urls)
		budget -= len(urls)

		if err := w.deps.Queue.Ack(ctx, entry.ID); err != nil {
			w.log.Warn("query ack failed", "id", entry.ID, "error", err)
		}
		w.log.Info("trending query processed",
			"query", entry.Query, "urls", len(urls), "stored", okCount)
	}
	return ctx.Err()
}

// processBatches fans the URL list out in batches under the global
// concurrency cap. Per-URL failures never abort the batch.
func (w *Worker) processBatches(ctx context.Context, sourceID string, urls []string) (ok, failed int) {
	sem := semaphore.NewWeighted(w.cfg.MaxConcurrentRequests)
	var okN, failN atomic.Int64

	for start := 0; start < len(urls); start += w.cfg.BatchSize {
		if ctx.Err() != nil {
			break
		}
		end := start + w.cfg.BatchSize
		if end > len(urls) {
			end = len(urls)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, u := range urls[start:end] {
			u := u
			if err := sem.Acquire(gctx, 1); err != nil {
				break
			}
			g.Go(func() error {
				defer sem.Release(1)
				if w.process(gctx, sourceID, u) {
					okN.Add(1)
				} else {
					failN.Add(1)
				}
				return nil
			})
		}
		_ = g.Wait()
	}
	return int(okN.Load()), int(failN.Load())
}

// process runs the full per-URL stage chain. It never panics and never
// returns an error to the batch: every failure becomes counters plus one
// structured log line. Returns true when the item was stored.
func (w *Worker) process(ctx context.Context, sourceID, rawURL string) (stored bool) {
	started := time.Now()
	stage := "fetch"
	defer func() {
		if r := recover(); r != nil {
			w.errCount.Add(1)
			w.log.Error("item processing panicked",
				"url", rawURL,
				"stage", stage,
				"elapsed", time.Since(started),
				"kind", "panic",
				"panic", r)
			stored = false
		}
	}()
	fail := func(kind string, err error) bool {
		w.errCount.Add(1)
		w.log.Warn("item processing failed",
			"url", rawURL,
			"stage", stage,
			"elapsed", time.Since(started),
			"kind", kind,
			"error", err)
		return false
	}

	res, err := w.deps.Fetcher.Fetch(ctx, rawURL)
	if err != nil {
		switch {
		case errors.Is(err, fetch.ErrRobotsBlocked):
			return fail("robots_blocked", err)
		case errors.Is(err, fetch.ErrBodyTooLarge):
			return fail("oversize", err)
		case errors.Is(err, context.Canceled):
			return false
		default:
			return fail("transport", err)
		}
	}
	w.pagesCrawled.Add(1)
	w.fetchMs.add(float64(res.Duration.Milliseconds()))
	if !res.OK() {
		return fail("http_status", fmt.Errorf("status %d", res.Status))
	}

	stage = "extract"
	extractStart := time.Now()
	ext, err := w.deps.Extractor.Extract(res.Body, rawURL, res.FinalURL)
	w.extractMs.add(float64(time.Since(extractStart).Milliseconds()))
	if err != nil {
		return fail("extract", err)
	}
	w.contentExtracted.Add(1)

	stage = "dedupe"
	canonical := ext.CanonicalURL
	if canonical == "" {
		canonical = canon.Canonicalise(res.FinalURL)
	}
	if existing, err := w.deps.Store.GetContentByCanonicalURL(ctx, canonical); err != nil {
		return fail("store", err)
	} else if existing != nil {
		w.duplicates.Add(1)
		return false
	}
	if !w.deps.Dedupe.Add(ext.ContentHash, ext.Title, ext.Text) {
		w.duplicates.Add(1)
		return false
	}

	stage = "score"
	srcInfo := quality.SourceInfo{Reputation: 0.5, Tier: 3, SuccessRate: 1}
	if sourceID != "" {
		if src, err := w.deps.Store.GetSource(ctx, sourceID); err == nil && src != nil {
			srcInfo = quality.SourceInfo{
				Reputation:  src.Reputation,
				Tier:        src.Tier,
				SuccessRate: src.SuccessRate,
			}
		}
	}
	ageHours := -1.0
	if !ext.PublishedAt.IsZero() {
		ageHours = time.Since(ext.PublishedAt).Hours()
	}
	assessment := quality.Score(quality.Content{
		Title:        ext.Title,
		Text:         ext.Text,
		Markdown:     ext.Markdown,
		WordCount:    ext.WordCount,
		AgeHours:     ageHours,
		Keywords:     ext.Keywords,
		ContentType:  ext.ContentType,
		Language:     ext.Language,
		DeclaredLang: ext.DeclaredLang,
		LangProb:     ext.LangProb,
	}, srcInfo, w.deps.Thresholds)

	stage = "gate"
	decision := w.deps.Gate.Check(assessment.Score)
	if !decision.Accept {
		w.qualityFiltered.Add(1)
		w.log.Info("item rejected",
			"url", rawURL,
			"stage", stage,
			"elapsed", time.Since(started),
			"kind", decision.Reason)
		return false
	}

	stage = "persist"
	if sourceID == "" {
		id, err := w.ensureSource(ctx, canonical)
		if err != nil {
			return fail("store", err)
		}
		sourceID = id
	}
	item := &store.ContentItem{
		ID:               idgen.New(),
		SourceID:         sourceID,
		URL:              rawURL,
		CanonicalURL:     canonical,
		ContentHash:      ext.ContentHash,
		Title:            ext.Title,
		Text:             ext.Text,
		Markdown:         ext.Markdown,
		Byline:           ext.Byline,
		Summary:          ext.Summary,
		Language:         ext.Language,
		WordCount:        ext.WordCount,
		ImageURL:         ext.ImageURL,
		SportsKeywords:   ext.Keywords,
		Entities:         ext.Entities,
		ContentType:      ext.ContentType,
		ExtractionStatus: "success",
		ExtractionMethod: ext.Method,
		QualityScore:     assessment.Score,
		GateReason:       decision.Reason,
		IsActive:         true,
	}
	if !ext.PublishedAt.IsZero() {
		item.PublishedAt = ext.PublishedAt.UnixMilli()
	}
	inserted, err := w.deps.Store.UpsertContentItem(ctx, item)
	if err != nil {
		return fail("store", err)
	}
	if !inserted {
		// another worker won the insert race
		w.duplicates.Add(1)
		return false
	}

	signals := make([]store.QualitySignal, 0, len(assessment.Signals))
	now := time.Now().UnixMilli()
	for _, b := range assessment.Signals {
		signals = append(signals, store.QualitySignal{
			ItemID:      item.ID,
			Kind:        b.Kind,
			Value:       b.Value,
			Weight:      b.Weight,
			AlgoVersion: assessment.AlgoVersion,
			ComputedAt:  now,
		})
	}
	if err := w.deps.Store.InsertSignals(ctx, signals); err != nil {
		w.log.Warn("signal persist failed", "item_id", item.ID, "error", err)
	}

	stage = "mentions"
	w.recordMentions(ctx, item)

	w.log.Info("item stored",
		"url", rawURL,
		"item_id", item.ID,
		"score", assessment.Score,
		"classification", assessment.Classification,
		"elapsed", time.Since(started))
	return true
}

// ensureSource resolves the source row for a URL that arrived without one.
// Trending-query discovery hands the pipeline bare URLs; the first accepted
// item from a new domain creates its source at the default tier.
func (w *Worker) ensureSource(ctx context.Context, canonical string) (string, error) {
	host := canon.Host(canonical)
	if host == "" {
		return "", fmt.Errorf("no host in url %q", canonical)
	}
	src, err := w.deps.Store.GetSourceByDomain(ctx, host)
	if err != nil {
		return "", err
	}
	if src != nil {
		return src.ID, nil
	}
	created := &store.Source{
		ID:       idgen.New(),
		Domain:   host,
		Name:     host,
		IsActive: true,
	}
	switch err := w.deps.Store.InsertSource(ctx, created); {
	case errors.Is(err, store.ErrDuplicateSource):
		// another worker inserted the domain between lookup and insert
		existing, gerr := w.deps.Store.GetSourceByDomain(ctx, host)
		if gerr != nil {
			return "", gerr
		}
		if existing == nil {
			return "", err
		}
		return existing.ID, nil
	case err != nil:
		return "", err
	}
	w.log.Info("source created from discovery", "source_id", created.ID, "domain", host)
	return created.ID, nil
}

// recordMentions feeds the trending counters from the stored item.
func (w *Worker) recordMentions(ctx context.Context, item *store.ContentItem) {
	terms := trending.ExtractTerms(item.Title, item.Text, item.SportsKeywords)
	if len(terms) == 0 {
		return
	}
	now := time.Now().UnixMilli()
	mentions := make([]store.Mention, 0, len(terms))
	for _, t := range terms {
		mentions = append(mentions, store.Mention{
			TermNorm:      t.Norm,
			TermType:      t.Type,
			SportsContext: t.SportsContext,
			ItemID:        item.ID,
			SeenAt:        now,
		})
	}
	if err := w.deps.Store.InsertMentions(ctx, mentions); err != nil {
		w.log.Warn("mention persist failed", "item_id", item.ID, "error", err)
	}
}

// Stats is the worker's public counter snapshot.
type Stats struct {
	WorkerID         string  `json:"worker_id"`
	State            string  `json:"state"`
	PagesCrawled     int64   `json:"pages_crawled"`
	ContentExtracted int64   `json:"content_extracted"`
	Duplicates       int64   `json:"duplicates_filtered"`
	QualityFiltered  int64   `json:"quality_filtered"`
	Errors           int64   `json:"errors"`
	AvgFetchMs       float64 `json:"avg_fetch_ms"`
	AvgExtractMs     float64 `json:"avg_extract_ms"`
	Goroutines       int     `json:"goroutines"`
}

func (w *Worker) Stats() Stats {
	return Stats{
		WorkerID:         w.cfg.WorkerID,
		State:            w.State(),
		PagesCrawled:     w.pagesCrawled.Load(),
		ContentExtracted: w.contentExtracted.Load(),
		Duplicates:       w.duplicates.Load(),
		QualityFiltered:  w.qualityFiltered.Load(),
		Errors:           w.errCount.Load(),
		AvgFetchMs:       w.fetchMs.avg(),
		AvgExtractMs:     w.extractMs.avg(),
		Goroutines:       runtime.NumGoroutine(),
	}
}
