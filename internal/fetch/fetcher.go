// Package fetch implements the resilient HTTP fetcher: robots compliance,
// per-host pacing and concurrency caps, proxy rotation with retries, and a
// final direct attempt when every proxied one failed.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/sportwire/internal/proxy"
	"github.com/hazyhaar/sportwire/internal/ratelimit"
	"github.com/hazyhaar/sportwire/internal/robots"
)

// Failure modes the worker counts separately.
var (
	ErrRobotsBlocked = errors.New("fetch: blocked by robots.txt")
	ErrBodyTooLarge  = errors.New("fetch: body exceeds size limit")
)

// Result is one completed fetch. Non-2xx responses still produce a Result
// so callers can record HTTP-level telemetry.
type Result struct {
	URL      string
	FinalURL string
	Status   int
	Headers  http.Header
	Body     []byte
	Encoding string
	Duration time.Duration
	Proxy    string // proxy label, "" for direct
}

// OK reports a 2xx status.
func (r *Result) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Config tunes the fetcher.
type Config struct {
	UserAgent      string
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	MaxContentSize int64
	MaxRedirects   int
	MaxPerDomain   int  // concurrent in-flight fetches per host
	RespectRobots  bool // the facade defaults this on
}

func (c *Config) defaults() {
	if c.UserAgent == "" {
		c.UserAgent = "sportwire/1.0 (+https://github.com/hazyhaar/sportwire)"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.MaxContentSize <= 0 {
		c.MaxContentSize = 10 * 1024 * 1024
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = 5
	}
	if c.MaxPerDomain <= 0 {
		c.MaxPerDomain = 2
	}
}

// Recorder receives one telemetry record per completed or failed fetch.
type Recorder func(url string, status int, bytes int64, duration time.Duration, proxyLabel, errMsg string)

// Fetcher is the resilient HTTP client. One instance per worker.
type Fetcher struct {
	cfg     Config
	robots  *robots.Checker
	limiter *ratelimit.Limiter
	proxies *proxy.Manager
	record  Recorder
	log     *slog.Logger
	direct  *http.Transport

	mu    sync.Mutex
	hosts map[string]chan struct{} // per-host concurrency slots
}

// New creates a Fetcher. robots, limiter and proxies are required; record
// may be nil.
func New(cfg Config, rc *robots.Checker, rl *ratelimit.Limiter, pm *proxy.Manager, record Recorder, log *slog.Logger) *Fetcher {
	cfg.defaults()
	if log == nil {
		log = slog.Default()
	}
	if record == nil {
		record = func(string, int, int64, time.Duration, string, string) {}
	}
	return &Fetcher{
		cfg:     cfg,
		robots:  rc,
		limiter: rl,
		proxies: pm,
		record:  record,
		log:     log.With("component", "fetch"),
		direct:  &http.Transport{},
		hosts:   make(map[string]chan struct{}),
	}
}

// hostSlot returns the concurrency semaphore for a host.
func (f *Fetcher) hostSlot(host string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	sem, ok := f.hosts[host]
	if !ok {
		sem = make(chan struct{}, f.cfg.MaxPerDomain)
		f.hosts[host] = sem
	}
	return sem
}

// Fetch retrieves one URL. It blocks on the host's concurrency slot and
// rate token, honours robots and crawl-delay, then runs the proxied retry
// loop with a direct fallback. A non-nil Result ends the call even for
// 4xx/5xx statuses; nil means every transport path failed.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("fetch: invalid url %q", rawURL)
	}
	host := u.Host

	if f.cfg.RespectRobots && !f.robots.CanFetch(ctx, rawURL) {
		return nil, fmt.Errorf("%w: %s", ErrRobotsBlocked, rawURL)
	}

	sem := f.hostSlot(host)
	select {
	case sem <- struct{}{}:
		defer func() { <-sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := f.limiter.Acquire(ctx, host); err != nil {
		return nil, err
	}
	if delay, ok := f.robots.CrawlDelay(rawURL); ok {
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	var lastErr error
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := f.backoff(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		ep := f.proxies.Next()
		res, err := f.attempt(ctx, rawURL, host, ep)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if errors.Is(err, ErrBodyTooLarge) {
			return nil, err
		}
		lastErr = err
		f.log.Debug("fetch: attempt failed", "url", rawURL, "attempt", attempt, "error", err)
	}

	// Every proxied attempt failed; try once without a proxy.
	res, err := f.attempt(ctx, rawURL, host, nil)
	if err == nil {
		f.log.Info("fetch: direct fallback succeeded", "url", rawURL, "status", res.Status)
		return res, nil
	}
	return nil, fmt.Errorf("fetch: all attempts failed for %s: %w", rawURL, lastErr)
}

// backoff sleeps 2^attempt × retry_delay with ±10% jitter.
func (f *Fetcher) backoff(ctx context.Context, attempt int) error {
	base := float64(f.cfg.RetryDelay) * float64(int64(1)<<attempt)
	jitter := 0.9 + 0.2*rand.Float64()
	t := time.NewTimer(time.Duration(base * jitter))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// attempt issues one GET, proxied when ep is non-nil. It always reports
// the outcome to the rate limiter, the proxy counters and the recorder.
func (f *Fetcher) attempt(ctx context.Context, rawURL, host string, ep *proxy.Endpoint) (*Result, error) {
	transport := f.direct
	label := ""
	if ep != nil {
		transport = ep.Transport
		label = ep.Label()
	}
	client := &http.Client{
		Transport: transport,
		Timeout:   f.cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= f.cfg.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", f.cfg.MaxRedirects)
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		f.proxies.Record(ep, 0, false)
		f.record(rawURL, 0, 0, time.Since(start), label, err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.ContentLength > f.cfg.MaxContentSize {
		f.limiter.Observe(host, resp.StatusCode)
		f.proxies.Record(ep, 0, false)
		f.record(rawURL, resp.StatusCode, resp.ContentLength, time.Since(start), label, "oversize")
		return nil, fmt.Errorf("%w: content-length %d", ErrBodyTooLarge, resp.ContentLength)
	}

	// Streamed cap: read one byte past the limit to detect overflow on
	// bodies without a Content-Length.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxContentSize+1))
	duration := time.Since(start)
	if err != nil {
		f.limiter.Observe(host, resp.StatusCode)
		f.proxies.Record(ep, int64(len(body)), false)
		f.record(rawURL, resp.StatusCode, int64(len(body)), duration, label, err.Error())
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}
	if int64(len(body)) > f.cfg.MaxContentSize {
		f.limiter.Observe(host, resp.StatusCode)
		f.proxies.Record(ep, int64(len(body)), false)
		f.record(rawURL, resp.StatusCode, int64(len(body)), duration, label, "oversize")
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrBodyTooLarge, f.cfg.MaxContentSize)
	}

	ok := resp.StatusCode < 400
	f.limiter.Observe(host, resp.StatusCode)
	f.proxies.Record(ep, int64(len(body)), ok)
	errMsg := ""
	if !ok {
		errMsg = fmt.Sprintf("http %d", resp.StatusCode)
	}
	f.record(rawURL, resp.StatusCode, int64(len(body)), duration, label, errMsg)

	return &Result{
		URL:      rawURL,
		FinalURL: resp.Request.URL.String(),
		Status:   resp.StatusCode,
		Headers:  resp.Header,
		Body:     body,
		Encoding: encodingOf(resp.Header),
		Duration: duration,
		Proxy:    label,
	}, nil
}

// encodingOf extracts the charset from Content-Type, defaulting to utf-8.
func encodingOf(h http.Header) string {
	ct := h.Get("Content-Type")
	for _, part := range strings.Split(ct, ";") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, "charset="); ok {
			return strings.ToLower(strings.Trim(v, `"`))
		}
	}
	return "utf-8"
}
