// Package robots implements a cached robots.txt checker with crawl-delay
// lookup. Entries are cached per scheme://host for 24 hours; anything other
// than a parseable HTTP 200 fails open (allowed) and is not cached, so a
// transient robots outage never blocks a host permanently.
package robots

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CacheTTL is how long a parsed robots.txt stays valid.
const CacheTTL = 24 * time.Hour

// group is one User-agent block of a robots file.
type group struct {
	agents     []string
	disallow   []string
	allow      []string
	crawlDelay time.Duration
}

// robotsFile is the parsed form of one robots.txt.
type robotsFile struct {
	groups []group
}

type cacheEntry struct {
	file      *robotsFile
	fetchedAt time.Time
}

// Checker caches and evaluates robots.txt files for one worker.
type Checker struct {
	client  *http.Client
	agent   string
	timeout time.Duration
	now     func() time.Time
	log     *slog.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry // scheme://host -> entry
}

// Options tunes the checker.
type Options struct {
	// Agent is the user-agent token matched against robots groups.
	Agent string
	// Timeout bounds the robots.txt fetch. Default 5s.
	Timeout time.Duration
	// Client overrides the HTTP client. Default: plain client.
	Client *http.Client
}

// New creates a Checker.
func New(opts Options, log *slog.Logger) *Checker {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		client:  opts.Client,
		agent:   strings.ToLower(opts.Agent),
		timeout: opts.Timeout,
		now:     time.Now,
		log:     log.With("component", "robots"),
		cache:   make(map[string]cacheEntry),
	}
}

// SetNow overrides the clock. Tests only.
func (c *Checker) SetNow(now func() time.Time) { c.now = now }

// CanFetch reports whether the agent may fetch rawURL. A miss triggers one
// robots.txt fetch; fetch or parse failure allows the URL and leaves the
// cache empty so the next call retries.
func (c *Checker) CanFetch(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	file := c.lookup(ctx, u)
	if file == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return file.allowed(c.agent, path)
}

// CrawlDelay returns the crawl-delay declared for the agent, if a cache
// entry exists for the URL's host. It never initiates network I/O: the
// delay only matters after CanFetch has populated the cache anyway.
func (c *Checker) CrawlDelay(rawURL string) (time.Duration, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[u.Scheme+"://"+u.Host]
	if !ok || c.now().Sub(entry.fetchedAt) > CacheTTL {
		return 0, false
	}
	g := entry.file.match(c.agent)
	if g == nil || g.crawlDelay <= 0 {
		return 0, false
	}
	return g.crawlDelay, true
}

// lookup returns the cached robots file for the URL's origin, fetching on
// miss. nil means "no usable robots data" (fail open).
func (c *Checker) lookup(ctx context.Context, u *url.URL) *robotsFile {
	key := u.Scheme + "://" + u.Host

	c.mu.Lock()
	entry, ok := c.cache[key]
	if ok && c.now().Sub(entry.fetchedAt) <= CacheTTL {
		c.mu.Unlock()
		return entry.file
	}
	c.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, key+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug("robots: fetch failed, allowing", "host", u.Host, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Debug("robots: non-200, allowing", "host", u.Host, "status", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil
	}
	file := parse(string(body))

	c.mu.Lock()
	c.cache[key] = cacheEntry{file: file, fetchedAt: c.now()}
	c.mu.Unlock()
	return file
}

// Prime inserts a parsed robots body into the cache. Tests only.
func (c *Checker) Prime(origin, body string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[origin] = cacheEntry{file: parse(body), fetchedAt: c.now()}
}

// parse reads a robots.txt body into user-agent groups.
func parse(body string) *robotsFile {
	var file robotsFile
	var cur *group
	inAgents := false

	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		field, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		field = strings.ToLower(strings.TrimSpace(field))
		value = strings.TrimSpace(value)

		switch field {
		case "user-agent":
			// Consecutive User-agent lines share one group.
			if cur == nil || !inAgents {
				file.groups = append(file.groups, group{})
				cur = &file.groups[len(file.groups)-1]
			}
			cur.agents = append(cur.agents, strings.ToLower(value))
			inAgents = true
		case "disallow":
			if cur != nil {
				cur.disallow = append(cur.disallow, value)
			}
			inAgents = false
		case "allow":
			if cur != nil {
				cur.allow = append(cur.allow, value)
			}
			inAgents = false
		case "crawl-delay":
			if cur != nil {
				if secs, err := strconv.ParseFloat(value, 64); err == nil && secs > 0 {
					cur.crawlDelay = time.Duration(secs * float64(time.Second))
				}
			}
			inAgents = false
		default:
			inAgents = false
		}
	}
	return &file
}

// match returns the most specific group for the agent: an exact or
// substring agent match beats the "*" group.
func (f *robotsFile) match(agent string) *group {
	var star *group
	for i := range f.groups {
		g := &f.groups[i]
		for _, a := range g.agents {
			if a == "*" {
				if star == nil {
					star = g
				}
				continue
			}
			if agent != "" && (strings.Contains(agent, a) || strings.Contains(a, agent)) {
				return g
			}
		}
	}
	return star
}

// allowed applies the longest-match rule between Allow and Disallow.
func (f *robotsFile) allowed(agent, path string) bool {
	g := f.match(agent)
	if g == nil {
		return true
	}
	longestAllow, longestDisallow := -1, -1
	for _, rule := range g.allow {
		if rule != "" && strings.HasPrefix(path, rule) && len(rule) > longestAllow {
			longestAllow = len(rule)
		}
	}
	for _, rule := range g.disallow {
		if rule == "" {
			continue // empty Disallow allows everything
		}
		if strings.HasPrefix(path, rule) && len(rule) > longestDisallow {
			longestDisallow = len(rule)
		}
	}
	if longestDisallow < 0 {
		return true
	}
	return longestAllow >= longestDisallow
}
