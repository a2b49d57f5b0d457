package discovery

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/sportwire/canon"
)

// SourceConfig is the discovery surface of one source. Missing fields are
// skipped: a feed-only source simply has no sitemap or queries.
type SourceConfig struct {
	SourceID      string
	RSSURL        string
	SitemapURL    string
	SearchQueries []string
	// Provider names the search-API provider for the queries. Empty
	// uses every registered provider.
	Provider string
}

// FetchFunc retrieves one discovery document (feed or sitemap XML).
type FetchFunc func(ctx context.Context, url string) ([]byte, error)

// Engine unions the three discovery methods for a source.
type Engine struct {
	fetch     FetchFunc
	providers *Providers
	log       *slog.Logger
}

// NewEngine builds an Engine. providers may be nil when no search APIs are
// configured.
func NewEngine(fetch FetchFunc, providers *Providers, log *slog.Logger) *Engine {
	if providers == nil {
		providers = NewProviders()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{fetch: fetch, providers: providers, log: log.With("component", "discovery")}
}

// Providers exposes the registry so the worker can route trending queries.
func (e *Engine) Providers() *Providers { return e.providers }

// Discover runs every configured method for the source and returns the
// deduplicated union in first-seen order. Individual method failures are
// logged and skipped; only a source with no usable method at all yields
// the first error.
func (e *Engine) Discover(ctx context.Context, src SourceConfig) ([]string, error) {
	var urls []string
	var firstErr error
	methods := 0

	if src.RSSURL != "" {
		methods++
		if found, err := e.fromFeed(ctx, src.RSSURL); err != nil {
			e.log.Warn("discovery: feed failed", "source_id", src.SourceID, "url", src.RSSURL, "error", err)
			firstErr = err
		} else {
			urls = append(urls, found...)
		}
	}
	if src.SitemapURL != "" {
		methods++
		if found, err := CollectSitemap(ctx, SitemapFetch(e.fetch), src.SitemapURL); err != nil {
			e.log.Warn("discovery: sitemap failed", "source_id", src.SourceID, "url", src.SitemapURL, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		} else {
			urls = append(urls, found...)
		}
	}
	if len(src.SearchQueries) > 0 {
		methods++
		urls = append(urls, e.fromQueries(ctx, src)...)
	}

	deduped := Dedupe(urls)
	if len(deduped) == 0 && methods > 0 && firstErr != nil {
		return nil, firstErr
	}
	return deduped, nil
}

func (e *Engine) fromFeed(ctx context.Context, feedURL string) ([]string, error) {
	data, err := e.fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	entries, err := ParseFeed(data)
	if err != nil {
		return nil, err
	}
	links := make([]string, 0, len(entries))
	for _, entry := range entries {
		links = append(links, entry.Link)
	}
	return links, nil
}

func (e *Engine) fromQueries(ctx context.Context, src SourceConfig) []string {
	var provs []Provider
	if src.Provider != "" {
		if p, ok := e.providers.Get(src.Provider); ok {
			provs = append(provs, p)
		} else {
			e.log.Warn("discovery: unknown provider", "source_id", src.SourceID, "provider", src.Provider)
		}
	} else {
		for _, name := range e.providers.Names() {
			if p, ok := e.providers.Get(name); ok {
				provs = append(provs, p)
			}
		}
	}

	var urls []string
	for _, p := range provs {
		for _, q := range src.SearchQueries {
			found, err := p.Search(ctx, q, 0)
			if err != nil {
				e.log.Warn("discovery: search failed", "provider", p.Name(), "query", q, "error", err)
				continue
			}
			urls = append(urls, found...)
		}
	}
	return urls
}

// Dedupe removes duplicates and non-HTTP noise, preserving first-seen
// order.
func Dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if !canon.IsHTTP(u) {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
