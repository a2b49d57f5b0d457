package search

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/hazyhaar/sportwire/dbopen"
	"github.com/hazyhaar/sportwire/internal/store"
	"github.com/hazyhaar/sportwire/registry"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

type fixture struct {
	engine *Engine
	store  *store.Store
	reg    *registry.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbopen.OpenMemory(t)
	st, err := store.NewStore(db)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	reg, err := registry.New(db)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	return &fixture{
		engine: New(db, reg, Options{}, slog.Default()),
		store:  st,
		reg:    reg,
	}
}

func (f *fixture) seedSource(t *testing.T, id, domain string, reputation float64) {
	t.Helper()
	err := f.store.InsertSource(context.Background(), &store.Source{
		ID: id, Domain: domain, Name: domain, IsActive: true, Reputation: reputation,
	})
	if err != nil {
		t.Fatalf("InsertSource %s: %v", domain, err)
	}
}

func (f *fixture) seedItem(t *testing.T, it *store.ContentItem) {
	t.Helper()
	it.IsActive = true
	if _, err := f.store.UpsertContentItem(context.Background(), it); err != nil {
		t.Fatalf("seed item %s: %v", it.ID, err)
	}
}

// WHAT: full-text match with relevance ranking: title hits outrank summary
// hits outrank body hits.
func TestSearchRelevanceRanking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSource(t, "s1", "example.com", 0.8)

	base := time.Now().UnixMilli()
	f.seedItem(t, &store.ContentItem{
		ID: "i1", SourceID: "s1", URL: "https://example.com/1",
		CanonicalURL: "https://example.com/1", ContentHash: "h1",
		Title: "Midweek roundup", Summary: "scores and schedules",
		Text: "The lakers looked sharp in practice.", PublishedAt: base,
	})
	f.seedItem(t, &store.ContentItem{
		ID: "i2", SourceID: "s1", URL: "https://example.com/2",
		CanonicalURL: "https://example.com/2", ContentHash: "h2",
		Title: "Lakers win again", Summary: "another victory",
		Text: "A strong fourth quarter sealed it.", PublishedAt: base - 1000,
	})
	f.seedItem(t, &store.ContentItem{
		ID: "i3", SourceID: "s1", URL: "https://example.com/3",
		CanonicalURL: "https://example.com/3", ContentHash: "h3",
		Title: "Around the league", Summary: "lakers among teams on the rise",
		Text: "Several teams improved this week.", PublishedAt: base - 2000,
	})

	res, err := f.engine.Search(ctx, Query{Text: "lakers", Sort: SortRelevance})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.TotalCount != 3 || len(res.Items) != 3 {
		t.Fatalf("got %d/%d results, want 3/3", len(res.Items), res.TotalCount)
	}
	order := []string{res.Items[0].ID, res.Items[1].ID, res.Items[2].ID}
	want := []string{"i2", "i3", "i1"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order %v, want %v", order, want)
		}
	}
	if res.Engine != "fts5" || res.FromCache {
		t.Errorf("metadata: %+v", res)
	}
}

// WHAT: filters narrow independently of the text match.
func TestSearchFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSource(t, "s1", "espn.com", 0.9)
	f.seedSource(t, "s2", "blog.example", 0.3)

	now := time.Now().UnixMilli()
	f.seedItem(t, &store.ContentItem{
		ID: "a", SourceID: "s1", URL: "u1", CanonicalURL: "u1", ContentHash: "ha",
		Title: "Trade deadline tracker", Text: "Deals across the league.",
		SportsKeywords: []string{"nba", "trade"}, ContentType: "trade",
		QualityScore: 0.9, PublishedAt: now,
	})
	f.seedItem(t, &store.ContentItem{
		ID: "b", SourceID: "s2", URL: "u2", CanonicalURL: "u2", ContentHash: "hb",
		Title: "My fantasy picks", Text: "Trade candidates to watch.",
		SportsKeywords: []string{"fantasy"}, ContentType: "analysis",
		QualityScore: 0.4, PublishedAt: now - 48*3600*1000,
	})

	cases := []struct {
		name string
		q    Query
		want []string
	}{
		{"keyword", Query{Keywords: []string{"nba"}}, []string{"a"}},
		{"domain", Query{Domains: []string{"blog.example"}}, []string{"b"}},
		{"type", Query{ContentTypes: []string{"trade"}}, []string{"a"}},
		{"quality", Query{MinQuality: 0.8}, []string{"a"}},
		{"since", Query{Since: now - 3600*1000}, []string{"a"}},
		{"all", Query{}, []string{"a", "b"}},
	}
	for _, c := range cases {
		res, err := f.engine.Search(ctx, c.q)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if len(res.Items) != len(c.want) {
			t.Errorf("%s: got %d items, want %d", c.name, len(res.Items), len(c.want))
			continue
		}
		got := make(map[string]bool)
		for _, it := range res.Items {
			got[it.ID] = true
		}
		for _, id := range c.want {
			if !got[id] {
				t.Errorf("%s: missing %s", c.name, id)
			}
		}
	}
}

// WHAT: 25 items paginate 10/10/5 with no overlap and no gaps under the
// date sort.
func TestSearchPagination(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSource(t, "s1", "example.com", 0.8)

	base := time.Now().UnixMilli()
	for i := 0; i < 25; i++ {
		f.seedItem(t, &store.ContentItem{
			ID:           fmt.Sprintf("item-%02d", i),
			SourceID:     "s1",
			URL:          fmt.Sprintf("https://example.com/%d", i),
			CanonicalURL: fmt.Sprintf("https://example.com/%d", i),
			ContentHash:  fmt.Sprintf("hash-%02d", i),
			Title:        fmt.Sprintf("Story number %d", i),
			Text:         "body",
			PublishedAt:  base - int64(i)*60_000,
		})
	}

	seen := make(map[string]bool)
	cursor := ""
	pages := []int{10, 10, 5}
	for pageNo, wantLen := range pages {
		res, err := f.engine.Search(ctx, Query{Sort: SortDate, Limit: 10, Cursor: cursor})
		if err != nil {
			t.Fatalf("page %d: %v", pageNo, err)
		}
		if len(res.Items) != wantLen {
			t.Fatalf("page %d: %d items, want %d", pageNo, len(res.Items), wantLen)
		}
		if res.TotalCount != 25 {
			t.Errorf("page %d: total %d, want 25", pageNo, res.TotalCount)
		}
		for _, it := range res.Items {
			if seen[it.ID] {
				t.Fatalf("page %d: item %s repeated", pageNo, it.ID)
			}
			seen[it.ID] = true
		}
		wantMore := pageNo < 2
		if res.HasMore != wantMore {
			t.Errorf("page %d: has_more %v, want %v", pageNo, res.HasMore, wantMore)
		}
		cursor = res.NextCursor
	}
	if len(seen) != 25 {
		t.Errorf("covered %d items, want 25", len(seen))
	}
}

// WHAT: a cursor minted under one sort mode is ignored under another, and
// an undecodable cursor decodes to ErrInvalidCursor.
func TestCursorSortMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSource(t, "s1", "example.com", 0.8)
	base := time.Now().UnixMilli()
	for i := 0; i < 5; i++ {
		f.seedItem(t, &store.ContentItem{
			ID:           fmt.Sprintf("i%d", i),
			SourceID:     "s1",
			URL:          fmt.Sprintf("u%d", i),
			CanonicalURL: fmt.Sprintf("u%d", i),
			ContentHash:  fmt.Sprintf("h%d", i),
			Title:        "story",
			Text:         "body",
			PublishedAt:  base - int64(i)*1000,
			QualityScore: float64(i) / 10,
		})
	}

	res, err := f.engine.Search(ctx, Query{Sort: SortDate, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if res.NextCursor == "" {
		t.Fatal("expected a cursor")
	}

	// same cursor under a different sort restarts from page one
	res2, err := f.engine.Search(ctx, Query{Sort: SortQuality, Limit: 2, Cursor: res.NextCursor})
	if err != nil {
		t.Fatalf("mismatched cursor should not error: %v", err)
	}
	if res2.Items[0].ID != "i4" {
		t.Errorf("mismatched cursor did not restart from the top quality item: %+v", res2.Items[0])
	}

	if _, err := decodeCursor("%%%not-base64%%%"); err == nil {
		t.Error("malformed cursor decoded")
	}

	// garbage cursor on a query degrades to the first page
	res3, err := f.engine.Search(ctx, Query{Sort: SortDate, Limit: 2, Cursor: "garbage"})
	if err != nil {
		t.Fatalf("garbage cursor should not error: %v", err)
	}
	if len(res3.Items) != 2 || res3.Items[0].ID != res.Items[0].ID {
		t.Errorf("garbage cursor did not restart: %+v", res3.Items)
	}
}

// WHAT: quality and popularity sorts order by score and source reputation.
func TestSortModes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSource(t, "hi", "top.example", 0.95)
	f.seedSource(t, "lo", "low.example", 0.2)

	now := time.Now().UnixMilli()
	f.seedItem(t, &store.ContentItem{
		ID: "lowq", SourceID: "hi", URL: "u1", CanonicalURL: "u1", ContentHash: "h1",
		Title: "one", Text: "b", QualityScore: 0.3, PublishedAt: now,
	})
	f.seedItem(t, &store.ContentItem{
		ID: "highq", SourceID: "lo", URL: "u2", CanonicalURL: "u2", ContentHash: "h2",
		Title: "two", Text: "b", QualityScore: 0.9, PublishedAt: now - 1000,
	})

	res, err := f.engine.Search(ctx, Query{Sort: SortQuality})
	if err != nil {
		t.Fatal(err)
	}
	if res.Items[0].ID != "highq" {
		t.Errorf("quality sort: first item %s", res.Items[0].ID)
	}

	res, err = f.engine.Search(ctx, Query{Sort: SortPopularity})
	if err != nil {
		t.Fatal(err)
	}
	if res.Items[0].ID != "lowq" {
		t.Errorf("popularity sort should favour the reputable source, got %s", res.Items[0].ID)
	}
}

// WHAT: identical queries hit the cache once the first run is recorded as
// slow; a broken registry degrades to a miss.
func TestSearchCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSource(t, "s1", "example.com", 0.8)
	f.seedItem(t, &store.ContentItem{
		ID: "i1", SourceID: "s1", URL: "u1", CanonicalURL: "u1", ContentHash: "h1",
		Title: "cached story", Text: "b", PublishedAt: time.Now().UnixMilli(),
	})

	q := Query{Sort: SortDate}
	res, err := f.engine.Search(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if res.FromCache {
		t.Error("first query served from cache")
	}

	// plant the result manually: only slow queries self-cache
	f.engine.cachePut(ctx, q.CacheKey(), res)
	res2, err := f.engine.Search(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if !res2.FromCache {
		t.Error("second query missed the planted cache entry")
	}

	// engine without a registry still works
	bare := New(f.engine.db, nil, Options{}, slog.Default())
	res3, err := bare.Search(ctx, q)
	if err != nil || res3.FromCache {
		t.Errorf("cacheless engine: %v %+v", err, res3)
	}
}

// WHAT: the slow-query threshold is tunable; with a nanosecond threshold
// every query self-caches, so the repeat comes back from_cache without
// planting an entry.
func TestSearchCacheOptions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSource(t, "s1", "example.com", 0.8)
	f.seedItem(t, &store.ContentItem{
		ID: "i1", SourceID: "s1", URL: "u1", CanonicalURL: "u1", ContentHash: "h1",
		Title: "tuned story", Text: "b", PublishedAt: time.Now().UnixMilli(),
	})

	eager := New(f.engine.db, f.reg, Options{SlowThreshold: time.Nanosecond}, slog.Default())
	q := Query{Sort: SortDate}
	if res, err := eager.Search(ctx, q); err != nil || res.FromCache {
		t.Fatalf("first query: %v %+v", err, res)
	}
	res2, err := eager.Search(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if !res2.FromCache {
		t.Error("eager engine did not cache its own result")
	}

	if eager.opts.CacheTTL != 5*time.Minute {
		t.Errorf("zero CacheTTL did not default: %v", eager.opts.CacheTTL)
	}
}

// WHAT: cache keys canonicalise list order; cursor and limit still
// distinguish pages.
func TestCacheKeyCanonical(t *testing.T) {
	a := Query{Text: "x", Keywords: []string{"nba", "mlb"}, Domains: []string{"b.com", "a.com"}}
	b := Query{Text: "x", Keywords: []string{"mlb", "nba"}, Domains: []string{"a.com", "b.com"}}
	if a.CacheKey() != b.CacheKey() {
		t.Error("list order changed the cache key")
	}
	c := Query{Text: "x", Keywords: []string{"nba", "mlb"}, Domains: []string{"a.com", "b.com"}, Cursor: "zzz"}
	if a.CacheKey() == c.CacheKey() {
		t.Error("cursor did not change the cache key")
	}
}

// WHAT: suggestions come from mention frequency with a minimum prefix.
func TestSuggest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	now := time.Now().UnixMilli()
	var mentions []store.Mention
	for i := 0; i < 5; i++ {
		mentions = append(mentions, store.Mention{TermNorm: "lakers", TermType: "team", SeenAt: now})
	}
	for i := 0; i < 2; i++ {
		mentions = append(mentions, store.Mention{TermNorm: "lakers trade", TermType: "phrase", SeenAt: now})
	}
	mentions = append(mentions, store.Mention{TermNorm: "liverpool", TermType: "team", SeenAt: now})
	if err := f.store.InsertMentions(ctx, mentions); err != nil {
		t.Fatal(err)
	}

	got, err := f.engine.Suggest(ctx, "la", 10)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"lakers", "lakers trade"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Suggest(la) = %v, want %v", got, want)
	}

	if got, _ := f.engine.Suggest(ctx, "l", 10); got != nil {
		t.Errorf("single-char prefix returned %v", got)
	}
}
