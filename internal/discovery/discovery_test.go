package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleRSS = `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Scores</title>
<item><title>Game recap</title><link>https://a.com/recap</link><pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate></item>
<item><title>No link</title></item>
<item><title>Trade news</title><link>https://a.com/trade</link></item>
</channel></rss>`

const sampleAtom = `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
<entry><title>One</title><link rel="alternate" href="https://b.com/one"/><updated>2026-01-02T10:00:00Z</updated></entry>
<entry><title>Two</title><link rel="self" href="https://b.com/self"/><link href="https://b.com/two"/></entry>
</feed>`

// WHAT: format auto-detection and link extraction for RSS and Atom.
func TestParseFeed(t *testing.T) {
	rss, err := ParseFeed([]byte(sampleRSS))
	if err != nil {
		t.Fatalf("rss: %v", err)
	}
	if len(rss) != 2 || rss[0].Link != "https://a.com/recap" || rss[1].Link != "https://a.com/trade" {
		t.Fatalf("rss entries: %+v", rss)
	}

	atom, err := ParseFeed([]byte(sampleAtom))
	if err != nil {
		t.Fatalf("atom: %v", err)
	}
	if len(atom) != 2 || atom[0].Link != "https://b.com/one" || atom[1].Link != "https://b.com/two" {
		t.Fatalf("atom entries: %+v", atom)
	}

	if _, err := ParseFeed([]byte("<html></html>")); err == nil {
		t.Fatal("non-feed XML should error")
	}
	if _, err := ParseFeed(nil); err == nil {
		t.Fatal("empty data should error")
	}
}

// WHAT: sitemap indexes recurse into nested sitemaps and collect url locs
// in order; a broken nested sitemap loses only its subtree.
func TestCollectSitemap(t *testing.T) {
	docs := map[string]string{
		"index": `<sitemapindex>
			<sitemap><loc>childA</loc></sitemap>
			<sitemap><loc>missing</loc></sitemap>
			<sitemap><loc>childB</loc></sitemap>
		</sitemapindex>`,
		"childA": `<urlset><url><loc>https://a.com/1</loc></url><url><loc>https://a.com/2</loc></url></urlset>`,
		"childB": `<urlset><url><loc>https://a.com/3</loc></url></urlset>`,
	}
	fetch := func(ctx context.Context, url string) ([]byte, error) {
		doc, ok := docs[url]
		if !ok {
			return nil, fmt.Errorf("404")
		}
		return []byte(doc), nil
	}

	urls, err := CollectSitemap(context.Background(), fetch, "index")
	if err != nil {
		t.Fatalf("CollectSitemap: %v", err)
	}
	want := []string{"https://a.com/1", "https://a.com/2", "https://a.com/3"}
	if len(urls) != len(want) {
		t.Fatalf("urls = %v", urls)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Fatalf("urls[%d] = %s, want %s", i, urls[i], want[i])
		}
	}

	// A broken root is an error.
	if _, err := CollectSitemap(context.Background(), fetch, "missing"); err == nil {
		t.Fatal("missing root sitemap should error")
	}
}

// WHAT: a cyclic sitemap index terminates via the depth cap.
func TestSitemapCycleTerminates(t *testing.T) {
	fetch := func(ctx context.Context, url string) ([]byte, error) {
		return []byte(`<sitemapindex><sitemap><loc>self</loc></sitemap></sitemapindex>`), nil
	}
	urls, err := CollectSitemap(context.Background(), fetch, "self")
	if err != nil || len(urls) != 0 {
		t.Fatalf("cycle: %v, %v", urls, err)
	}
}

// WHAT: the JSON-API provider walks result_path and extracts link fields.
func TestJSONAPIProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "lakers trade" {
			t.Errorf("query = %q", got)
		}
		if got := r.Header.Get("X-Api-Key"); got != "sekrit" {
			t.Errorf("header = %q", got)
		}
		fmt.Fprint(w, `{"data":{"results":[
			{"url":"https://n.com/1","title":"a"},
			{"title":"no url"},
			{"url":"https://n.com/2"}
		]}}`)
	}))
	defer srv.Close()

	t.Setenv("TEST_SEARCH_KEY", "sekrit")
	p := NewJSONAPIProvider(JSONAPIConfig{
		Name:        "newsapi",
		URLTemplate: srv.URL + "/search?q={query}",
		Headers:     map[string]string{"X-Api-Key": "${TEST_SEARCH_KEY}"},
		ResultPath:  "data.results",
		LinkField:   "url",
	}, srv.Client())

	links, err := p.Search(context.Background(), "lakers trade", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(links) != 2 || links[0] != "https://n.com/1" || links[1] != "https://n.com/2" {
		t.Fatalf("links = %v", links)
	}
}

// WHAT: Discover unions feed + sitemap + query results, dropping
// duplicates and non-HTTP noise while preserving first-seen order.
func TestDiscoverUnion(t *testing.T) {
	docs := map[string][]byte{
		"feed":    []byte(sampleRSS),
		"sitemap": []byte(`<urlset><url><loc>https://a.com/recap</loc></url><url><loc>https://a.com/fresh</loc></url></urlset>`),
	}
	fetch := func(ctx context.Context, url string) ([]byte, error) {
		return docs[url], nil
	}

	providers := NewProviders()
	providers.Register(stubProvider{name: "stub", links: []string{
		"https://a.com/trade",   // duplicate of feed entry
		"mailto:tips@a.com",     // dropped
		"https://a.com/q-found", // new
	}})

	e := NewEngine(fetch, providers, nil)
	urls, err := e.Discover(context.Background(), SourceConfig{
		SourceID:      "s1",
		RSSURL:        "feed",
		SitemapURL:    "sitemap",
		SearchQueries: []string{"anything"},
	})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []string{
		"https://a.com/recap", "https://a.com/trade",
		"https://a.com/fresh", "https://a.com/q-found",
	}
	if len(urls) != len(want) {
		t.Fatalf("urls = %v", urls)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Fatalf("urls[%d] = %s, want %s", i, urls[i], want[i])
		}
	}
}

type stubProvider struct {
	name  string
	links []string
}

func (s stubProvider) Name() string { return s.name }
func (s stubProvider) Search(ctx context.Context, query string, limit int) ([]string, error) {
	return s.links, nil
}
