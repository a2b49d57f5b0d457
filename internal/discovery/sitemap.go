package discovery

import (
	"context"
	"encoding/xml"
	"fmt"
)

// Recursion guards for nested sitemap indexes.
const (
	maxSitemapDepth = 3
	maxSitemapURLs  = 5000
)

// sitemapDoc covers both a urlset and a sitemapindex: exactly one of the
// two slices is populated per document.
type sitemapDoc struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// SitemapFetch retrieves one sitemap document's raw XML.
type SitemapFetch func(ctx context.Context, url string) ([]byte, error)

// CollectSitemap walks a sitemap, recursing into nested <sitemap><loc>
// indexes up to maxSitemapDepth, and returns the <url><loc> entries in
// document order, capped at maxSitemapURLs.
func CollectSitemap(ctx context.Context, fetch SitemapFetch, url string) ([]string, error) {
	var out []string
	err := collectSitemap(ctx, fetch, url, 0, &out)
	return out, err
}

func collectSitemap(ctx context.Context, fetch SitemapFetch, url string, depth int, out *[]string) error {
	if depth > maxSitemapDepth || len(*out) >= maxSitemapURLs {
		return nil
	}
	data, err := fetch(ctx, url)
	if err != nil {
		if depth == 0 {
			return fmt.Errorf("sitemap: fetch %s: %w", url, err)
		}
		// A broken nested sitemap loses its subtree, not the walk.
		return nil
	}

	var doc sitemapDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		if depth == 0 {
			return fmt.Errorf("sitemap: parse %s: %w", url, err)
		}
		return nil
	}

	for _, u := range doc.URLs {
		if len(*out) >= maxSitemapURLs {
			return nil
		}
		if u.Loc != "" {
			*out = append(*out, u.Loc)
		}
	}
	for _, sm := range doc.Sitemaps {
		if sm.Loc == "" {
			continue
		}
		if err := collectSitemap(ctx, fetch, sm.Loc, depth+1, out); err != nil {
			return err
		}
	}
	return nil
}
