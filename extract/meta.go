package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// pageMeta carries the raw metadata scraped from the document head and
// obvious byline markup. Values are unclean; the orchestrator normalises.
type pageMeta struct {
	title     string
	byline    string
	published string
	image     string
	canonical string
	lang      string
}

// scrapeMeta reads page metadata: the title chain (head title, og:title,
// first h1), author and publish-date meta tags, the og:image, the
// rel=canonical link and the declared language.
func scrapeMeta(rawHTML []byte, pageURL string) pageMeta {
	var m pageMeta
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return m
	}

	m.title = strings.TrimSpace(doc.Find("head title").First().Text())
	if m.title == "" {
		m.title, _ = doc.Find("meta[property='og:title']").First().Attr("content")
		m.title = strings.TrimSpace(m.title)
	}
	if m.title == "" {
		m.title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	for _, sel := range []string{
		"meta[name='author']",
		"meta[property='article:author']",
	} {
		if v, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			m.byline = strings.TrimSpace(v)
			break
		}
	}
	if m.byline == "" {
		for _, sel := range []string{"[rel='author']", ".byline", ".author"} {
			if v := strings.TrimSpace(doc.Find(sel).First().Text()); v != "" {
				m.byline = v
				break
			}
		}
	}

	for _, sel := range []string{
		"meta[property='article:published_time']",
		"meta[name='pubdate']",
		"meta[name='publish-date']",
		"meta[name='date']",
		"meta[itemprop='datePublished']",
	} {
		if v, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			m.published = strings.TrimSpace(v)
			break
		}
	}
	if m.published == "" {
		if v, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
			m.published = strings.TrimSpace(v)
		}
	}

	m.image, _ = doc.Find("meta[property='og:image']").First().Attr("content")
	m.image = strings.TrimSpace(m.image)

	m.canonical, _ = doc.Find("link[rel='canonical']").First().Attr("href")
	m.canonical = strings.TrimSpace(m.canonical)

	m.lang, _ = doc.Find("html").First().Attr("lang")
	if i := strings.IndexAny(m.lang, "-_"); i > 0 {
		m.lang = m.lang[:i]
	}
	m.lang = strings.ToLower(strings.TrimSpace(m.lang))

	return m
}
