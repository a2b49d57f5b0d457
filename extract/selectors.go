package extract

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
)

// contentSelectors is the structural fallback list, most specific first.
// It mirrors the container names sports publishers actually use.
var contentSelectors = []string{
	"article",
	"main",
	"[role='main']",
	".article-body",
	".story-body",
	".post-content",
	".post-body",
	".entry-content",
	".main-content",
	".content",
	"#content",
}

// selectors is the last-resort strategy: first selector with any text
// wins, finally the whole <body>. It never fails outright; the orchestrator
// applies the length bar afterwards.
func (e *Extractor) selectors(rawHTML []byte) (text, fragment string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return "", ""
	}
	doc.Find("script, style, noscript, iframe").Remove()

	for _, sel := range contentSelectors {
		found := doc.Find(sel).First()
		if found.Length() == 0 {
			continue
		}
		if t := CleanText(found.Text()); len(t) >= e.opts.MinTextLen {
			frag, _ := goquery.OuterHtml(found)
			return t, frag
		}
	}

	body := doc.Find("body").First()
	if body.Length() == 0 {
		return "", ""
	}
	frag, _ := goquery.OuterHtml(body)
	return CleanText(body.Text()), frag
}
