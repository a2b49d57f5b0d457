package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// removalSelector strips elements that never carry article prose before
// any scoring happens.
const removalSelector = "script, style, noscript, iframe, form, nav, header, footer, aside, " +
	".advertisement, .ads, .ad, .sidebar, .navigation, .nav, .menu, " +
	".social-share, .share-buttons, .comments, .comment-section, " +
	".related-articles, .recommended, .newsletter-signup, .cookie-notice"

// candidateSelector lists containers worth scoring by paragraph mass.
const candidateSelector = "article, main, [role='main'], section, div"

// readability scores candidate containers by the mass of paragraph text
// they hold and returns the best one. Containers with boilerplate-looking
// class or id names are penalised into irrelevance.
func (e *Extractor) readability(rawHTML []byte) (text, fragment string, ok bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return "", "", false
	}
	doc.Find(removalSelector).Remove()

	var best *goquery.Selection
	var bestScore float64

	doc.Find(candidateSelector).Each(func(_ int, sel *goquery.Selection) {
		score := paragraphMass(sel)
		if score <= 0 {
			return
		}
		if penalised(sel) {
			score *= 0.2
		}
		// Prefer semantic containers on ties.
		switch goquery.NodeName(sel) {
		case "article":
			score *= 1.5
		case "main":
			score *= 1.3
		}
		if score > bestScore {
			bestScore = score
			best = sel
		}
	})

	if best == nil {
		return "", "", false
	}
	text = CleanText(best.Text())
	if len(text) < e.opts.MinTextLen {
		return "", "", false
	}
	fragment, err = goquery.OuterHtml(best)
	if err != nil {
		fragment = ""
	}
	return text, fragment, true
}

// paragraphMass sums the text length of direct prose children: paragraphs,
// blockquotes and list items. Text that only lives in anchors counts
// against the container.
func paragraphMass(sel *goquery.Selection) float64 {
	var mass float64
	sel.Find("p, blockquote, li").Each(func(_ int, p *goquery.Selection) {
		t := strings.TrimSpace(p.Text())
		if len(t) < 25 {
			return
		}
		linkLen := len(strings.TrimSpace(p.Find("a").Text()))
		mass += float64(len(t) - linkLen)
	})
	return mass
}

// penalised reports whether the container's class/id naming marks it as
// chrome rather than content.
func penalised(sel *goquery.Selection) bool {
	class, _ := sel.Attr("class")
	id, _ := sel.Attr("id")
	naming := strings.ToLower(class + " " + id)
	for _, pattern := range boilerplatePatterns {
		if strings.Contains(naming, pattern) {
			return true
		}
	}
	return false
}
