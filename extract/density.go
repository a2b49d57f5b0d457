package extract

import (
	"bytes"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// density picks the DOM subtree with the highest text-to-markup ratio.
// Semantic landmarks (<main>, <article>) win outright when they carry
// enough text; otherwise every content-ish subtree is scored and the
// densest non-navigational one is chosen.
func (e *Extractor) density(rawHTML []byte) (text, fragment string, ok bool) {
	doc, err := html.Parse(bytes.NewReader(rawHTML))
	if err != nil {
		return "", "", false
	}

	for _, tag := range []atom.Atom{atom.Main, atom.Article} {
		for _, n := range findAllByTag(doc, tag) {
			if isBoilerplate(n) {
				continue
			}
			if t := collectText(n); len(t) >= e.opts.MinTextLen {
				return t, renderNode(n), true
			}
		}
	}

	body := findBody(doc)
	if body == nil {
		body = doc
	}
	best := findDensestNode(body, e.opts.MinTextLen)
	if best == nil {
		return "", "", false
	}
	t := collectText(best)
	if len(t) < e.opts.MinTextLen {
		return "", "", false
	}
	return t, renderNode(best), true
}

// nodeScore holds the density measurements for one candidate subtree.
type nodeScore struct {
	node     *html.Node
	textLen  int
	density  float64
	linkDens float64 // fraction of text inside <a> tags
}

// findDensestNode walks the DOM and returns the subtree with the best
// composite score: density x logScale(textLen) x (1 - linkDensity).
// Subtrees whose text is mostly links are navigation and are skipped.
func findDensestNode(root *html.Node, minLen int) *html.Node {
	var candidates []nodeScore

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type != html.ElementNode || isBoilerplate(n) {
			return
		}
		if !isContentTag(n.DataAtom) && n.DataAtom != atom.Body {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
			return
		}

		text := collectText(n)
		if len(text) >= minLen {
			markupLen := len(renderNode(n))
			if markupLen == 0 {
				markupLen = 1
			}
			linkDens := float64(len(collectLinkText(n))) / float64(len(text))
			candidates = append(candidates, nodeScore{
				node:     n,
				textLen:  len(text),
				density:  float64(len(text)) / float64(markupLen),
				linkDens: linkDens,
			})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	var best *nodeScore
	var bestScore float64
	for i := range candidates {
		c := &candidates[i]
		if c.linkDens > 0.5 {
			continue
		}
		score := c.density * logScale(c.textLen) * (1 - c.linkDens)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	if best == nil {
		return nil
	}
	return best.node
}

// logScale grows roughly with log2 of the text length so longer subtrees
// beat tiny dense ones.
func logScale(n int) float64 {
	if n <= 0 {
		return 0
	}
	scale := 1.0
	for v := n; v > 100; v /= 2 {
		scale++
	}
	return scale
}
