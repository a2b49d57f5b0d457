// Package extract turns raw article HTML into a structured content record:
// title, body text, markdown rendition, byline, publish date, language,
// sports keywords, entities and a content-type label.
//
// Three strategies run in order, first success wins:
//   - readability: paragraph-mass scoring over candidate containers
//   - density:     text-to-markup density analysis with boilerplate filtering
//   - selectors:   fixed list of common content selectors, finally <body>
//
// A strategy succeeds when it yields at least MinTextLen characters of
// clean text. Post-processing (metadata, dates, language, keywords,
// classification, hashing, markdown) applies regardless of which strategy
// won.
package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/hazyhaar/sportwire/canon"
	"github.com/hazyhaar/sportwire/neardup"
)

// Extraction failure modes. The worker counts these separately from
// transport errors.
var (
	ErrNoContent = errors.New("extraction failed: no strategy produced enough text")
	ErrNoTitle   = errors.New("extraction failed: empty title")
)

// Method labels recorded on extracted items.
const (
	MethodReadability = "readability"
	MethodDensity     = "density"
	MethodSelectors   = "selectors"
)

// Result is the structured output of one extraction.
type Result struct {
	Title        string
	Text         string
	Markdown     string
	Byline       string
	Summary      string
	PublishedAt  time.Time // zero when no date could be parsed
	Language     string    // detected language code
	DeclaredLang string    // lang attribute as served, if any
	LangProb     float64   // detector confidence in [0,1]
	WordCount    int
	ImageURL     string
	CanonicalURL string
	ContentHash  string
	Keywords     []string            // matched sports keywords, first-seen order
	Entities     map[string][]string // type -> names (team, player, league, event)
	ContentType  string
	Method       string
	Success      bool
	Errors       []string // per-strategy diagnostics, kept even on success
}

// Options tunes the extractor.
type Options struct {
	// MinTextLen is the acceptance bar per strategy. Default 100.
	MinTextLen int
	// MaxSummaryLen caps the derived summary. Default 300.
	MaxSummaryLen int
}

func (o *Options) defaults() {
	if o.MinTextLen <= 0 {
		o.MinTextLen = 100
	}
	if o.MaxSummaryLen <= 0 {
		o.MaxSummaryLen = 300
	}
}

// Extractor runs the strategy chain. One instance is shared by a worker's
// batch goroutines; it is stateless apart from the markdown converter and
// sanitiser, both safe for concurrent use.
type Extractor struct {
	opts Options
	log  *slog.Logger
	md   *markdownRenderer
}

// New builds an Extractor.
func New(opts Options, log *slog.Logger) *Extractor {
	opts.defaults()
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{
		opts: opts,
		log:  log.With("component", "extract"),
		md:   newMarkdownRenderer(),
	}
}

// Extract processes one fetched page. fetchedURL is the URL that was
// requested, finalURL the one that answered after redirects. The returned
// error is ErrNoContent or ErrNoTitle for content-level failures; the
// Result is non-nil either way so callers can log diagnostics.
func (e *Extractor) Extract(rawHTML []byte, fetchedURL, finalURL string) (*Result, error) {
	res := &Result{}
	if finalURL == "" {
		finalURL = fetchedURL
	}

	meta := scrapeMeta(rawHTML, finalURL)

	text, fragment, method := e.runStrategies(rawHTML, res)
	res.Text = CleanText(text)
	res.Method = method

	if len(res.Text) < e.opts.MinTextLen {
		res.Errors = append(res.Errors, "extraction_failed")
		return res, fmt.Errorf("%w: %d chars from %s", ErrNoContent, len(res.Text), finalURL)
	}

	res.Title = StripSiteSuffix(CleanText(meta.title))
	if res.Title == "" {
		res.Errors = append(res.Errors, "no_title")
		return res, fmt.Errorf("%w: %s", ErrNoTitle, finalURL)
	}

	res.Byline = CleanText(meta.byline)
	res.DeclaredLang = meta.lang
	if meta.published != "" {
		if ts, ok := ParseDate(meta.published); ok {
			res.PublishedAt = ts
		} else {
			res.Errors = append(res.Errors, "unparseable date: "+meta.published)
		}
	}

	res.CanonicalURL = canon.Canonicalise(finalURL)
	if meta.canonical != "" {
		res.CanonicalURL = canon.ApplyCanonicalLink(finalURL, meta.canonical)
	}
	res.ImageURL = resolveURL(finalURL, meta.image)

	res.Language, res.LangProb = DetectLanguage(res.Text)
	res.WordCount = len(strings.Fields(res.Text))
	res.ContentHash = neardup.ContentHash(res.Title, res.Text)
	res.Keywords = MatchKeywords(res.Title + " " + res.Text)
	res.Entities = MatchEntities(res.Title + " " + res.Text)
	res.ContentType = ClassifyContentType(res.Title, res.Text, res.Keywords)
	res.Summary = Summarise(res.Text, e.opts.MaxSummaryLen)

	if md, err := e.md.render(fragment, finalURL); err == nil {
		res.Markdown = md
	} else {
		res.Errors = append(res.Errors, "markdown: "+err.Error())
	}

	res.Success = true
	return res, nil
}

// runStrategies tries each extraction strategy in order and returns the
// first acceptable text plus the HTML fragment it came from.
func (e *Extractor) runStrategies(rawHTML []byte, res *Result) (text, fragment, method string) {
	if text, fragment, ok := e.readability(rawHTML); ok {
		return text, fragment, MethodReadability
	}
	res.Errors = append(res.Errors, "readability: below min length")

	if text, fragment, ok := e.density(rawHTML); ok {
		return text, fragment, MethodDensity
	}
	res.Errors = append(res.Errors, "density: below min length")

	text, fragment = e.selectors(rawHTML)
	return text, fragment, MethodSelectors
}

// Summarise derives a short summary: whole sentences while they fit, then
// a word-boundary cut.
func Summarise(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	cut := text[:maxLen]
	if i := strings.LastIndexAny(cut, ".!?"); i > maxLen/2 {
		return strings.TrimSpace(cut[:i+1])
	}
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "..."
}

// resolveURL makes href absolute against base; empty or unparseable input
// yields "".
func resolveURL(base, href string) string {
	if strings.TrimSpace(href) == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	h, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return b.ResolveReference(h).String()
}
