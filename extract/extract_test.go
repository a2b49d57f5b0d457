package extract

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const articlePage = `<!DOCTYPE html>
<html lang="en-US">
<head>
<title>Lakers Land Star Guard in Blockbuster Deal | Hoops Daily</title>
<meta name="author" content="Dana Scribe">
<meta property="article:published_time" content="2026-08-20T10:30:00Z">
<meta property="og:image" content="https://cdn.hoopsdaily.example/lead.jpg">
<link rel="canonical" href="https://hoopsdaily.example/stories/lakers-acquire-guard">
</head>
<body>
<nav><a href="/">Home</a> <a href="/nba">NBA</a> <a href="/scores">Scores</a></nav>
<article>
<p>The Lakers have agreed to acquire an All-Star point guard ahead of the
trade deadline, sending two first-round picks to the visiting side in a
move that reshapes the Western Conference race.</p>
<p>LeBron James welcomed the move, telling reporters the NBA landscape
shifts fast and the team expects a deep playoff run this season after a
frustrating year of near misses.</p>
<p>Front office executives believe the trade gives the roster more
shooting while keeping the core intact for a championship push.</p>
</article>
<footer>Copyright Hoops Daily</footer>
</body>
</html>`

func TestExtract_ReadabilityPath(t *testing.T) {
	// WHAT: A well-structured article extracts via the readability
	// strategy with full metadata.
	// WHY: This is the common path for modern sports sites.
	e := New(Options{}, nil)
	res, err := e.Extract([]byte(articlePage), "https://hoopsdaily.example/lakers-news", "https://hoopsdaily.example/lakers-news")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatal("expected success")
	}
	if res.Method != MethodReadability {
		t.Errorf("method = %q, want %q", res.Method, MethodReadability)
	}
	if res.Title != "Lakers Land Star Guard in Blockbuster Deal" {
		t.Errorf("title = %q (site suffix not stripped?)", res.Title)
	}
	if res.Byline != "Dana Scribe" {
		t.Errorf("byline = %q", res.Byline)
	}
	want := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)
	if !res.PublishedAt.Equal(want) {
		t.Errorf("published = %v, want %v", res.PublishedAt, want)
	}
	if res.CanonicalURL != "https://hoopsdaily.example/stories/lakers-acquire-guard" {
		t.Errorf("canonical = %q", res.CanonicalURL)
	}
	if res.ImageURL != "https://cdn.hoopsdaily.example/lead.jpg" {
		t.Errorf("image = %q", res.ImageURL)
	}
	if res.Language != "en" || res.LangProb < 0.3 {
		t.Errorf("language = %q (%f), want en", res.Language, res.LangProb)
	}
	if res.WordCount != len(strings.Fields(res.Text)) {
		t.Errorf("word count %d != tokens %d", res.WordCount, len(strings.Fields(res.Text)))
	}
	if res.ContentHash == "" {
		t.Error("missing content hash")
	}
	if res.ContentType != "trade" {
		t.Errorf("content type = %q, want trade", res.ContentType)
	}
	for _, kw := range []string{"nba", "point guard", "trade deadline"} {
		if !containsString(res.Keywords, kw) {
			t.Errorf("keywords %v missing %q", res.Keywords, kw)
		}
	}
	if !containsString(res.Entities[EntityTeam], "lakers") {
		t.Errorf("entities %v missing team lakers", res.Entities)
	}
	if !containsString(res.Entities[EntityPlayer], "lebron james") {
		t.Errorf("entities %v missing player lebron james", res.Entities)
	}
	if res.Markdown == "" || !strings.Contains(res.Markdown, "trade deadline") {
		t.Errorf("markdown rendition missing content: %q", res.Markdown)
	}
	if len(res.Summary) > 303 {
		t.Errorf("summary too long: %d chars", len(res.Summary))
	}
}

const densityPage = `<!DOCTYPE html>
<html><head><title>Warriors Rally Late To Stun Celtics - Court Report</title></head>
<body>
<div class="wrapper">
<div class="story-block">
The Warriors erased a seventeen point deficit in the final quarter behind
a barrage of three pointers and relentless work on the defensive glass,
silencing the home crowd and handing the Celtics their first loss of the
season in a game that swung on a single late possession.
</div>
<nav><a href="/a">More</a><a href="/b">Scores</a></nav>
</div>
</body></html>`

func TestExtract_DensityFallback(t *testing.T) {
	// WHAT: Prose outside <p> tags defeats readability scoring but the
	// density strategy still finds the text block.
	e := New(Options{}, nil)
	res, err := e.Extract([]byte(densityPage), "https://courtreport.example/recap", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Method != MethodDensity {
		t.Errorf("method = %q, want %q", res.Method, MethodDensity)
	}
	if res.Title != "Warriors Rally Late To Stun Celtics" {
		t.Errorf("title = %q", res.Title)
	}
	if !strings.Contains(res.Text, "seventeen point deficit") {
		t.Errorf("text lost content: %q", res.Text)
	}
	// No canonical link on page: the fetched URL canonicalises.
	if res.CanonicalURL != "https://courtreport.example/recap" {
		t.Errorf("canonical = %q", res.CanonicalURL)
	}
}

const linkHeavyPage = `<!DOCTYPE html>
<html><head><title>Transfer Window Tracker Live Updates</title></head>
<body>
<div class="content">
<a href="/1">Arsenal agree record fee for striker as the transfer window opens with heavy spending across every premier league club this summer</a>
<a href="/2">Chelsea monitor midfield targets while Liverpool complete a loan deal for a promising young defender ahead of the weekend</a>
Live updates from the transfer window across Europe with every confirmed
deal, fee and medical tracked minute by minute through deadline day.
</div>
</body></html>`

func TestExtract_SelectorsFallback(t *testing.T) {
	// WHAT: A link-dominated page fails readability and density but the
	// structural selector list still recovers the content region.
	// WHY: Live blogs and trackers are mostly anchors yet still matter.
	e := New(Options{}, nil)
	res, err := e.Extract([]byte(linkHeavyPage), "https://footywire.example/tracker", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Method != MethodSelectors {
		t.Errorf("method = %q, want %q", res.Method, MethodSelectors)
	}
	if !strings.Contains(res.Text, "deadline day") {
		t.Errorf("text lost content: %q", res.Text)
	}
	// Earlier strategy failures stay on the record as diagnostics.
	if len(res.Errors) < 2 {
		t.Errorf("expected readability+density diagnostics, got %v", res.Errors)
	}
}

func TestExtract_TooShortFails(t *testing.T) {
	// WHAT: A page with under 100 chars of text is an extraction failure.
	page := `<html><head><title>Hi</title></head><body><p>Too short.</p></body></html>`
	e := New(Options{}, nil)
	res, err := e.Extract([]byte(page), "https://example.com/x", "")
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("err = %v, want ErrNoContent", err)
	}
	if res.Success {
		t.Error("success must be false")
	}
	if !containsString(res.Errors, "extraction_failed") {
		t.Errorf("errors = %v, want extraction_failed marker", res.Errors)
	}
}

func TestExtract_MissingTitleFails(t *testing.T) {
	// WHAT: Enough text but no title anywhere is a no_title failure.
	page := `<html><head></head><body><article>
<p>A quiet deadline day passed without a single completed move as clubs
held their positions and agents waited for the market to blink first,
leaving supporters refreshing feeds for news that never arrived.</p>
</article></body></html>`
	e := New(Options{}, nil)
	_, err := e.Extract([]byte(page), "https://example.com/x", "")
	if !errors.Is(err, ErrNoTitle) {
		t.Fatalf("err = %v, want ErrNoTitle", err)
	}
}

func TestExtract_RelativeCanonicalResolved(t *testing.T) {
	// WHAT: A relative rel=canonical resolves against the final URL and
	// supersedes it, tracking params and all.
	page := `<html><head><title>Deadline Day Story Rundown</title>
<link rel="canonical" href="/story/42"></head>
<body><article><p>Clubs across the league completed a flurry of moves in
the closing hours of the window, with three record fees and a string of
loan exits reshaping squads before the deadline passed last night.</p>
</article></body></html>`
	e := New(Options{}, nil)
	res, err := e.Extract([]byte(page), "https://example.com/x?utm_medium=y", "https://example.com/x?utm_medium=y")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.CanonicalURL != "https://example.com/story/42" {
		t.Errorf("canonical = %q, want https://example.com/story/42", res.CanonicalURL)
	}
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
