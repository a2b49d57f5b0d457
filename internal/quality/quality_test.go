package quality

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

// WHAT: signal boundaries on the length curve.
// WHY: the ramps have four regimes; off-by-one on a boundary shifts every
// score downstream of content_depth.
func TestLengthScoreCurve(t *testing.T) {
	cases := []struct {
		words int
		want  float64
	}{
		{50, 0.1},
		{100, 0.1},
		{300, 0.6},
		{2000, 1.0},
		{7000, 0.7},
		{9000, 0.7},
	}
	for _, c := range cases {
		got := lengthScore(c.words)
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("lengthScore(%d) = %f, want %f", c.words, got, c.want)
		}
	}
	if mid := lengthScore(200); mid <= 0.1 || mid >= 0.6 {
		t.Errorf("lengthScore(200) = %f, want inside (0.1, 0.6)", mid)
	}
}

// WHAT: title heuristics reward headline-length titles and punish
// clickbait and shouting.
// WHY: title_quality carries 15% of the overall score.
func TestTitleQualitySignal(t *testing.T) {
	good := Content{Title: "Lakers Complete Blockbuster Trade for All-Star Guard"}
	bait := Content{Title: "You Won't Believe What This Player Did Next"}
	caps := Content{Title: "BREAKING NEWS TRADE ALERT TONIGHT"}

	gs := titleQualitySignal(good, SourceInfo{})
	bs := titleQualitySignal(bait, SourceInfo{})
	cs := titleQualitySignal(caps, SourceInfo{})

	if gs < 0.8 {
		t.Errorf("good title scored %f, want >= 0.8", gs)
	}
	if bs >= gs || cs >= gs {
		t.Errorf("penalised titles (%f, %f) should score below %f", bs, cs, gs)
	}
	if empty := titleQualitySignal(Content{}, SourceInfo{}); empty != 0 {
		t.Errorf("empty title scored %f, want 0", empty)
	}
}

// WHAT: freshness decays exponentially and falls back to 0.3 for undated
// content.
func TestFreshnessSignal(t *testing.T) {
	if got := freshnessSignal(Content{AgeHours: 0}, SourceInfo{}); got != 1.0 {
		t.Errorf("fresh item scored %f, want 1.0", got)
	}
	day := freshnessSignal(Content{AgeHours: 24}, SourceInfo{})
	if math.Abs(day-math.Exp(-1)) > 1e-9 {
		t.Errorf("24h item scored %f, want e^-1", day)
	}
	if got := freshnessSignal(Content{AgeHours: -1}, SourceInfo{}); got != 0.3 {
		t.Errorf("undated item scored %f, want 0.3", got)
	}
}

// WHAT: language quality drops on replacement characters, mojibake and
// garbage runes.
func TestLanguageQualityPenalties(t *testing.T) {
	base := Content{
		Language: "en", DeclaredLang: "en-US", LangProb: 0.95,
		Text: strings.Repeat("the quick brown fox jumps over lazy dogs near riverbanks today ", 5),
	}
	clean := languageQualitySignal(base, SourceInfo{})

	damaged := base
	damaged.Text = base.Text + " broken�text"
	if d := languageQualitySignal(damaged, SourceInfo{}); d >= clean {
		t.Errorf("replacement char: %f should be below clean %f", d, clean)
	}

	moji := base
	moji.Text = base.Text + " itâ€™s broken"
	if m := languageQualitySignal(moji, SourceInfo{}); m >= clean {
		t.Errorf("mojibake: %f should be below clean %f", m, clean)
	}

	mismatch := base
	mismatch.DeclaredLang = "fr"
	if mm := languageQualitySignal(mismatch, SourceInfo{}); mm >= clean {
		t.Errorf("lang mismatch: %f should be below clean %f", mm, clean)
	}
}

// WHAT: Score combines all six signals, normalises by total weight and
// classifies the result.
func TestScoreAndClassify(t *testing.T) {
	c := Content{
		Title:       "Lakers Complete Blockbuster Trade for All-Star Guard",
		Text:        strings.Repeat(`The Lakers finalized a major trade on Thursday. "We are thrilled," the coach said. The deal reshapes the playoff race this season. `, 10),
		Markdown:    "para one\n\npara two\n\npara three",
		WordCount:   1500,
		AgeHours:    2,
		Keywords:    []string{"nba", "lakers", "trade", "playoff"},
		ContentType: "trade",
		Language:    "en", DeclaredLang: "en", LangProb: 0.98,
	}
	s := SourceInfo{Reputation: 0.9, Tier: 1, SuccessRate: 0.98}
	a := Score(c, s, Thresholds{})

	if len(a.Signals) != 6 {
		t.Fatalf("got %d signals, want 6", len(a.Signals))
	}
	if a.Score < 0.7 {
		t.Errorf("strong item scored %f, want >= 0.7", a.Score)
	}
	if a.AlgoVersion != AlgoVersion {
		t.Errorf("algo version %q", a.AlgoVersion)
	}
	if Classify(0.85) != ClassPremium || Classify(0.65) != ClassGood ||
		Classify(0.45) != ClassAcceptable || Classify(0.2) != ClassPoor {
		t.Error("classification bands wrong")
	}

	strict := Thresholds{Premium: 0.95, Default: 0.85, MinScore: 0.7}
	if strict.Classify(0.9) != ClassGood || strict.Classify(0.75) != ClassAcceptable ||
		strict.Classify(0.65) != ClassPoor {
		t.Error("custom thresholds not applied")
	}
	if a2 := Score(c, s, strict); a2.Score != a.Score {
		t.Errorf("thresholds changed the score: %f vs %f", a2.Score, a.Score)
	}

	var total float64
	for _, b := range a.Signals {
		if b.Value < 0 || b.Value > 1 {
			t.Errorf("signal %s out of range: %f", b.Kind, b.Value)
		}
		total += b.Weight
	}
	if math.Abs(total-1.0) > 1e-9 {
		t.Errorf("weights sum to %f, want 1.0", total)
	}
}

// WHAT: shadow mode accepts everything but counts would-rejects; enforce
// mode rejects below threshold. Reasons embed the score.
func TestGateShadowAndEnforce(t *testing.T) {
	shadow := NewGate(0.4, false)
	d := shadow.Check(0.25)
	if !d.Accept || d.Reason != "shadow_mode_would_reject_0.25" {
		t.Errorf("shadow low: %+v", d)
	}
	d = shadow.Check(0.75)
	if !d.Accept || d.Reason != "shadow_mode_accepted_0.75" {
		t.Errorf("shadow high: %+v", d)
	}
	st := shadow.Stats()
	if st.Processed != 2 || st.Accepted != 2 || st.WouldReject != 1 || st.Rejected != 0 {
		t.Errorf("shadow stats: %+v", st)
	}

	enforce := NewGate(0.4, true)
	d = enforce.Check(0.25)
	if d.Accept || d.Reason != "quality_too_low_0.25" {
		t.Errorf("enforce low: %+v", d)
	}
	d = enforce.Check(0.9)
	if !d.Accept || d.Reason != "enforce_accepted_0.90" {
		t.Errorf("enforce high: %+v", d)
	}
	st = enforce.Stats()
	if st.Rejected != 1 || st.Accepted != 1 {
		t.Errorf("enforce stats: %+v", st)
	}
	if st.Histogram[2] != 1 || st.Histogram[9] != 1 {
		t.Errorf("histogram: %v", st.Histogram)
	}
}

// WHAT: reputation formula, tier buckets and crawl priority floor.
func TestReputationAndTiers(t *testing.T) {
	if got := Reputation(0.8, 0.0, Bounds{}); math.Abs(got-0.76) > 1e-9 {
		t.Errorf("Reputation(0.8, 0) = %f, want 0.76", got)
	}
	// error penalty is capped at 0.3
	if got := Reputation(1.0, 1.0, Bounds{}); math.Abs(got-0.65) > 1e-9 {
		t.Errorf("Reputation(1, 1) = %f, want 0.65", got)
	}
	if got := Reputation(0.1, 1.0, Bounds{}); got != 0 {
		t.Errorf("Reputation should clamp at 0, got %f", got)
	}
	if got := Reputation(0.1, 1.0, Bounds{Min: 0.2}); got != 0.2 {
		t.Errorf("Bounds floor ignored, got %f", got)
	}
	if got := Reputation(1.0, 0.0, Bounds{Max: 0.9}); got != 0.9 {
		t.Errorf("Bounds ceiling ignored, got %f", got)
	}

	cases := []struct {
		rep, err float64
		tier     int
	}{
		{0.9, 0.01, 1},
		{0.9, 0.10, 2},
		{0.7, 0.10, 2},
		{0.7, 0.20, 3},
		{0.3, 0.0, 3},
	}
	for _, c := range cases {
		if got := TierFor(c.rep, c.err); got != c.tier {
			t.Errorf("TierFor(%f, %f) = %d, want %d", c.rep, c.err, got, c.tier)
		}
	}

	if p := CrawlPriority(1, 1.0); p != 1.0 {
		t.Errorf("top priority %f, want 1.0", p)
	}
	if p := CrawlPriority(3, 0.0); p < 0.1 {
		t.Errorf("priority %f below floor", p)
	}
	if CrawlPriority(1, 0.9) <= CrawlPriority(2, 0.9) {
		t.Error("tier 1 should outrank tier 2 at equal reputation")
	}
}

// WHAT: gate reason formatting is stable across score values that land on
// bucket edges.
func TestGateHistogramEdges(t *testing.T) {
	g := NewGate(0.5, true)
	for _, s := range []float64{0.0, 0.1, 0.99, 1.0} {
		g.Check(s)
	}
	st := g.Stats()
	var n int64
	for _, b := range st.Histogram {
		n += b
	}
	if n != 4 {
		t.Errorf("histogram holds %d entries, want 4", n)
	}
	if st.Histogram[9] != 2 {
		t.Errorf("scores 0.99 and 1.0 should share the top bucket: %v", st.Histogram)
	}
	if got := fmt.Sprintf("quality_too_low_%.2f", 0.1); got != "quality_too_low_0.10" {
		t.Errorf("reason format: %s", got)
	}
}
