// Package quality scores extracted content, gates it for persistence and
// maintains source reputation. Six signals each produce a value in [0,1];
// the scorer combines them as a weighted sum and classifies the result.
package quality

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// AlgoVersion stamps persisted signals. Bump when any signal formula
// changes so old and new breakdowns can coexist.
const AlgoVersion = "v1"

// Signal kinds.
const (
	SignalSourceReputation = "source_reputation"
	SignalFreshness        = "freshness"
	SignalContentDepth     = "content_depth"
	SignalTitleQuality     = "title_quality"
	SignalSportsRelevance  = "sports_relevance"
	SignalLanguageQuality  = "language_quality"
)

// Content is the pure-data input to scoring: no store lookups happen past
// this point, so recomputing on unchanged input is deterministic.
type Content struct {
	Title        string
	Text         string
	Markdown     string // used for paragraph structure; may be empty
	WordCount    int
	AgeHours     float64 // since published_at; negative when unknown
	Keywords     []string
	ContentType  string
	Language     string  // detected
	DeclaredLang string  // as served
	LangProb     float64 // detector confidence
}

// SourceInfo is the scoring view of the item's source.
type SourceInfo struct {
	Reputation  float64
	Tier        int
	SuccessRate float64
}

// signalSpec binds a kind to its weight and compute function. A closed
// dispatch table instead of open polymorphism: the signal set is fixed per
// algorithm version.
type signalSpec struct {
	kind    string
	weight  float64
	compute func(c Content, s SourceInfo) float64
}

var signalTable = []signalSpec{
	{SignalSourceReputation, 0.25, sourceReputationSignal},
	{SignalFreshness, 0.15, freshnessSignal},
	{SignalContentDepth, 0.20, contentDepthSignal},
	{SignalTitleQuality, 0.15, titleQualitySignal},
	{SignalSportsRelevance, 0.15, sportsRelevanceSignal},
	{SignalLanguageQuality, 0.10, languageQualitySignal},
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// sourceReputationSignal: 0.6·reputation + 0.3·tier_score + 0.1·success_rate.
func sourceReputationSignal(_ Content, s SourceInfo) float64 {
	tierScore := 0.5
	switch s.Tier {
	case 1:
		tierScore = 0.9
	case 2:
		tierScore = 0.7
	}
	return clamp01(0.6*s.Reputation + 0.3*tierScore + 0.1*s.SuccessRate)
}

// freshnessSignal: exp(−age_hours/24), 0.3 when the date is unknown.
func freshnessSignal(c Content, _ SourceInfo) float64 {
	if c.AgeHours < 0 {
		return 0.3
	}
	return clamp01(math.Exp(-c.AgeHours / 24))
}

// contentDepthSignal: 0.5·length + 0.3·structure + 0.2·density.
func contentDepthSignal(c Content, _ SourceInfo) float64 {
	return clamp01(0.5*lengthScore(c.WordCount) + 0.3*structureScore(c) + 0.2*densityScore(c.Text))
}

// lengthScore ramps 0.1→0.6 over 100–300 words, 0.6→1.0 over 300–2000,
// decays to 0.7 at 7000 and stays there.
func lengthScore(words int) float64 {
	w := float64(words)
	switch {
	case w < 100:
		return 0.1
	case w < 300:
		return 0.1 + (w-100)/200*0.5
	case w < 2000:
		return 0.6 + (w-300)/1700*0.4
	case w < 7000:
		return 1.0 - (w-2000)/5000*0.3
	default:
		return 0.7
	}
}

func structureScore(c Content) float64 {
	score := 0.0
	if countSentences(c.Text) >= 3 {
		score += 0.3
	}
	if countParagraphs(c.Markdown, c.Text) >= 2 {
		score += 0.3
	}
	if len(strings.Fields(c.Title)) >= 4 {
		score += 0.2
	}
	if strings.ContainsAny(c.Text, `"“”`) {
		score += 0.2
	}
	return clamp01(score)
}

func countSentences(text string) int {
	n := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			n++
		}
	}
	return n
}

// countParagraphs reads blank-line-separated blocks from the markdown
// rendition; with no markdown it estimates one paragraph per five
// sentences, since extracted plain text has its line structure collapsed.
func countParagraphs(markdown, text string) int {
	if markdown != "" {
		n := 0
		for _, block := range strings.Split(markdown, "\n\n") {
			if strings.TrimSpace(block) != "" {
				n++
			}
		}
		return n
	}
	return 1 + countSentences(text)/5
}

// densityScore maps the unique-token ratio through (r − 0.2) / 0.6.
func densityScore(text string) float64 {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		seen[f] = struct{}{}
	}
	ratio := float64(len(seen)) / float64(len(fields))
	return clamp01((ratio - 0.2) / 0.6)
}

var clickbaitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\byou won'?t believe\b`),
	regexp.MustCompile(`(?i)\bwhat happen(s|ed) next\b`),
	regexp.MustCompile(`(?i)\bnumber \d+ will\b`),
	regexp.MustCompile(`(?i)\bthis one (weird )?trick\b`),
	regexp.MustCompile(`(?i)\bshocking\b`),
	regexp.MustCompile(`(?i)\bgo(es)? viral\b`),
	regexp.MustCompile(`(?i)\bmust[ -]see\b`),
	regexp.MustCompile(`(?i)\bjaw[ -]dropping\b`),
}

// titleQualitySignal: a length curve peaking at 40–80 chars, with
// multiplicative penalties for clickbait, shouting and fragments, and a
// small bonus for proper capitalisation.
func titleQualitySignal(c Content, _ SourceInfo) float64 {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		return 0
	}
	n := float64(len([]rune(title)))
	var score float64
	switch {
	case n < 10:
		score = 0.2
	case n < 40:
		score = 0.2 + (n-10)/30*0.8
	case n <= 80:
		score = 1.0
	case n <= 120:
		score = 1.0 - (n-80)/40*0.4
	default:
		score = 0.4
	}

	for _, pat := range clickbaitPatterns {
		if pat.MatchString(title) {
			score *= 0.3
			break
		}
	}
	if isAllCaps(title) {
		score *= 0.4
	}
	if strings.Count(title, "!")+strings.Count(title, "?") > 2 {
		score *= 0.6
	}
	words := strings.Fields(title)
	if len(words) < 3 {
		score *= 0.5
	}
	if properlyCapitalised(words) {
		score *= 1.1
	}
	return clamp01(score)
}

func isAllCaps(s string) bool {
	letters, upper := 0, 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	return letters >= 4 && upper == letters
}

// properlyCapitalised: first word starts uppercase and the title is not
// all lowercase.
func properlyCapitalised(words []string) bool {
	if len(words) == 0 {
		return false
	}
	first := []rune(words[0])
	return len(first) > 0 && unicode.IsUpper(first[0])
}

// Relevance term tiers. High-tier hits are strong signals on their own;
// low-tier terms only matter in volume.
var (
	highRelevanceTerms = []string{
		"championship", "playoff", "final", "trade", "draft", "injury",
		"record", "mvp", "super bowl", "world series", "stanley cup",
		"world cup", "olympics", "grand slam",
	}
	mediumRelevanceTerms = []string{
		"season", "game", "match", "team", "player", "coach", "score",
		"win", "loss", "contract", "roster", "league",
	}
	lowRelevanceTerms = []string{
		"sports", "athletic", "stadium", "arena", "fans", "ticket",
		"training", "practice",
	}
)

var contentTypeBonus = map[string]float64{
	"game_recap":    0.2,
	"breaking_news": 0.2,
	"trade":         0.15,
	"injury":        0.15,
	"analysis":      0.1,
	"roster":        0.1,
	"interview":     0.1,
}

// sportsRelevanceSignal: keyword volume (≤0.4) + tiered term hits (≤0.3)
// + content-type bonus (≤0.2).
func sportsRelevanceSignal(c Content, _ SourceInfo) float64 {
	score := math.Min(0.4, 0.1*float64(len(c.Keywords)))

	lower := strings.ToLower(c.Title + " " + c.Text)
	tierScore := 0.0
	for _, term := range highRelevanceTerms {
		if strings.Contains(lower, term) {
			tierScore += 0.2
		}
	}
	for _, term := range mediumRelevanceTerms {
		if strings.Contains(lower, term) {
			tierScore += 0.1
		}
	}
	for _, term := range lowRelevanceTerms {
		if strings.Contains(lower, term) {
			tierScore += 0.05
		}
	}
	score += math.Min(0.3, tierScore)
	score += contentTypeBonus[c.ContentType]
	return clamp01(score)
}

// mojibakeSequences are the classic UTF-8-as-Latin-1 double-encoding
// artefacts.
var mojibakeSequences = []string{"â€™", "â€œ", "â€", "Ã©", "Ã¨", "Ã±", "â€“", "â€”"}

// languageQualitySignal starts from detector confidence, checks the
// declared language and penalises encoding damage, stub texts and
// low-vocabulary noise.
func languageQualitySignal(c Content, _ SourceInfo) float64 {
	prob := c.LangProb
	if prob <= 0 {
		prob = 0.5
	}
	score := prob
	if c.DeclaredLang != "" && c.Language != "" &&
		!strings.HasPrefix(strings.ToLower(c.DeclaredLang), c.Language) {
		score *= 0.6
	}

	if strings.ContainsRune(c.Text, '�') {
		score *= 0.5
	}
	for _, seq := range mojibakeSequences {
		if strings.Contains(c.Text, seq) {
			score *= 0.6
			break
		}
	}
	if len(c.Text) < 50 {
		score *= 0.5
	}
	if uniqueRatio(c.Text) < 0.3 {
		score *= 0.6
	}
	if printableRatio(c.Text) < 0.9 {
		score *= 0.4
	}
	return clamp01(score)
}

// garbageRune flags codepoints that only show up in broken extractions:
// private-use area glyphs (icon fonts), the replacement character and
// stray control characters.
func garbageRune(r rune) bool {
	if r >= 0xE000 && r <= 0xF8FF {
		return true
	}
	if r == unicode.ReplacementChar {
		return true
	}
	if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
		return true
	}
	return false
}

func printableRatio(text string) float64 {
	total, clean := 0, 0
	for _, r := range text {
		total++
		if !garbageRune(r) {
			clean++
		}
	}
	if total == 0 {
		return 1
	}
	return float64(clean) / float64(total)
}

func uniqueRatio(text string) float64 {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return 1
	}
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		seen[f] = struct{}{}
	}
	return float64(len(seen)) / float64(len(fields))
}
