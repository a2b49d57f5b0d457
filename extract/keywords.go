package extract

import (
	"strings"
	"unicode"
)

// sportKeywords is the curated keyword set, partitioned by sport. Terms
// are stored pre-normalised (lowercase, hyphens as spaces) and matched on
// word boundaries. Slice order fixes match order, so extracted keyword
// lists are deterministic.
var sportKeywords = []struct {
	Sport string
	Terms []string
}{
	{"basketball", []string{
		"basketball", "nba", "wnba", "triple double", "three pointer",
		"buzzer beater", "slam dunk", "free throw", "point guard",
		"march madness", "final four",
	}},
	{"football", []string{
		"football", "nfl", "quarterback", "touchdown", "field goal",
		"interception", "super bowl", "hail mary", "two point conversion",
		"offensive line", "running back", "wide receiver",
	}},
	{"baseball", []string{
		"baseball", "mlb", "home run", "strikeout", "world series",
		"grand slam", "no hitter", "walk off", "bullpen", "pitcher",
	}},
	{"hockey", []string{
		"hockey", "nhl", "stanley cup", "hat trick", "power play",
		"goaltender", "slapshot",
	}},
	{"soccer", []string{
		"soccer", "mls", "premier league", "champions league", "world cup",
		"penalty kick", "clean sheet", "transfer window", "offside",
		"fifa", "el clasico",
	}},
	{"tennis", []string{
		"tennis", "wimbledon", "atp", "wta", "match point", "tiebreak",
	}},
	{"golf", []string{
		"golf", "pga", "birdie", "hole in one", "leaderboard", "the masters",
	}},
	{"combat", []string{
		"boxing", "ufc", "mma", "knockout", "heavyweight", "title fight",
		"octagon",
	}},
	{"motorsport", []string{
		"formula 1", "nascar", "grand prix", "pole position", "pit stop",
	}},
	{"olympics", []string{
		"olympics", "paralympics", "gold medal", "world record",
	}},
	{"general", []string{
		"championship", "playoff", "playoffs", "postseason",
		"trade deadline", "draft pick", "free agency", "free agent",
		"injury report", "all star", "mvp", "rookie", "head coach",
		"roster move", "hall of fame", "box score", "season opener",
	}},
}

// sportOf is built once from sportKeywords for context lookups.
var sportOf = func() map[string]string {
	m := make(map[string]string, 128)
	for _, group := range sportKeywords {
		for _, term := range group.Terms {
			if _, taken := m[term]; !taken {
				m[term] = group.Sport
			}
		}
	}
	return m
}()

// sportsIndicators are single words whose presence marks a phrase as
// sports talk. The trending extractor requires one before it promotes a
// free-form phrase to a candidate term.
var sportsIndicators = map[string]struct{}{
	"game": {}, "season": {}, "team": {}, "player": {}, "coach": {},
	"trade": {}, "draft": {}, "injury": {}, "score": {}, "win": {},
	"loss": {}, "playoff": {}, "playoffs": {}, "championship": {},
	"league": {}, "contract": {}, "roster": {}, "match": {},
	"tournament": {}, "finals": {}, "record": {}, "transfer": {},
	"signing": {}, "mvp": {}, "stats": {},
}

// MatchKeywords returns the curated sports keywords present in text, in
// lexicon order, deduplicated.
func MatchKeywords(text string) []string {
	norm := normWords(text)
	var out []string
	seen := make(map[string]struct{})
	for _, group := range sportKeywords {
		for _, term := range group.Terms {
			if _, dup := seen[term]; dup {
				continue
			}
			if containsWord(norm, term) {
				seen[term] = struct{}{}
				out = append(out, term)
			}
		}
	}
	return out
}

// KeywordSport returns which sport a curated keyword belongs to, or "".
func KeywordSport(keyword string) string {
	return sportOf[strings.ToLower(keyword)]
}

// HasSportsIndicator reports whether any token of the phrase is a
// sports-indicator word.
func HasSportsIndicator(phrase string) bool {
	for _, tok := range strings.Fields(strings.ToLower(phrase)) {
		if _, ok := sportsIndicators[tok]; ok {
			return true
		}
	}
	return false
}

// normWords lowercases, maps every non-letter non-digit rune to a space,
// collapses runs and pads the ends so callers can match " term " on word
// boundaries.
func normWords(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 2)
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

func containsWord(norm, term string) bool {
	return strings.Contains(norm, " "+term+" ")
}
