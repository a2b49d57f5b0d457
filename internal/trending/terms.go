// Package trending extracts candidate terms from accepted content, detects
// bursting terms against their 24-hour baseline and generates prioritised
// discovery queries for them.
package trending

import (
	"strings"
	"unicode"

	"github.com/hazyhaar/sportwire/extract"
)

// Term types. Entity-backed types come straight from the extraction
// lexicon; curated keywords and free phrases get their own labels.
const (
	TypeKeyword = "keyword"
	TypePhrase  = "phrase"
	TypeTeam    = extract.EntityTeam
	TypePlayer  = extract.EntityPlayer
	TypeLeague  = extract.EntityLeague
	TypeEvent   = extract.EntityEvent
)

// Term is one candidate trending term pulled from a content item.
type Term struct {
	Term          string
	Norm          string
	Type          string
	SportsContext string
}

// stopwords excluded from phrase candidates and rejected as whole terms.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "have": {}, "has": {}, "had": {}, "was": {}, "were": {},
	"will": {}, "would": {}, "could": {}, "should": {}, "been": {},
	"their": {}, "they": {}, "them": {}, "his": {}, "her": {}, "its": {},
	"are": {}, "but": {}, "not": {}, "you": {}, "all": {}, "can": {},
	"more": {}, "after": {}, "before": {}, "over": {}, "under": {},
	"into": {}, "about": {}, "than": {}, "then": {}, "when": {},
	"what": {}, "who": {}, "how": {}, "why": {}, "where": {}, "which": {},
	"said": {}, "says": {}, "also": {}, "just": {}, "out": {}, "off": {},
	"new": {}, "one": {}, "two": {}, "first": {}, "last": {}, "year": {},
	"years": {}, "day": {}, "days": {}, "week": {}, "night": {},
	"during": {}, "against": {}, "between": {},
}

// Normalise lower-cases, maps non-word runes to spaces and collapses runs.
// Returns "" for terms that are too short or are bare stopwords.
func Normalise(term string) string {
	var b strings.Builder
	b.Grow(len(term))
	space := false
	for _, r := range strings.ToLower(term) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	norm := b.String()
	if len(norm) < 3 {
		return ""
	}
	if _, stop := stopwords[norm]; stop {
		return ""
	}
	return norm
}

// ExtractTerms gathers candidate terms from an item: the caller's sports
// keywords, curated entity matches over title+text, and significant
// phrases from the title. Deduplicated on the normalised form; entity
// types win ties over keyword and phrase.
func ExtractTerms(title, text string, keywords []string) []Term {
	var out []Term
	seen := make(map[string]struct{})

	add := func(raw, typ, sport string) {
		norm := Normalise(raw)
		if norm == "" {
			return
		}
		if _, dup := seen[norm]; dup {
			return
		}
		seen[norm] = struct{}{}
		out = append(out, Term{Term: raw, Norm: norm, Type: typ, SportsContext: sport})
	}

	for typ, names := range extract.MatchEntities(title + " " + text) {
		for _, name := range names {
			add(name, typ, "")
		}
	}
	for _, kw := range keywords {
		add(kw, TypeKeyword, extract.KeywordSport(kw))
	}
	for _, phrase := range titlePhrases(title) {
		add(phrase, TypePhrase, "")
	}
	return out
}

// titlePhrases yields 2-3 word windows over the title with no stopword
// tokens, total length >= 6 and at least one sports-indicator word.
func titlePhrases(title string) []string {
	tokens := strings.Fields(Normalise(title))
	var phrases []string
	for i := 0; i < len(tokens); i++ {
		for n := 2; n <= 3 && i+n <= len(tokens); n++ {
			window := tokens[i : i+n]
			if !cleanWindow(window) {
				continue
			}
			phrase := strings.Join(window, " ")
			if len(phrase) >= 6 && extract.HasSportsIndicator(phrase) {
				phrases = append(phrases, phrase)
			}
		}
	}
	return phrases
}

func cleanWindow(tokens []string) bool {
	for _, tok := range tokens {
		if _, stop := stopwords[tok]; stop {
			return false
		}
		if len(tok) < 3 {
			return false
		}
	}
	return true
}
