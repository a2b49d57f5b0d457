package neardup

import (
	"strings"
	"unicode"
)

// stopwords are dropped during text normalisation. Function words carry no
// signal for duplicate detection and inflate shingle overlap between
// unrelated articles.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "day": {}, "get": {}, "has": {},
	"him": {}, "his": {}, "how": {}, "its": {}, "new": {}, "now": {},
	"old": {}, "see": {}, "two": {}, "who": {}, "did": {}, "she": {},
	"use": {}, "way": {}, "will": {}, "with": {}, "this": {}, "that": {},
	"from": {}, "they": {}, "have": {}, "more": {}, "been": {}, "were": {},
	"said": {}, "each": {}, "which": {}, "their": {}, "would": {},
	"there": {}, "could": {}, "other": {}, "after": {}, "about": {},
	"into": {}, "than": {}, "them": {}, "then": {}, "also": {}, "when": {},
	"what": {}, "your": {}, "some": {}, "over": {}, "such": {}, "only": {},
	"most": {}, "made": {}, "while": {}, "where": {}, "before": {},
	"between": {}, "because": {}, "during": {}, "under": {}, "again": {},
	"against": {},
}

// Tokens normalises text into the token stream used for hashing and
// shingling: lowercase, every non-word non-space rune becomes a space,
// whitespace collapses, and tokens of length <= 2 or in the stopword set
// are dropped.
func Tokens(s string) []string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	out := fields[:0]
	for _, tok := range fields {
		if len(tok) <= 2 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// NormaliseText returns the space-joined normalised token stream.
func NormaliseText(s string) string {
	return strings.Join(Tokens(s), " ")
}
