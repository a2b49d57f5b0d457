package extract

import (
	"strings"
	"unicode"
)

// langProfiles maps a language code to its highest-frequency function
// words. Counting profile hits over the token stream separates the four
// languages the pipeline ingests well enough for the quality signal; this
// is not a general-purpose detector.
var langProfiles = map[string][]string{
	"en": {"the", "and", "of", "to", "in", "is", "that", "for", "it", "was", "with", "his", "has"},
	"es": {"el", "la", "de", "que", "en", "los", "se", "del", "las", "por", "un", "con", "una"},
	"fr": {"le", "la", "de", "et", "les", "des", "en", "un", "du", "que", "dans", "pour", "est"},
	"de": {"der", "die", "und", "den", "von", "das", "mit", "dem", "ist", "ein", "nicht", "auf"},
}

// langOrder fixes the tie-break order so detection is deterministic.
var langOrder = []string{"en", "es", "fr", "de"}

// DetectLanguage guesses the language of text and returns a code plus a
// confidence in [0,1]. Text with no profile hits but mostly ASCII letters
// is assumed English at low confidence; otherwise the language is unknown
// ("", 0).
func DetectLanguage(text string) (string, float64) {
	counts := make(map[string]int, len(text)/6)
	total := 0
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,;:!?\"'()[]")
		if tok == "" {
			continue
		}
		counts[tok]++
		total++
	}
	if total == 0 {
		return "", 0
	}

	hits := make(map[string]int, len(langProfiles))
	sum := 0
	for lang, words := range langProfiles {
		for _, w := range words {
			hits[lang] += counts[w]
		}
		sum += hits[lang]
	}
	if sum == 0 {
		if asciiLetterRatio(text) > 0.9 {
			return "en", 0.3
		}
		return "", 0
	}

	best := ""
	for _, lang := range langOrder {
		if best == "" || hits[lang] > hits[best] {
			best = lang
		}
	}
	conf := float64(hits[best]) / float64(sum)
	// Very short samples are unreliable no matter how one-sided.
	if total < 20 {
		conf *= 0.5
	}
	return best, conf
}

// asciiLetterRatio is the share of letters that are plain ASCII.
func asciiLetterRatio(s string) float64 {
	letters, ascii := 0, 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if r < 128 {
				ascii++
			}
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(ascii) / float64(letters)
}
