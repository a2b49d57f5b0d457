package extract

import (
	"strings"
	"unicode"
)

// CleanText collapses all whitespace runs to single spaces and removes
// zero-width characters that some CMSes leak into markup.
func CleanText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff', '\u00ad':
			continue
		}
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// titleSeparators are the visible separators publishers use between the
// headline and the site name.
var titleSeparators = []string{" | ", " — ", " – ", " :: ", " » ", " - "}

// StripSiteSuffix removes a trailing site-name segment from a title:
// "Lakers land star guard | ESPN" becomes "Lakers land star guard". The
// suffix is only stripped when the remaining headline keeps at least
// three words, so short titles are never mangled.
func StripSiteSuffix(title string) string {
	best := -1
	sepLen := 0
	for _, sep := range titleSeparators {
		if i := strings.LastIndex(title, sep); i > best {
			best = i
			sepLen = len(sep)
		}
	}
	if best < 0 {
		return title
	}
	head := strings.TrimSpace(title[:best])
	tail := strings.TrimSpace(title[best+sepLen:])
	// A long tail is part of the headline, not a site name.
	if len(strings.Fields(head)) < 3 || len(strings.Fields(tail)) > 4 {
		return title
	}
	return head
}
