package extract

import (
	"regexp"
	"strings"
	"time"
)

// dateLayouts is the fixed, ordered list of publish-date formats. Order
// matters: the first successful parse wins, so the unambiguous formats
// come first.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"January 2, 2006 15:04",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"02/01/2006 15:04",
	"01/02/2006",
}

var (
	isoDateRe  = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	longDateRe = regexp.MustCompile(`(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}`)
	ordinalRe  = regexp.MustCompile(`(\d{1,2})(st|nd|rd|th)`)
)

// ParseDate parses a publish date against the fixed layout list, then
// falls back to a loose scan that tolerates ordinals ("June 3rd, 2026")
// and surrounding prose ("Published on 2026-02-11 by staff").
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}

	loose := ordinalRe.ReplaceAllString(s, "$1")
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, loose); err == nil {
			return ts, true
		}
	}
	if m := isoDateRe.FindString(loose); m != "" {
		if ts, err := time.Parse("2006-01-02", m); err == nil {
			return ts, true
		}
	}
	if m := longDateRe.FindString(loose); m != "" {
		m = strings.ReplaceAll(m, ",", "")
		if ts, err := time.Parse("January 2 2006", m); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
