package trending

import (
	"math"
	"sort"
	"time"

	"github.com/hazyhaar/sportwire/internal/store"
)

// Query is one generated discovery query with its scheduling priority.
type Query struct {
	Query    string  `json:"query"`
	TermNorm string  `json:"term_norm"`
	Priority float64 `json:"priority"`
}

var queryVariations = []string{"news", "update", "latest"}

// GenerateQueries expands trending terms into search queries. Terms are
// taken in trend-score order; each yields a base query, the standard
// variations and up to two related-term combinations. Output is sorted by
// priority, highest first.
func GenerateQueries(terms []*store.TrendingTerm, now time.Time) []Query {
	var out []Query
	for _, t := range terms {
		if !t.IsTrending {
			continue
		}
		prio := priorityFor(t, now)

		base := t.Term
		if t.SportsContext != "" {
			base = t.SportsContext + " " + t.Term
		}
		out = append(out, Query{Query: base, TermNorm: t.TermNorm, Priority: prio})
		for _, v := range queryVariations {
			out = append(out, Query{Query: base + " " + v, TermNorm: t.TermNorm, Priority: prio})
		}
		for i, rel := range t.RelatedTerms {
			if i >= 2 {
				break
			}
			out = append(out, Query{Query: t.Term + " " + rel, TermNorm: t.TermNorm, Priority: prio * 0.9})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

// priorityFor scales trend score by burst, entity type and peak recency
// boosts, capped at 1.0.
func priorityFor(t *store.TrendingTerm, now time.Time) float64 {
	p := t.TrendScore
	if t.BurstRatio > 5 {
		p *= 1.5
	}
	switch t.TermType {
	case TypeTeam, TypePlayer, TypeEvent:
		p *= 1.3
	}
	if t.TrendPeakAt > 0 {
		sincePeak := now.Sub(time.UnixMilli(t.TrendPeakAt))
		switch {
		case sincePeak <= time.Hour:
			p *= 1.4
		case sincePeak <= 6*time.Hour:
			p *= 1.2
		}
	}
	return math.Min(1.0, p)
}
