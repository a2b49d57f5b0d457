package quality

import "math"

// Bounds clamp a computed reputation. The zero value means [0,1].
type Bounds struct {
	Min float64
	Max float64
}

func (b Bounds) clamp(v float64) float64 {
	max := b.Max
	if max <= 0 {
		max = 1
	}
	return math.Max(b.Min, math.Min(max, v))
}

// Reputation folds a source's recent output quality and its fetch error
// rate into a single bounded value. The 0.95 factor is regression to the
// mean: a source has to keep producing good content to hold a high score.
func Reputation(avgQuality, errorRate float64, b Bounds) float64 {
	return b.clamp(avgQuality*0.95 - math.Min(0.3, errorRate*0.5))
}

// TierFor rebuckets a source from its reputation and error rate.
func TierFor(reputation, errorRate float64) int {
	switch {
	case reputation >= 0.8 && errorRate < 0.05:
		return 1
	case reputation >= 0.6 && errorRate < 0.15:
		return 2
	default:
		return 3
	}
}

var tierPriority = map[int]float64{1: 1.0, 2: 0.7, 3: 0.4}

// CrawlPriority orders sources for the next cycle: tier sets the band,
// reputation scales within it, floored so no active source starves.
func CrawlPriority(tier int, reputation float64) float64 {
	base, ok := tierPriority[tier]
	if !ok {
		base = 0.4
	}
	return math.Max(0.1, base*(0.5+0.5*reputation))
}

// DeactivateThreshold is the consecutive-failure count at which a source
// is switched off rather than retried forever.
const DeactivateThreshold = 10
