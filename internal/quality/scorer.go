package quality

import "math"

// Classification bands on the overall score.
const (
	ClassPremium    = "premium"
	ClassGood       = "good"
	ClassAcceptable = "acceptable"
	ClassPoor       = "poor"
)

// Thresholds are the classification cut points. Zero values fall back to
// the defaults, so Thresholds{} classifies with the standard bands.
type Thresholds struct {
	Premium  float64 // >= Premium -> premium
	Default  float64 // >= Default -> good
	MinScore float64 // >= MinScore -> acceptable, below -> poor
}

func (t *Thresholds) defaults() {
	if t.Premium <= 0 {
		t.Premium = 0.8
	}
	if t.Default <= 0 {
		t.Default = 0.6
	}
	if t.MinScore <= 0 {
		t.MinScore = 0.4
	}
}

// Classify maps a score to its band.
func (t Thresholds) Classify(score float64) string {
	t.defaults()
	switch {
	case score >= t.Premium:
		return ClassPremium
	case score >= t.Default:
		return ClassGood
	case score >= t.MinScore:
		return ClassAcceptable
	default:
		return ClassPoor
	}
}

// Breakdown is one computed signal, persisted alongside the item so the
// overall score can be audited after the fact.
type Breakdown struct {
	Kind   string  `json:"kind"`
	Value  float64 `json:"value"`
	Weight float64 `json:"weight"`
}

// Assessment is the full scoring result for one item.
type Assessment struct {
	Score          float64     `json:"score"`
	Classification string      `json:"classification"`
	AlgoVersion    string      `json:"algo_version"`
	Signals        []Breakdown `json:"signals"`
}

// Score computes every signal in the dispatch table and combines them as
// a weighted sum clamped to [0,1]. t sets the classification bands.
func Score(c Content, s SourceInfo, t Thresholds) Assessment {
	a := Assessment{
		AlgoVersion: AlgoVersion,
		Signals:     make([]Breakdown, 0, len(signalTable)),
	}
	var sum, weight float64
	for _, spec := range signalTable {
		v := clamp01(spec.compute(c, s))
		a.Signals = append(a.Signals, Breakdown{Kind: spec.kind, Value: v, Weight: spec.weight})
		sum += v * spec.weight
		weight += spec.weight
	}
	a.Score = math.Max(0, math.Min(1, sum/weight))
	a.Classification = t.Classify(a.Score)
	return a
}

// Classify maps a score to its band using the default cut points.
func Classify(score float64) string {
	return Thresholds{}.Classify(score)
}
