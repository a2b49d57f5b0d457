package quality

import (
	"fmt"
	"sync"
)

// Gate decides whether a scored item is persisted. In shadow mode every
// item passes but rejections-that-would-have-happened are counted, so a
// threshold can be tuned on live traffic before it costs anything.
type Gate struct {
	mu        sync.Mutex
	threshold float64
	enforce   bool

	processed   int64
	accepted    int64
	rejected    int64
	wouldReject int64
	histogram   [10]int64 // score deciles: [0,0.1), [0.1,0.2), ...
}

// NewGate builds a gate. enforce=false is shadow mode.
func NewGate(threshold float64, enforce bool) *Gate {
	return &Gate{threshold: threshold, enforce: enforce}
}

// Decision is the gate's verdict on one item.
type Decision struct {
	Accept bool
	Reason string
}

// Check records the score and rules on it. Reasons embed the score so a
// grep through item records reconstructs the distribution near the
// threshold.
func (g *Gate) Check(score float64) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.processed++
	bucket := int(score * 10)
	if bucket > 9 {
		bucket = 9
	}
	if bucket < 0 {
		bucket = 0
	}
	g.histogram[bucket]++

	below := score < g.threshold
	if !g.enforce {
		g.accepted++
		if below {
			g.wouldReject++
			return Decision{Accept: true, Reason: fmt.Sprintf("shadow_mode_would_reject_%.2f", score)}
		}
		return Decision{Accept: true, Reason: fmt.Sprintf("shadow_mode_accepted_%.2f", score)}
	}
	if below {
		g.rejected++
		return Decision{Accept: false, Reason: fmt.Sprintf("quality_too_low_%.2f", score)}
	}
	g.accepted++
	return Decision{Accept: true, Reason: fmt.Sprintf("enforce_accepted_%.2f", score)}
}

// GateStats is a point-in-time snapshot of gate counters.
type GateStats struct {
	Threshold   float64   `json:"threshold"`
	Enforce     bool      `json:"enforce"`
	Processed   int64     `json:"processed"`
	Accepted    int64     `json:"accepted"`
	Rejected    int64     `json:"rejected"`
	WouldReject int64     `json:"would_reject"`
	Histogram   [10]int64 `json:"histogram"`
}

func (g *Gate) Stats() GateStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return GateStats{
		Threshold:   g.threshold,
		Enforce:     g.enforce,
		Processed:   g.processed,
		Accepted:    g.accepted,
		Rejected:    g.rejected,
		WouldReject: g.wouldReject,
		Histogram:   g.histogram,
	}
}

// SetEnforce flips between shadow and enforce mode at runtime. It
// reports whether the mode actually changed.
func (g *Gate) SetEnforce(enforce bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.enforce == enforce {
		return false
	}
	g.enforce = enforce
	return true
}
