package worker

import "sync"

const ringSlots = 100

// ring is a fixed-size ring buffer of millisecond samples for rolling
// averages. Old samples fall off as new ones arrive.
type ring struct {
	mu  sync.Mutex
	buf [ringSlots]float64
	n   int
	pos int
}

func (r *ring) add(v float64) {
	r.mu.Lock()
	r.buf[r.pos] = v
	r.pos = (r.pos + 1) % ringSlots
	if r.n < ringSlots {
		r.n++
	}
	r.mu.Unlock()
}

func (r *ring) avg() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < r.n; i++ {
		sum += r.buf[i]
	}
	return sum / float64(r.n)
}
