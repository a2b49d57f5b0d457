// Package ratelimit paces outbound fetches per host: a token bucket at the
// configured default rate plus an adaptive backoff that doubles on HTTP 429
// and halves on success.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Backoff bounds. A host's backoff is clamped to [floor, ceiling]; once it
// decays below the floor the host leaves the table entirely.
const (
	backoffFloor   = time.Second
	backoffCeiling = 300 * time.Second
)

// Limiter paces requests per host. One instance per worker.
type Limiter struct {
	delay time.Duration
	sleep func(context.Context, time.Duration) error

	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
	backoffs map[string]time.Duration
}

// New creates a Limiter issuing one token per defaultDelay with burst 1.
func New(defaultDelay time.Duration) *Limiter {
	if defaultDelay <= 0 {
		defaultDelay = 2 * time.Second
	}
	return &Limiter{
		delay:    defaultDelay,
		sleep:    sleepCtx,
		buckets:  make(map[string]*rate.Limiter),
		backoffs: make(map[string]time.Duration),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SetSleep overrides the backoff sleep. Tests only.
func (l *Limiter) SetSleep(f func(context.Context, time.Duration) error) { l.sleep = f }

// Acquire blocks until the host's token bucket admits a request, then
// sleeps any pending backoff for the host. Cancellation returns the
// context error without consuming backoff.
func (l *Limiter) Acquire(ctx context.Context, host string) error {
	l.mu.Lock()
	bucket, ok := l.buckets[host]
	if !ok {
		bucket = rate.NewLimiter(rate.Every(l.delay), 1)
		l.buckets[host] = bucket
	}
	backoff := l.backoffs[host]
	l.mu.Unlock()

	if err := bucket.Wait(ctx); err != nil {
		return err
	}
	if backoff > 0 {
		return l.sleep(ctx, backoff)
	}
	return nil
}

// Observe feeds a fetch outcome back into the host's backoff: 429 doubles
// it (from a 1s floor, clamped to 300s), any status < 400 halves it, and a
// backoff decayed below 1s removes the host from the table.
func (l *Limiter) Observe(host string, status int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur := l.backoffs[host]
	switch {
	case status == 429:
		if cur < backoffFloor {
			cur = backoffFloor
		} else {
			cur *= 2
		}
		if cur > backoffCeiling {
			cur = backoffCeiling
		}
		l.backoffs[host] = cur
	case status > 0 && status < 400:
		cur /= 2
		if cur < backoffFloor {
			delete(l.backoffs, host)
			return
		}
		l.backoffs[host] = cur
	}
}

// Backoff returns the host's current backoff, zero when none.
func (l *Limiter) Backoff(host string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backoffs[host]
}

// EffectiveDelay is the pacing a caller should expect for the host right
// now: the bucket interval plus any backoff.
func (l *Limiter) EffectiveDelay(host string) time.Duration {
	return l.delay + l.Backoff(host)
}
