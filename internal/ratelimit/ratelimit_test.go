package ratelimit

import (
	"context"
	"testing"
	"time"
)

// WHAT: 429 doubles the backoff from a 1s floor and clamps at 300s;
// success halves it and drops the host below 1s.
// WHY: this is the adaptive politeness contract — a 429 storm must back
// off geometrically and recover geometrically.
func TestBackoffDoublingAndDecay(t *testing.T) {
	l := New(time.Millisecond)

	l.Observe("a.com", 429)
	if got := l.Backoff("a.com"); got != time.Second {
		t.Fatalf("first 429: backoff = %v, want 1s", got)
	}
	l.Observe("a.com", 429)
	if got := l.Backoff("a.com"); got != 2*time.Second {
		t.Fatalf("second 429: backoff = %v, want 2s", got)
	}

	// Clamp at 300s.
	for i := 0; i < 20; i++ {
		l.Observe("a.com", 429)
	}
	if got := l.Backoff("a.com"); got != 300*time.Second {
		t.Fatalf("backoff should clamp at 300s, got %v", got)
	}

	// Successes halve toward the floor, then remove the host.
	l.Observe("a.com", 200)
	if got := l.Backoff("a.com"); got != 150*time.Second {
		t.Fatalf("after success: backoff = %v, want 150s", got)
	}
	for i := 0; i < 10; i++ {
		l.Observe("a.com", 200)
	}
	if got := l.Backoff("a.com"); got != 0 {
		t.Fatalf("backoff should clear below 1s, got %v", got)
	}
}

// WHAT: 4xx/5xx responses other than 429 leave the backoff untouched.
func TestObserveIgnoresOtherFailures(t *testing.T) {
	l := New(time.Millisecond)
	l.Observe("a.com", 429)
	l.Observe("a.com", 500)
	l.Observe("a.com", 404)
	if got := l.Backoff("a.com"); got != time.Second {
		t.Fatalf("non-429 failures must not change backoff, got %v", got)
	}
}

// WHAT: Acquire paces two requests to the same host by the bucket interval
// while a different host proceeds immediately.
func TestPerHostPacing(t *testing.T) {
	const delay = 50 * time.Millisecond
	l := New(delay)
	ctx := context.Background()

	start := time.Now()
	if err := l.Acquire(ctx, "a.com"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := l.Acquire(ctx, "b.com"); err != nil {
		t.Fatalf("other host acquire: %v", err)
	}
	if elapsed := time.Since(start); elapsed > delay/2 {
		t.Fatalf("different hosts should not contend, took %v", elapsed)
	}

	if err := l.Acquire(ctx, "a.com"); err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if elapsed := time.Since(start); elapsed < delay/2 {
		t.Fatalf("same host should be paced, took only %v", elapsed)
	}
}

// WHAT: Acquire sleeps the pending backoff after taking a token, and a
// cancelled context aborts the wait.
func TestAcquireAppliesBackoff(t *testing.T) {
	l := New(time.Millisecond)
	var slept time.Duration
	l.SetSleep(func(ctx context.Context, d time.Duration) error {
		slept = d
		return nil
	})

	l.Observe("a.com", 429)
	l.Observe("a.com", 429)
	if err := l.Acquire(context.Background(), "a.com"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if slept != 2*time.Second {
		t.Fatalf("slept %v, want 2s backoff", slept)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l2 := New(time.Hour)
	l2.Acquire(context.Background(), "x.com") // drain the burst token
	if err := l2.Acquire(ctx, "x.com"); err == nil {
		t.Fatal("cancelled Acquire should return an error")
	}
}
