package queryqueue

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/hazyhaar/sportwire/dbopen"
	"github.com/hazyhaar/sportwire/internal/store"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

func testQueue(t *testing.T) *Queue {
	t.Helper()
	db := dbopen.OpenMemory(t)
	if _, err := store.NewStore(db); err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return New(db, slog.Default())
}

// WHAT: claims come out highest priority first, FIFO within a priority,
// and a claimed row is not handed out twice.
func TestClaimOrdering(t *testing.T) {
	ctx := context.Background()
	q := testQueue(t)

	base := time.Now()
	clock := base
	q.SetNow(func() time.Time { return clock })

	push := func(query string, prio float64) {
		t.Helper()
		if err := q.Push(ctx, "term", query, prio); err != nil {
			t.Fatalf("Push %s: %v", query, err)
		}
		clock = clock.Add(time.Millisecond)
	}
	push("low", 0.2)
	push("high-old", 0.9)
	push("high-new", 0.9)
	push("mid", 0.5)

	var got []string
	for {
		e, err := q.Claim(ctx)
		if err != nil {
			t.Fatalf("Claim: %v", err)
		}
		if e == nil {
			break
		}
		got = append(got, e.Query)
	}
	want := []string{"high-old", "high-new", "mid", "low"}
	if len(got) != len(want) {
		t.Fatalf("claimed %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("claimed %v, want %v", got, want)
		}
	}
}

// WHAT: duplicate pending query text is not enqueued twice; after the
// original is acked the text can be queued again.
func TestPushDeduplicates(t *testing.T) {
	ctx := context.Background()
	q := testQueue(t)

	if err := q.Push(ctx, "t", "lakers trade news", 0.8); err != nil {
		t.Fatal(err)
	}
	if err := q.Push(ctx, "t", "lakers trade news", 0.9); err != nil {
		t.Fatal(err)
	}
	if n, _ := q.Depth(ctx); n != 1 {
		t.Fatalf("depth %d after duplicate push, want 1", n)
	}

	e, err := q.Claim(ctx)
	if err != nil || e == nil {
		t.Fatalf("Claim: %v %v", e, err)
	}
	if err := q.Ack(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	if err := q.Push(ctx, "t", "lakers trade news", 0.7); err != nil {
		t.Fatal(err)
	}
	if n, _ := q.Depth(ctx); n != 1 {
		t.Fatalf("depth %d after re-push, want 1", n)
	}
}

// WHAT: the cap evicts the lowest-priority pending rows, never the
// highest.
func TestOverflowDropsLowestPriority(t *testing.T) {
	ctx := context.Background()
	q := testQueue(t)

	for i := 0; i < MaxDepth; i++ {
		if err := q.Push(ctx, "t", fmt.Sprintf("filler-%04d", i), 0.5); err != nil {
			t.Fatal(err)
		}
	}
	if err := q.Push(ctx, "t", "urgent", 0.95); err != nil {
		t.Fatal(err)
	}
	if n, _ := q.Depth(ctx); n != MaxDepth {
		t.Fatalf("depth %d, want %d", n, MaxDepth)
	}

	e, err := q.Claim(ctx)
	if err != nil || e == nil {
		t.Fatalf("Claim: %v %v", e, err)
	}
	if e.Query != "urgent" {
		t.Errorf("top claim %q, want urgent", e.Query)
	}
}

// WHAT: released and stale-claimed rows become claimable again.
func TestReleaseAndPurge(t *testing.T) {
	ctx := context.Background()
	q := testQueue(t)

	now := time.Now()
	q.SetNow(func() time.Time { return now })

	if err := q.Push(ctx, "t", "q1", 0.5); err != nil {
		t.Fatal(err)
	}
	e, _ := q.Claim(ctx)
	if e == nil {
		t.Fatal("expected claim")
	}
	if again, _ := q.Claim(ctx); again != nil {
		t.Fatalf("claimed row handed out twice: %+v", again)
	}

	if err := q.Release(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	e2, _ := q.Claim(ctx)
	if e2 == nil || e2.ID != e.ID {
		t.Fatalf("release did not requeue: %+v", e2)
	}

	// simulate the claimer dying: advance past the stale horizon
	q.SetNow(func() time.Time { return now.Add(time.Hour) })
	n, err := q.PurgeClaimed(ctx, 30*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("purged %d stale claims, want 1", n)
	}
	e3, _ := q.Claim(ctx)
	if e3 == nil || e3.ID != e.ID {
		t.Fatalf("purge did not requeue: %+v", e3)
	}
}
