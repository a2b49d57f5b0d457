package store

import (
	"context"
	"testing"
	"time"

	"github.com/hazyhaar/sportwire/dbopen"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t)
	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func seedSource(t *testing.T, s *Store, id, domain string) {
	t.Helper()
	err := s.InsertSource(context.Background(), &Source{
		ID: id, Domain: domain, Name: domain, IsActive: true,
	})
	if err != nil {
		t.Fatalf("InsertSource %s: %v", domain, err)
	}
}

func seedItem(t *testing.T, s *Store, id, sourceID, canonicalURL, hash string) {
	t.Helper()
	_, err := s.UpsertContentItem(context.Background(), &ContentItem{
		ID: id, SourceID: sourceID, URL: canonicalURL, CanonicalURL: canonicalURL,
		ContentHash: hash, Title: "title " + id, Text: "text body " + id,
		WordCount: 3, IsActive: true,
	})
	if err != nil {
		t.Fatalf("seed item %s: %v", id, err)
	}
}

// WHAT: source round-trip, including JSON search_queries and NULLable
// crawl timestamps.
func TestSourceRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	src := &Source{
		ID: "s1", Domain: "espn.com", Name: "ESPN", BaseURL: "https://espn.com",
		Kind: "feed", IsActive: true, Tier: 1, Reputation: 0.9,
		RSSURL: "https://espn.com/rss", SearchQueries: []string{"nba", "nfl"},
	}
	if err := s.InsertSource(ctx, src); err != nil {
		t.Fatalf("InsertSource: %v", err)
	}

	got, err := s.GetSourceByDomain(ctx, "espn.com")
	if err != nil {
		t.Fatalf("GetSourceByDomain: %v", err)
	}
	if got == nil || got.ID != "s1" || got.Tier != 1 || len(got.SearchQueries) != 2 {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if got.LastCrawledFeedAt != 0 {
		t.Fatalf("unset crawl time should be 0, got %d", got.LastCrawledFeedAt)
	}

	// Domain is unique.
	if err := s.InsertSource(ctx, &Source{ID: "s2", Domain: "espn.com"}); err == nil {
		t.Fatal("duplicate domain insert should fail")
	}

	// Missing source is (nil, nil).
	got, err = s.GetSource(ctx, "nope")
	if err != nil || got != nil {
		t.Fatalf("missing source = %v, %v; want nil, nil", got, err)
	}
}

// WHAT: deactivating a source deactivates its items.
// WHY: sources own their content; orphaned live items would keep surfacing
// in search for a domain that was pulled.
func TestSourceDeactivationCascades(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	seedSource(t, s, "s1", "a.com")
	seedItem(t, s, "i1", "s1", "https://a.com/1", "h1")

	if err := s.SetSourceActive(ctx, "s1", false); err != nil {
		t.Fatalf("SetSourceActive: %v", err)
	}
	item, err := s.GetContentItem(ctx, "i1")
	if err != nil {
		t.Fatalf("GetContentItem: %v", err)
	}
	if item.IsActive {
		t.Fatal("item should be deactivated with its source")
	}
}

// WHAT: a canonical_url conflict keeps the existing row and refreshes only
// updated_at and quality_score; a content_hash conflict is likewise benign.
// WHY: parallel workers race on the same URL; first insert wins and the
// loser must not error out of its cycle.
func TestUpsertConflictSemantics(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	seedSource(t, s, "s1", "a.com")

	first := &ContentItem{
		ID: "i1", SourceID: "s1", URL: "https://a.com/x", CanonicalURL: "https://a.com/x",
		ContentHash: "h1", Title: "original", Text: "original text", IsActive: true,
		QualityScore: 0.5,
	}
	inserted, err := s.UpsertContentItem(ctx, first)
	if err != nil || !inserted {
		t.Fatalf("first upsert = %v, %v; want true, nil", inserted, err)
	}

	// Same canonical URL from another worker, different ID and score.
	second := &ContentItem{
		ID: "i2", SourceID: "s1", URL: "https://a.com/x", CanonicalURL: "https://a.com/x",
		ContentHash: "h2", Title: "rewritten", Text: "rewritten text", IsActive: true,
		QualityScore: 0.8,
	}
	inserted, err = s.UpsertContentItem(ctx, second)
	if err != nil {
		t.Fatalf("conflicting upsert: %v", err)
	}
	if inserted {
		t.Fatal("conflicting upsert must not report a new row")
	}

	got, _ := s.GetContentByCanonicalURL(ctx, "https://a.com/x")
	if got.ID != "i1" || got.Title != "original" {
		t.Fatalf("existing row should win: %+v", got)
	}
	if got.QualityScore != 0.8 {
		t.Fatalf("quality_score should refresh, got %v", got.QualityScore)
	}

	// Same hash via a different canonical URL: swallowed, no new row.
	third := &ContentItem{
		ID: "i3", SourceID: "s1", URL: "https://a.com/y", CanonicalURL: "https://a.com/y",
		ContentHash: "h1", Title: "mirror", Text: "mirror text", IsActive: true,
	}
	inserted, err = s.UpsertContentItem(ctx, third)
	if err != nil {
		t.Fatalf("hash-conflict upsert: %v", err)
	}
	if inserted {
		t.Fatal("hash conflict must not insert")
	}
	n, _ := s.CountContentItems(ctx)
	if n != 1 {
		t.Fatalf("corpus should hold exactly 1 item, got %d", n)
	}
}

// WHAT: quality signals are append-only and unique per
// (item, kind, algo_version).
func TestSignalsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	seedSource(t, s, "s1", "a.com")
	seedItem(t, s, "i1", "s1", "https://a.com/1", "h1")

	sig := []QualitySignal{{ItemID: "i1", Kind: "freshness", Value: 0.7, Weight: 0.15, AlgoVersion: "v1"}}
	if err := s.InsertSignals(ctx, sig); err != nil {
		t.Fatalf("InsertSignals: %v", err)
	}
	sig[0].Value = 0.2
	if err := s.InsertSignals(ctx, sig); err != nil {
		t.Fatalf("re-insert: %v", err)
	}

	got, err := s.SignalsForItem(ctx, "i1")
	if err != nil {
		t.Fatalf("SignalsForItem: %v", err)
	}
	if len(got) != 1 || got[0].Value != 0.7 {
		t.Fatalf("signal not append-only: %+v", got)
	}
}

// WHAT: a terminal job cannot regress to running.
func TestJobStatusNeverRegresses(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	job := &IngestionJob{ID: "j1", Kind: "feed"}
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if err := s.StartJob(ctx, "j1"); err != nil {
		t.Fatalf("StartJob: %v", err)
	}
	if err := s.CompleteJob(ctx, "j1", JobCompleted, 10, 10, 8, 2, ""); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}
	if err := s.StartJob(ctx, "j1"); err == nil {
		t.Fatal("restarting a completed job should fail")
	}
}

// WHAT: WindowCounts derives monotone counts: count_1h <= count_6h <= count_24h.
func TestWindowCountsMonotone(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now()

	var mentions []Mention
	add := func(age time.Duration, n int) {
		for i := 0; i < n; i++ {
			mentions = append(mentions, Mention{
				TermNorm: "lakers trade", SportsContext: "basketball",
				SeenAt: now.Add(-age).UnixMilli(),
			})
		}
	}
	add(30*time.Minute, 5)
	add(3*time.Hour, 4)
	add(12*time.Hour, 3)
	add(30*time.Hour, 9) // outside every window

	if err := s.InsertMentions(ctx, mentions); err != nil {
		t.Fatalf("InsertMentions: %v", err)
	}

	counts, err := s.WindowCounts(ctx, now)
	if err != nil {
		t.Fatalf("WindowCounts: %v", err)
	}
	got := counts["lakers trade"]
	if got == nil {
		t.Fatal("term missing from window counts")
	}
	if got.Count1h != 5 || got.Count6h != 9 || got.Count24h != 12 {
		t.Fatalf("counts = %d/%d/%d, want 5/9/12", got.Count1h, got.Count6h, got.Count24h)
	}
	if got.Count1h > got.Count6h || got.Count6h > got.Count24h {
		t.Fatal("window counts must be monotone")
	}
	if got.SportsContext != "basketball" {
		t.Fatalf("sports context = %q", got.SportsContext)
	}
}

// WHAT: error rate counts 5xx and transport errors, not 4xx.
func TestSourceErrorRate(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	seedSource(t, s, "s1", "a.com")

	entries := []FetchLogEntry{
		{SourceID: "s1", URL: "u1", Status: 200},
		{SourceID: "s1", URL: "u2", Status: 404},
		{SourceID: "s1", URL: "u3", Status: 500},
		{SourceID: "s1", URL: "u4", Status: 0, Error: "dial timeout"},
	}
	for i := range entries {
		if err := s.AppendFetchLog(ctx, &entries[i]); err != nil {
			t.Fatalf("AppendFetchLog: %v", err)
		}
	}

	rate, total, err := s.SourceErrorRate(ctx, "s1", time.Hour)
	if err != nil {
		t.Fatalf("SourceErrorRate: %v", err)
	}
	if total != 4 || rate != 0.5 {
		t.Fatalf("rate = %v over %d, want 0.5 over 4", rate, total)
	}

	// No traffic → rate 0, success 1.
	rate, total, _ = s.SourceErrorRate(ctx, "quiet", time.Hour)
	if rate != 0 || total != 0 {
		t.Fatalf("quiet source rate = %v/%d", rate, total)
	}
	succ, _ := s.SourceSuccessRate(ctx, "quiet", time.Hour)
	if succ != 1.0 {
		t.Fatalf("quiet source success = %v", succ)
	}
}

// WHAT: trending term upsert round-trip and cooldown suppression.
func TestTrendingTermState(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	term := &TrendingTerm{
		Term: "lakers trade", TermNorm: "lakers trade", TermType: "phrase",
		Count1h: 40, Count6h: 44, Count24h: 64, BurstRatio: 8.4,
		TrendScore: 0.82, IsTrending: true, SportsContext: "basketball",
		LastSeenAt: time.Now().UnixMilli(),
	}
	if err := s.UpsertTrendingTerm(ctx, term); err != nil {
		t.Fatalf("UpsertTrendingTerm: %v", err)
	}

	list, err := s.ListTrending(ctx, 10)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListTrending = %d terms, %v", len(list), err)
	}

	until := time.Now().Add(2 * time.Hour)
	if err := s.SetTermCooldown(ctx, "lakers trade", until); err != nil {
		t.Fatalf("SetTermCooldown: %v", err)
	}
	list, _ = s.ListTrending(ctx, 10)
	if len(list) != 0 {
		t.Fatal("cooled-down term must leave the trending list")
	}
	got, _ := s.GetTrendingTerm(ctx, "lakers trade")
	if got.CooldownUntil != until.UnixMilli() {
		t.Fatalf("cooldown_until = %d", got.CooldownUntil)
	}
}
