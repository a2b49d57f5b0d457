package trending

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/hazyhaar/sportwire/internal/store"
)

// Config tunes burst detection.
type Config struct {
	MinBurstRatio  float64       `yaml:"min_burst_ratio"`
	MinTrendScore  float64       `yaml:"min_trend_score"`
	MinOccurrences int           `yaml:"min_occurrences"`
	CooldownHours  float64       `yaml:"cooldown_hours"`
	MaxTerms       int           `yaml:"max_terms"`
	Retention      time.Duration `yaml:"retention"`
}

func (c *Config) defaults() {
	if c.MinBurstRatio == 0 {
		c.MinBurstRatio = 2.0
	}
	if c.MinTrendScore == 0 {
		c.MinTrendScore = 0.5
	}
	if c.MinOccurrences == 0 {
		c.MinOccurrences = 3
	}
	if c.CooldownHours == 0 {
		c.CooldownHours = 4
	}
	if c.MaxTerms == 0 {
		c.MaxTerms = 10
	}
	if c.Retention == 0 {
		c.Retention = 25 * time.Hour
	}
}

// Detector re-derives windowed counts from raw mentions each pass and
// updates trending_terms. State lives in the store, not in memory, so
// detection survives restarts and stays consistent across workers.
type Detector struct {
	store *store.Store
	cfg   Config
	log   *slog.Logger
	now   func() time.Time
}

func NewDetector(st *store.Store, cfg Config, log *slog.Logger) *Detector {
	cfg.defaults()
	if log == nil {
		log = slog.Default()
	}
	return &Detector{
		store: st,
		cfg:   cfg,
		log:   log.With("component", "trending"),
		now:   time.Now,
	}
}

// SetNow injects a clock for tests.
func (d *Detector) SetNow(now func() time.Time) { d.now = now }

// BurstRatio compares the recent rate against the 24h baseline rate. The
// 2h count is synthesised as min(2*count_1h, count_6h): doubling the last
// hour assumes the burst continues, the 6h count caps the extrapolation.
func BurstRatio(count1h, count6h, count24h int) float64 {
	if count24h == 0 {
		return 0
	}
	count2h := math.Min(float64(2*count1h), float64(count6h))
	recentRate := count2h / 2
	baseRate := float64(count24h) / 24
	if baseRate == 0 {
		return 0
	}
	return recentRate / baseRate
}

// TrendScore blends burst, volume, recency and sports context into [0,1].
func TrendScore(burst float64, count1h int, hoursSinceSeen float64, sportsContext bool) float64 {
	score := 0.4 * math.Min(1, burst/10)
	score += 0.3 * math.Min(1, math.Log10(math.Max(1, float64(count1h)))/3)
	score += 0.2 * math.Max(0, 1-hoursSinceSeen/6)
	if sportsContext {
		score += 0.1
	}
	return score
}

// Detect runs one pass: prune stale mentions, recount windows, score every
// term and persist the updated rows. Returns the terms now trending,
// highest score first (already ordered by ListTrending).
func (d *Detector) Detect(ctx context.Context) ([]*store.TrendingTerm, error) {
	now := d.now()
	if _, err := d.store.PruneMentions(ctx, now.Add(-d.cfg.Retention)); err != nil {
		d.log.Warn("mention prune failed", "error", err)
	}

	counts, err := d.store.WindowCounts(ctx, now)
	if err != nil {
		return nil, err
	}
	for _, t := range counts {
		prev, err := d.store.GetTrendingTerm(ctx, t.TermNorm)
		if err != nil {
			return nil, err
		}

		t.BurstRatio = BurstRatio(t.Count1h, t.Count6h, t.Count24h)
		hoursSince := now.Sub(time.UnixMilli(t.LastSeenAt)).Hours()
		t.TrendScore = TrendScore(t.BurstRatio, t.Count1h, hoursSince, t.SportsContext != "")

		cooling := false
		if prev != nil {
			t.Term = prev.Term
			t.TrendStartAt = prev.TrendStartAt
			t.TrendPeakAt = prev.TrendPeakAt
			t.CooldownUntil = prev.CooldownUntil
			t.RelatedTerms = prev.RelatedTerms
			cooling = prev.CooldownUntil > now.UnixMilli()
		}

		t.IsTrending = !cooling &&
			t.BurstRatio >= d.cfg.MinBurstRatio &&
			t.TrendScore >= d.cfg.MinTrendScore &&
			t.Count1h >= d.cfg.MinOccurrences
		if t.IsTrending {
			if prev == nil || !prev.IsTrending {
				t.TrendStartAt = now.UnixMilli()
			}
			t.TrendPeakAt = now.UnixMilli()
			d.log.Info("term trending",
				"term", t.TermNorm,
				"burst", t.BurstRatio,
				"score", t.TrendScore,
				"count_1h", t.Count1h)
		}
		t.UpdatedAt = now.UnixMilli()

		if err := d.store.UpsertTrendingTerm(ctx, t); err != nil {
			return nil, err
		}
	}
	return d.store.ListTrending(ctx, d.cfg.MaxTerms)
}

// Cooldown suppresses a term after its discovery queries have been
// emitted, so one burst does not refill the queue every pass.
func (d *Detector) Cooldown(ctx context.Context, termNorm string) error {
	until := d.now().Add(time.Duration(d.cfg.CooldownHours * float64(time.Hour)))
	return d.store.SetTermCooldown(ctx, termNorm, until)
}
