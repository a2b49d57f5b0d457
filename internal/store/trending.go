package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/sportwire/dbopen"
)

// InsertMentions appends raw term sightings. The trending detector never
// trusts in-memory counters: it re-derives window counts from this stream,
// so a lost batch only delays detection, never corrupts it.
func (s *Store) InsertMentions(ctx context.Context, mentions []Mention) error {
	if len(mentions) == 0 {
		return nil
	}
	now := time.Now().UnixMilli()
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		for _, m := range mentions {
			if m.SeenAt == 0 {
				m.SeenAt = now
			}
			if m.TermType == "" {
				m.TermType = "keyword"
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO term_mentions (term_norm, term_type, sports_context, item_id, seen_at)
				VALUES (?, ?, ?, ?, ?)`,
				m.TermNorm, m.TermType, m.SportsContext, m.ItemID, m.SeenAt); err != nil {
				return err
			}
		}
		return nil
	})
}

// WindowCounts re-derives 1h/6h/24h counts and latest metadata per term
// from the mention stream, relative to now.
func (s *Store) WindowCounts(ctx context.Context, now time.Time) (map[string]*TrendingTerm, error) {
	nowMs := now.UnixMilli()
	rows, err := s.DB.QueryContext(ctx,
		`SELECT term_norm,
			MAX(term_type),
			MAX(sports_context),
			SUM(CASE WHEN seen_at > ? THEN 1 ELSE 0 END),
			SUM(CASE WHEN seen_at > ? THEN 1 ELSE 0 END),
			COUNT(*),
			MAX(seen_at)
		FROM term_mentions
		WHERE seen_at > ?
		GROUP BY term_norm`,
		nowMs-time.Hour.Milliseconds(),
		nowMs-(6*time.Hour).Milliseconds(),
		nowMs-(24*time.Hour).Milliseconds())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*TrendingTerm)
	for rows.Next() {
		var t TrendingTerm
		if err := rows.Scan(&t.TermNorm, &t.TermType, &t.SportsContext,
			&t.Count1h, &t.Count6h, &t.Count24h, &t.LastSeenAt); err != nil {
			return nil, err
		}
		t.Term = t.TermNorm
		out[t.TermNorm] = &t
	}
	return out, rows.Err()
}

// PruneMentions drops mentions older than the retention horizon.
func (s *Store) PruneMentions(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM term_mentions WHERE seen_at <= ?`, olderThan.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const trendingCols = `term, term_norm, term_type, count_1h, count_6h, count_24h,
	burst_ratio, trend_score, is_trending, trend_start_at, trend_peak_at,
	cooldown_until, related_terms, sports_context, last_seen_at, updated_at`

// UpsertTrendingTerm writes the detector's state for one term.
func (s *Store) UpsertTrendingTerm(ctx context.Context, t *TrendingTerm) error {
	t.UpdatedAt = time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO trending_terms (`+trendingCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(term_norm) DO UPDATE SET
			term = excluded.term,
			term_type = excluded.term_type,
			count_1h = excluded.count_1h,
			count_6h = excluded.count_6h,
			count_24h = excluded.count_24h,
			burst_ratio = excluded.burst_ratio,
			trend_score = excluded.trend_score,
			is_trending = excluded.is_trending,
			trend_start_at = excluded.trend_start_at,
			trend_peak_at = excluded.trend_peak_at,
			cooldown_until = excluded.cooldown_until,
			related_terms = excluded.related_terms,
			sports_context = excluded.sports_context,
			last_seen_at = excluded.last_seen_at,
			updated_at = excluded.updated_at`,
		t.Term, t.TermNorm, t.TermType, t.Count1h, t.Count6h, t.Count24h,
		t.BurstRatio, t.TrendScore, t.IsTrending,
		nullMilli(t.TrendStartAt), nullMilli(t.TrendPeakAt),
		t.CooldownUntil, jsonList(t.RelatedTerms), t.SportsContext,
		t.LastSeenAt, t.UpdatedAt)
	return err
}

// GetTrendingTerm retrieves detector state for one normalised term, or nil.
func (s *Store) GetTrendingTerm(ctx context.Context, termNorm string) (*TrendingTerm, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+trendingCols+` FROM trending_terms WHERE term_norm = ?`, termNorm)
	t, err := scanTrendingRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// ListTrending returns currently trending terms, best score first.
func (s *Store) ListTrending(ctx context.Context, limit int) ([]*TrendingTerm, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+trendingCols+` FROM trending_terms
		WHERE is_trending = 1 ORDER BY trend_score DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*TrendingTerm
	for rows.Next() {
		t, err := scanTrendingRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetTermCooldown suppresses a term until the given time. The detector
// clears is_trending for the cooldown span.
func (s *Store) SetTermCooldown(ctx context.Context, termNorm string, until time.Time) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE trending_terms SET cooldown_until = ?, is_trending = 0, updated_at = ?
		WHERE term_norm = ?`,
		until.UnixMilli(), time.Now().UnixMilli(), termNorm)
	return err
}

func scanTrendingRow(scan func(...any) error) (*TrendingTerm, error) {
	var t TrendingTerm
	var related string
	var start, peak sql.NullInt64
	err := scan(&t.Term, &t.TermNorm, &t.TermType, &t.Count1h, &t.Count6h, &t.Count24h,
		&t.BurstRatio, &t.TrendScore, &t.IsTrending, &start, &peak,
		&t.CooldownUntil, &related, &t.SportsContext, &t.LastSeenAt, &t.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan trending term: %w", err)
	}
	t.TrendStartAt = milli(start)
	t.TrendPeakAt = milli(peak)
	t.RelatedTerms = decodeList(related)
	return &t, nil
}
