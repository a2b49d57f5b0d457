package store

import (
	"context"
	"time"
)

// AppendFetchLog records one fetch outcome.
func (s *Store) AppendFetchLog(ctx context.Context, e *FetchLogEntry) error {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UnixMilli()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO fetch_log (source_id, url, status, bytes, duration_ms, proxy, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SourceID, e.URL, e.Status, e.Bytes, e.DurationMs, e.Proxy, e.Error, e.CreatedAt)
	return err
}

// SourceErrorRate measures a source's error rate over the given window:
// transport errors and 5xx count against it, 4xx does not. Returns the
// rate and total fetch count; zero fetches yield rate 0.
func (s *Store) SourceErrorRate(ctx context.Context, sourceID string, window time.Duration) (rate float64, total int, err error) {
	since := time.Now().Add(-window).UnixMilli()
	var failed int
	err = s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status >= 500 OR (status = 0 AND error != '') THEN 1 ELSE 0 END), 0)
		FROM fetch_log WHERE source_id = ? AND created_at > ?`,
		sourceID, since).Scan(&total, &failed)
	if err != nil || total == 0 {
		return 0, total, err
	}
	return float64(failed) / float64(total), total, nil
}

// SourceSuccessRate measures the share of 2xx/3xx fetches over the window.
// Zero fetches yield 1.0: an uncrawled source is not presumed broken.
func (s *Store) SourceSuccessRate(ctx context.Context, sourceID string, window time.Duration) (float64, error) {
	since := time.Now().Add(-window).UnixMilli()
	var total, ok int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status >= 200 AND status < 400 THEN 1 ELSE 0 END), 0)
		FROM fetch_log WHERE source_id = ? AND created_at > ?`,
		sourceID, since).Scan(&total, &ok)
	if err != nil || total == 0 {
		return 1.0, err
	}
	return float64(ok) / float64(total), nil
}

// PruneFetchLog drops log rows older than the retention horizon.
func (s *Store) PruneFetchLog(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM fetch_log WHERE created_at <= ?`, olderThan.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
