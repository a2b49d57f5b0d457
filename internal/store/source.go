package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/sportwire/dbopen"
)

// ErrDuplicateSource is returned when a source's domain is already
// registered.
var ErrDuplicateSource = errors.New("store: duplicate source domain")

const sourceCols = `id, domain, name, base_url, kind, is_active, tier,
	reputation, success_rate, error_rate, consecutive_failures,
	rss_url, sitemap_url, search_queries,
	last_crawled_root_at, last_crawled_sitemap_at, last_crawled_feed_at,
	created_at, updated_at`

// InsertSource adds a new source. Zero-valued fields receive defaults.
func (s *Store) InsertSource(ctx context.Context, src *Source) error {
	now := time.Now().UnixMilli()
	if src.CreatedAt == 0 {
		src.CreatedAt = now
	}
	if src.UpdatedAt == 0 {
		src.UpdatedAt = now
	}
	if src.Kind == "" {
		src.Kind = "html"
	}
	if src.Tier == 0 {
		src.Tier = 3
	}
	if src.Reputation == 0 {
		src.Reputation = 0.5
	}
	if src.SuccessRate == 0 {
		src.SuccessRate = 1.0
	}

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO sources (`+sourceCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.Domain, src.Name, src.BaseURL, src.Kind, src.IsActive, src.Tier,
		src.Reputation, src.SuccessRate, src.ErrorRate, src.ConsecutiveFailures,
		src.RSSURL, src.SitemapURL, jsonList(src.SearchQueries),
		nullMilli(src.LastCrawledRootAt), nullMilli(src.LastCrawledSitemapAt), nullMilli(src.LastCrawledFeedAt),
		src.CreatedAt, src.UpdatedAt,
	)
	if err != nil && strings.Contains(err.Error(), "sources.domain") {
		return fmt.Errorf("%w: %s", ErrDuplicateSource, src.Domain)
	}
	return err
}

// GetSource retrieves a source by ID, or nil when absent.
func (s *Store) GetSource(ctx context.Context, id string) (*Source, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+sourceCols+` FROM sources WHERE id = ?`, id)
	return scanSource(row)
}

// GetSourceByDomain retrieves a source by its unique domain, or nil.
func (s *Store) GetSourceByDomain(ctx context.Context, domain string) (*Source, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+sourceCols+` FROM sources WHERE domain = ?`, domain)
	return scanSource(row)
}

// ListActiveSources returns active sources ordered by tier then reputation,
// best crawl candidates first.
func (s *Store) ListActiveSources(ctx context.Context) ([]*Source, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+sourceCols+` FROM sources
		WHERE is_active = 1
		ORDER BY tier ASC, reputation DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSources(rows)
}

// ListSources returns all sources, newest first.
func (s *Store) ListSources(ctx context.Context) ([]*Source, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+sourceCols+` FROM sources ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSources(rows)
}

// UpdateSourceReputation persists the reputation manager's output for one
// source.
func (s *Store) UpdateSourceReputation(ctx context.Context, id string, reputation float64, tier int, successRate, errorRate float64) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE sources SET reputation=?, tier=?, success_rate=?, error_rate=?, updated_at=?
		WHERE id=?`,
		reputation, tier, successRate, errorRate, time.Now().UnixMilli(), id)
	return err
}

// SetSourceActive flips the active flag. Deactivating a source deactivates
// its items: sources own their content. Runs under a busy-retrying
// transaction since parallel workers share the WAL database.
func (s *Store) SetSourceActive(ctx context.Context, id string, active bool) error {
	now := time.Now().UnixMilli()
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE sources SET is_active=?, updated_at=? WHERE id=?`, active, now, id); err != nil {
			return err
		}
		if !active {
			if _, err := tx.ExecContext(ctx,
				`UPDATE content_items SET is_active=0, updated_at=? WHERE source_id=?`, now, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// RecordSourceFailure bumps the consecutive-failure counter and returns the
// new count so the caller can decide on deactivation.
func (s *Store) RecordSourceFailure(ctx context.Context, id string) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx,
		`UPDATE sources SET consecutive_failures = consecutive_failures + 1, updated_at = ?
		WHERE id = ? RETURNING consecutive_failures`,
		time.Now().UnixMilli(), id).Scan(&count)
	return count, err
}

// RecordSourceSuccess clears the consecutive-failure counter and stamps the
// crawl timestamp for the given discovery kind (root, sitemap, feed).
func (s *Store) RecordSourceSuccess(ctx context.Context, id, kind string) error {
	col := "last_crawled_root_at"
	switch kind {
	case "sitemap":
		col = "last_crawled_sitemap_at"
	case "feed":
		col = "last_crawled_feed_at"
	}
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE sources SET consecutive_failures = 0, `+col+` = ?, updated_at = ? WHERE id = ?`,
		now, now, id)
	return err
}

// RecentQualityScores returns the last n quality scores of a source's
// items, newest first. Feeds the reputation manager.
func (s *Store) RecentQualityScores(ctx context.Context, sourceID string, n int) ([]float64, error) {
	if n <= 0 {
		n = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT quality_score FROM content_items
		WHERE source_id = ? ORDER BY created_at DESC LIMIT ?`, sourceID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		scores = append(scores, v)
	}
	return scores, rows.Err()
}

func scanSource(row *sql.Row) (*Source, error) {
	var src Source
	var queries string
	var root, sitemap, feed sql.NullInt64
	err := row.Scan(&src.ID, &src.Domain, &src.Name, &src.BaseURL, &src.Kind,
		&src.IsActive, &src.Tier, &src.Reputation, &src.SuccessRate, &src.ErrorRate,
		&src.ConsecutiveFailures, &src.RSSURL, &src.SitemapURL, &queries,
		&root, &sitemap, &feed, &src.CreatedAt, &src.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan source: %w", err)
	}
	src.SearchQueries = decodeList(queries)
	src.LastCrawledRootAt = milli(root)
	src.LastCrawledSitemapAt = milli(sitemap)
	src.LastCrawledFeedAt = milli(feed)
	return &src, nil
}

func scanSources(rows *sql.Rows) ([]*Source, error) {
	var out []*Source
	for rows.Next() {
		var src Source
		var queries string
		var root, sitemap, feed sql.NullInt64
		err := rows.Scan(&src.ID, &src.Domain, &src.Name, &src.BaseURL, &src.Kind,
			&src.IsActive, &src.Tier, &src.Reputation, &src.SuccessRate, &src.ErrorRate,
			&src.ConsecutiveFailures, &src.RSSURL, &src.SitemapURL, &queries,
			&root, &sitemap, &feed, &src.CreatedAt, &src.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		src.SearchQueries = decodeList(queries)
		src.LastCrawledRootAt = milli(root)
		src.LastCrawledSitemapAt = milli(sitemap)
		src.LastCrawledFeedAt = milli(feed)
		out = append(out, &src)
	}
	return out, rows.Err()
}
