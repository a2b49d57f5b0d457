package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const contentCols = `id, source_id, url, canonical_url, content_hash, title, text,
	markdown, byline, summary, published_at, language, word_count, image_url,
	sports_keywords, entities, content_type, extraction_status, extraction_method,
	quality_score, gate_reason, is_active, is_duplicate, is_spam, created_at, updated_at`

// UpsertContentItem inserts an item keyed by canonical_url. A conflict on
// canonical_url is benign (another worker won the race): the existing row
// is kept and only updated_at and quality_score are refreshed. A conflict
// on content_hash (same body under a different canonical URL) is likewise
// swallowed. Reports whether a new row was created.
func (s *Store) UpsertContentItem(ctx context.Context, item *ContentItem) (inserted bool, err error) {
	now := time.Now().UnixMilli()
	if item.CreatedAt == 0 {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	if item.ContentType == "" {
		item.ContentType = "general"
	}
	if item.ExtractionStatus == "" {
		item.ExtractionStatus = "success"
	}

	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO content_items (`+contentCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(canonical_url) DO UPDATE SET
			updated_at = excluded.updated_at,
			quality_score = excluded.quality_score`,
		item.ID, item.SourceID, item.URL, item.CanonicalURL, item.ContentHash,
		item.Title, item.Text, item.Markdown, item.Byline, item.Summary,
		nullMilli(item.PublishedAt), item.Language, item.WordCount, item.ImageURL,
		jsonList(item.SportsKeywords), jsonMap(item.Entities), item.ContentType,
		item.ExtractionStatus, item.ExtractionMethod, item.QualityScore, item.GateReason,
		item.IsActive, item.IsDuplicate, item.IsSpam, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		// content_hash collision: same body reached via a different
		// canonical URL. First insert wins.
		if strings.Contains(err.Error(), "content_items.content_hash") {
			_, uerr := s.DB.ExecContext(ctx,
				`UPDATE content_items SET updated_at = ?, quality_score = ? WHERE content_hash = ?`,
				item.UpdatedAt, item.QualityScore, item.ContentHash)
			return false, uerr
		}
		return false, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false, nil
	}
	// The upsert clause fires on canonical_url conflicts too; detect a
	// pre-existing row by comparing IDs.
	var id string
	if err := s.DB.QueryRowContext(ctx,
		`SELECT id FROM content_items WHERE canonical_url = ?`, item.CanonicalURL).Scan(&id); err != nil {
		return false, err
	}
	return id == item.ID, nil
}

// GetContentItem retrieves an item by ID, or nil.
func (s *Store) GetContentItem(ctx context.Context, id string) (*ContentItem, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+contentCols+` FROM content_items WHERE id = ?`, id)
	return scanContentItem(row)
}

// GetContentByCanonicalURL retrieves an item by canonical URL, or nil.
func (s *Store) GetContentByCanonicalURL(ctx context.Context, canonicalURL string) (*ContentItem, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+contentCols+` FROM content_items WHERE canonical_url = ?`, canonicalURL)
	return scanContentItem(row)
}

// HasContentHash reports whether any item already carries the hash.
func (s *Store) HasContentHash(ctx context.Context, hash string) (bool, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM content_items WHERE content_hash = ?`, hash).Scan(&n)
	return n > 0, err
}

// CountContentItems returns the number of active items.
func (s *Store) CountContentItems(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM content_items WHERE is_active = 1`).Scan(&n)
	return n, err
}

// RecentContentHashes returns the newest n content hashes with their title
// and text, oldest first, for warming the near-duplicate index at startup.
func (s *Store) RecentContentHashes(ctx context.Context, n int) ([][3]string, error) {
	if n <= 0 {
		n = 1000
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT content_hash, title, text FROM (
			SELECT content_hash, title, text, created_at FROM content_items
			ORDER BY created_at DESC LIMIT ?
		) ORDER BY created_at ASC`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][3]string
	for rows.Next() {
		var h, title, text string
		if err := rows.Scan(&h, &title, &text); err != nil {
			return nil, err
		}
		out = append(out, [3]string{h, title, text})
	}
	return out, rows.Err()
}

// DeleteContentItem hard-deletes an item and its signals. Operator GDPR
// path only; normal lifecycle never deletes.
func (s *Store) DeleteContentItem(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM content_items WHERE id = ?`, id)
	return err
}

func scanContentItem(row *sql.Row) (*ContentItem, error) {
	var it ContentItem
	var keywords, entities string
	var published sql.NullInt64
	err := row.Scan(&it.ID, &it.SourceID, &it.URL, &it.CanonicalURL, &it.ContentHash,
		&it.Title, &it.Text, &it.Markdown, &it.Byline, &it.Summary,
		&published, &it.Language, &it.WordCount, &it.ImageURL,
		&keywords, &entities, &it.ContentType, &it.ExtractionStatus, &it.ExtractionMethod,
		&it.QualityScore, &it.GateReason, &it.IsActive, &it.IsDuplicate, &it.IsSpam,
		&it.CreatedAt, &it.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan content item: %w", err)
	}
	it.PublishedAt = milli(published)
	it.SportsKeywords = decodeList(keywords)
	it.Entities = decodeMap(entities)
	return &it, nil
}

// ScanContentItemRows scans one row from a query that selected the full
// content column list. The search engine shares it for its raw queries.
func ScanContentItemRows(rows *sql.Rows) (*ContentItem, error) {
	var it ContentItem
	var keywords, entities string
	var published sql.NullInt64
	err := rows.Scan(&it.ID, &it.SourceID, &it.URL, &it.CanonicalURL, &it.ContentHash,
		&it.Title, &it.Text, &it.Markdown, &it.Byline, &it.Summary,
		&published, &it.Language, &it.WordCount, &it.ImageURL,
		&keywords, &entities, &it.ContentType, &it.ExtractionStatus, &it.ExtractionMethod,
		&it.QualityScore, &it.GateReason, &it.IsActive, &it.IsDuplicate, &it.IsSpam,
		&it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan content item row: %w", err)
	}
	it.PublishedAt = milli(published)
	it.SportsKeywords = decodeList(keywords)
	it.Entities = decodeMap(entities)
	return &it, nil
}

// ContentCols exposes the canonical column list for raw content queries.
func ContentCols() string { return contentCols }
