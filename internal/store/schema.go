package store

import "database/sql"

// Schema is the complete pipeline schema. All timestamps are UnixMilli
// INTEGER. List-valued fields (keywords, entities, related terms) are JSON
// TEXT.
const Schema = `
-- Origin domains
CREATE TABLE IF NOT EXISTS sources (
    id                      TEXT PRIMARY KEY,
    domain                  TEXT NOT NULL UNIQUE,
    name                    TEXT NOT NULL DEFAULT '',
    base_url                TEXT NOT NULL DEFAULT '',
    kind                    TEXT NOT NULL DEFAULT 'html',
    is_active               INTEGER NOT NULL DEFAULT 1,
    tier                    INTEGER NOT NULL DEFAULT 3,
    reputation              REAL NOT NULL DEFAULT 0.5,
    success_rate            REAL NOT NULL DEFAULT 1.0,
    error_rate              REAL NOT NULL DEFAULT 0.0,
    consecutive_failures    INTEGER NOT NULL DEFAULT 0,
    rss_url                 TEXT NOT NULL DEFAULT '',
    sitemap_url             TEXT NOT NULL DEFAULT '',
    search_queries          TEXT NOT NULL DEFAULT '[]',
    last_crawled_root_at    INTEGER,
    last_crawled_sitemap_at INTEGER,
    last_crawled_feed_at    INTEGER,
    created_at              INTEGER NOT NULL,
    updated_at              INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sources_active ON sources(is_active, tier);

-- Accepted articles
CREATE TABLE IF NOT EXISTS content_items (
    id                TEXT PRIMARY KEY,
    source_id         TEXT NOT NULL REFERENCES sources(id),
    url               TEXT NOT NULL,
    canonical_url     TEXT NOT NULL UNIQUE,
    content_hash      TEXT NOT NULL UNIQUE,
    title             TEXT NOT NULL,
    text              TEXT NOT NULL,
    markdown          TEXT NOT NULL DEFAULT '',
    byline            TEXT NOT NULL DEFAULT '',
    summary           TEXT NOT NULL DEFAULT '',
    published_at      INTEGER,
    language          TEXT NOT NULL DEFAULT '',
    word_count        INTEGER NOT NULL DEFAULT 0,
    image_url         TEXT NOT NULL DEFAULT '',
    sports_keywords   TEXT NOT NULL DEFAULT '[]',
    entities          TEXT NOT NULL DEFAULT '{}',
    content_type      TEXT NOT NULL DEFAULT 'general',
    extraction_status TEXT NOT NULL DEFAULT 'success',
    extraction_method TEXT NOT NULL DEFAULT '',
    quality_score     REAL NOT NULL DEFAULT 0,
    gate_reason       TEXT NOT NULL DEFAULT '',
    is_active         INTEGER NOT NULL DEFAULT 1,
    is_duplicate      INTEGER NOT NULL DEFAULT 0,
    is_spam           INTEGER NOT NULL DEFAULT 0,
    created_at        INTEGER NOT NULL,
    updated_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_content_source ON content_items(source_id, is_active);
CREATE INDEX IF NOT EXISTS idx_content_published ON content_items(published_at DESC);
CREATE INDEX IF NOT EXISTS idx_content_quality ON content_items(quality_score DESC);

-- FTS5 on content (title + summary + text)
CREATE VIRTUAL TABLE IF NOT EXISTS content_fts USING fts5(
    title, summary, text, content='content_items', content_rowid='rowid',
    tokenize='unicode61 remove_diacritics 2'
);

CREATE TRIGGER IF NOT EXISTS content_ai AFTER INSERT ON content_items BEGIN
    INSERT INTO content_fts(rowid, title, summary, text) VALUES (new.rowid, new.title, new.summary, new.text);
END;
CREATE TRIGGER IF NOT EXISTS content_ad AFTER DELETE ON content_items BEGIN
    INSERT INTO content_fts(content_fts, rowid, title, summary, text) VALUES('delete', old.rowid, old.title, old.summary, old.text);
END;
CREATE TRIGGER IF NOT EXISTS content_au AFTER UPDATE ON content_items BEGIN
    INSERT INTO content_fts(content_fts, rowid, title, summary, text) VALUES('delete', old.rowid, old.title, old.summary, old.text);
    INSERT INTO content_fts(rowid, title, summary, text) VALUES (new.rowid, new.title, new.summary, new.text);
END;

-- Per-item quality signals, append-only
CREATE TABLE IF NOT EXISTS quality_signals (
    item_id      TEXT NOT NULL REFERENCES content_items(id) ON DELETE CASCADE,
    kind         TEXT NOT NULL,
    value        REAL NOT NULL,
    weight       REAL NOT NULL,
    algo_version TEXT NOT NULL,
    computed_at  INTEGER NOT NULL,
    UNIQUE(item_id, kind, algo_version)
);

-- Discovery/crawl batches
CREATE TABLE IF NOT EXISTS ingestion_jobs (
    id           TEXT PRIMARY KEY,
    source_id    TEXT NOT NULL DEFAULT '',
    kind         TEXT NOT NULL,
    status       TEXT NOT NULL DEFAULT 'pending',
    discovered   INTEGER NOT NULL DEFAULT 0,
    processed    INTEGER NOT NULL DEFAULT 0,
    successful   INTEGER NOT NULL DEFAULT 0,
    failed       INTEGER NOT NULL DEFAULT 0,
    started_at   INTEGER,
    completed_at INTEGER,
    summary      TEXT NOT NULL DEFAULT '',
    created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON ingestion_jobs(status, created_at DESC);

-- Raw term mention stream; trending counts are re-derived from it
CREATE TABLE IF NOT EXISTS term_mentions (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    term_norm      TEXT NOT NULL,
    term_type      TEXT NOT NULL DEFAULT 'keyword',
    sports_context TEXT NOT NULL DEFAULT '',
    item_id        TEXT NOT NULL DEFAULT '',
    seen_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mentions_term ON term_mentions(term_norm, seen_at DESC);
CREATE INDEX IF NOT EXISTS idx_mentions_time ON term_mentions(seen_at);

-- Windowed trending state per normalised term
CREATE TABLE IF NOT EXISTS trending_terms (
    term           TEXT NOT NULL,
    term_norm      TEXT PRIMARY KEY,
    term_type      TEXT NOT NULL DEFAULT 'keyword',
    count_1h       INTEGER NOT NULL DEFAULT 0,
    count_6h       INTEGER NOT NULL DEFAULT 0,
    count_24h      INTEGER NOT NULL DEFAULT 0,
    burst_ratio    REAL NOT NULL DEFAULT 0,
    trend_score    REAL NOT NULL DEFAULT 0,
    is_trending    INTEGER NOT NULL DEFAULT 0,
    trend_start_at INTEGER,
    trend_peak_at  INTEGER,
    cooldown_until INTEGER NOT NULL DEFAULT 0,
    related_terms  TEXT NOT NULL DEFAULT '[]',
    sports_context TEXT NOT NULL DEFAULT '',
    last_seen_at   INTEGER NOT NULL DEFAULT 0,
    updated_at     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_trending_score ON trending_terms(is_trending, trend_score DESC);

-- Fetch log: source error rates and ops queries
CREATE TABLE IF NOT EXISTS fetch_log (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    source_id   TEXT NOT NULL DEFAULT '',
    url         TEXT NOT NULL,
    status      INTEGER NOT NULL DEFAULT 0,
    bytes       INTEGER NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    proxy       TEXT NOT NULL DEFAULT '',
    error       TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fetch_log_source ON fetch_log(source_id, created_at DESC);

-- Prioritised discovery query FIFO
CREATE TABLE IF NOT EXISTS discovery_queries (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    term_norm   TEXT NOT NULL DEFAULT '',
    query       TEXT NOT NULL,
    priority    REAL NOT NULL DEFAULT 0,
    enqueued_at INTEGER NOT NULL,
    claimed_at  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_queries_open ON discovery_queries(claimed_at, priority DESC, enqueued_at);
`

// ApplySchema creates all tables, indexes and triggers. Idempotent.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
