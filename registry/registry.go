// Package registry implements the key-value coordination surface shared by
// workers: heartbeats, feature flags and the search result cache. It is a
// single SQLite table of TTL'd string values — no external broker.
//
// Expired entries are invisible to readers immediately and physically
// removed by PurgeExpired, which callers run on a timer.
package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Key prefixes. Everything in the kv table is namespaced by one of these.
const (
	PrefixWorker = "worker:"
	PrefixFlag   = "feature_flag:"
	PrefixSearch = "search:"
)

// Default TTLs per namespace.
const (
	WorkerTTL = 300 * time.Second
	FlagTTL   = 24 * time.Hour
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    expires_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_kv_expires ON kv(expires_at) WHERE expires_at > 0;
`

// Registry wraps the kv table. Safe for concurrent use; all mutation goes
// through single UPSERT statements.
type Registry struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a Registry and ensures its table exists.
func New(db *sql.DB) (*Registry, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("registry: apply schema: %w", err)
	}
	return &Registry{db: db, now: time.Now}, nil
}

// SetNow overrides the clock. Tests only.
func (r *Registry) SetNow(now func() time.Time) { r.now = now }

// Set stores value under key with a TTL. ttl <= 0 means no expiry.
func (r *Registry) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expires int64
	if ttl > 0 {
		expires = r.now().Add(ttl).UnixMilli()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expires)
	return err
}

// Get returns the live value for key. A missing or expired key yields
// ok = false with a nil error.
func (r *Registry) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	var expires int64
	err = r.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM kv WHERE key = ?`, key).Scan(&value, &expires)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if expires > 0 && expires <= r.now().UnixMilli() {
		return "", false, nil
	}
	return value, true, nil
}

// Delete removes a key. Missing keys are not an error.
func (r *Registry) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

// PurgeExpired physically deletes expired rows and returns how many went.
func (r *Registry) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM kv WHERE expires_at > 0 AND expires_at <= ?`, r.now().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetFlag stores a boolean feature flag with the standard flag TTL.
func (r *Registry) SetFlag(ctx context.Context, name string, on bool) error {
	v := "false"
	if on {
		v = "true"
	}
	return r.Set(ctx, PrefixFlag+name, v, FlagTTL)
}

// Flag reads a feature flag. An absent or expired flag returns the given
// default.
func (r *Registry) Flag(ctx context.Context, name string, def bool) (bool, error) {
	v, ok, err := r.Get(ctx, PrefixFlag+name)
	if err != nil || !ok {
		return def, err
	}
	return v == "true", nil
}

// prefixScan returns live (key, value) pairs under a prefix.
func (r *Registry) prefixScan(ctx context.Context, prefix string) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, value FROM kv
		WHERE key >= ? AND key < ? AND (expires_at = 0 OR expires_at > ?)`,
		prefix, prefix+"\xff", r.now().UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Workers returns the live worker heartbeats, keyed by worker ID. Entries
// whose JSON does not decode are skipped rather than failing the listing.
func (r *Registry) Workers(ctx context.Context) ([]Heartbeat, error) {
	pairs, err := r.prefixScan(ctx, PrefixWorker)
	if err != nil {
		return nil, err
	}
	beats := make([]Heartbeat, 0, len(pairs))
	for k, v := range pairs {
		var hb Heartbeat
		if err := json.Unmarshal([]byte(v), &hb); err != nil {
			continue
		}
		if hb.WorkerID == "" {
			hb.WorkerID = strings.TrimPrefix(k, PrefixWorker)
		}
		beats = append(beats, hb)
	}
	return beats, nil
}
