// Package store is the data access layer for the content pipeline: sources,
// content items, quality signals, ingestion jobs, term mentions, trending
// state and the fetch log, all in one SQLite database.
package store

import (
	"database/sql"
	"encoding/json"
)

// Store wraps the pipeline database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection and
// applies the schema.
func NewStore(db *sql.DB) (*Store, error) {
	if err := ApplySchema(db); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// jsonList encodes a string slice as JSON TEXT, never empty.
func jsonList(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// jsonMap encodes a string-list map as JSON TEXT, never empty.
func jsonMap(v map[string][]string) string {
	if len(v) == 0 {
		return "{}"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func decodeList(s string) []string {
	var out []string
	json.Unmarshal([]byte(s), &out)
	return out
}

func decodeMap(s string) map[string][]string {
	var out map[string][]string
	json.Unmarshal([]byte(s), &out)
	return out
}

// nullMilli maps 0 to NULL for optional timestamp columns.
func nullMilli(ms int64) any {
	if ms == 0 {
		return nil
	}
	return ms
}

func milli(v sql.NullInt64) int64 {
	if !v.Valid {
		return 0
	}
	return v.Int64
}
