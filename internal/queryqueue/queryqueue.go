// Package queryqueue is the persisted FIFO of discovery queries generated
// for trending terms. Claims use an atomic UPDATE ... RETURNING over the
// highest-priority unclaimed row, so multiple workers can drain the same
// queue without handing out a query twice.
package queryqueue

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"
)

// MaxDepth caps the queue. Pushing past the cap evicts the lowest-priority
// rows first; a stale backlog of weak queries is worth less than the
// freshest burst.
const MaxDepth = 1000

// Entry is one queued discovery query.
type Entry struct {
	ID         int64
	TermNorm   string
	Query      string
	Priority   float64
	EnqueuedAt time.Time
}

// Queue wraps the discovery_queries table.
type Queue struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

func New(db *sql.DB, log *slog.Logger) *Queue {
	if log == nil {
		log = slog.Default()
	}
	return &Queue{db: db, log: log.With("component", "queryqueue"), now: time.Now}
}

// SetNow injects a clock for tests.
func (q *Queue) SetNow(now func() time.Time) { q.now = now }

// Push enqueues queries, skipping any whose text is already waiting, then
// trims the queue back under MaxDepth by dropping the lowest-priority
// rows.
func (q *Queue) Push(ctx context.Context, termNorm, query string, priority float64) error {
	now := q.now().UnixMilli()
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO discovery_queries (term_norm, query, priority, enqueued_at)
		SELECT ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM discovery_queries WHERE query = ? AND claimed_at = 0
		)`,
		termNorm, query, priority, now, query)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	return q.trim(ctx)
}

func (q *Queue) trim(ctx context.Context) error {
	res, err := q.db.ExecContext(ctx, `
		DELETE FROM discovery_queries
		WHERE claimed_at = 0 AND id IN (
			SELECT id FROM discovery_queries
			WHERE claimed_at = 0
			ORDER BY priority ASC, enqueued_at ASC
			LIMIT max(0, (SELECT COUNT(*) FROM discovery_queries WHERE claimed_at = 0) - ?)
		)`, MaxDepth)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		q.log.Debug("queue trimmed", "dropped", n)
	}
	return nil
}

// Claim atomically takes the best pending query: highest priority, oldest
// first within a priority. Returns nil, nil on an empty queue.
func (q *Queue) Claim(ctx context.Context) (*Entry, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE discovery_queries
		SET claimed_at = ?
		WHERE id = (
			SELECT id FROM discovery_queries
			WHERE claimed_at = 0
			ORDER BY priority DESC, enqueued_at ASC
			LIMIT 1
		)
		RETURNING id, term_norm, query, priority, enqueued_at`,
		q.now().UnixMilli())

	var e Entry
	var enq int64
	err := row.Scan(&e.ID, &e.TermNorm, &e.Query, &e.Priority, &enq)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.EnqueuedAt = time.UnixMilli(enq)
	return &e, nil
}

// Ack deletes a processed query.
func (q *Queue) Ack(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM discovery_queries WHERE id = ?`, id)
	return err
}

// Release returns a claimed query to the pending pool.
func (q *Queue) Release(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE discovery_queries SET claimed_at = 0 WHERE id = ?`, id)
	return err
}

// Depth counts pending queries.
func (q *Queue) Depth(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM discovery_queries WHERE claimed_at = 0`).Scan(&n)
	return n, err
}

// PurgeClaimed drops claims older than the horizon: a worker that died
// mid-query must not strand its rows forever.
func (q *Queue) PurgeClaimed(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := q.now().Add(-olderThan).UnixMilli()
	res, err := q.db.ExecContext(ctx, `
		UPDATE discovery_queries SET claimed_at = 0
		WHERE claimed_at != 0 AND claimed_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
