package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// jobRank orders statuses so a job can never regress.
var jobRank = map[string]int{
	JobPending:   0,
	JobRunning:   1,
	JobCompleted: 2,
	JobFailed:    2,
}

// CreateJob inserts a pending ingestion job.
func (s *Store) CreateJob(ctx context.Context, job *IngestionJob) error {
	if job.Status == "" {
		job.Status = JobPending
	}
	if job.CreatedAt == 0 {
		job.CreatedAt = time.Now().UnixMilli()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO ingestion_jobs (id, source_id, kind, status, discovered,
		processed, successful, failed, started_at, completed_at, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.SourceID, job.Kind, job.Status, job.Discovered,
		job.Processed, job.Successful, job.Failed,
		nullMilli(job.StartedAt), nullMilli(job.CompletedAt), job.Summary, job.CreatedAt,
	)
	return err
}

// StartJob transitions a pending job to running.
func (s *Store) StartJob(ctx context.Context, id string) error {
	return s.transitionJob(ctx, id, JobRunning, `started_at = ?`)
}

// CompleteJob finishes a job with final counters and a summary blob.
// status must be "completed" or "failed".
func (s *Store) CompleteJob(ctx context.Context, id, status string, discovered, processed, successful, failed int, summary string) error {
	if status != JobCompleted && status != JobFailed {
		return fmt.Errorf("invalid terminal job status %q", status)
	}
	cur, err := s.jobStatus(ctx, id)
	if err != nil {
		return err
	}
	if jobRank[status] < jobRank[cur] {
		return fmt.Errorf("job %s: cannot regress %s -> %s", id, cur, status)
	}
	_, err = s.DB.ExecContext(ctx,
		`UPDATE ingestion_jobs SET status=?, discovered=?, processed=?, successful=?,
		failed=?, completed_at=?, summary=? WHERE id=?`,
		status, discovered, processed, successful, failed,
		time.Now().UnixMilli(), summary, id)
	return err
}

func (s *Store) transitionJob(ctx context.Context, id, status, stampCol string) error {
	cur, err := s.jobStatus(ctx, id)
	if err != nil {
		return err
	}
	if jobRank[status] < jobRank[cur] {
		return fmt.Errorf("job %s: cannot regress %s -> %s", id, cur, status)
	}
	_, err = s.DB.ExecContext(ctx,
		`UPDATE ingestion_jobs SET status = ?, `+stampCol+` WHERE id = ?`,
		status, time.Now().UnixMilli(), id)
	return err
}

func (s *Store) jobStatus(ctx context.Context, id string) (string, error) {
	var status string
	err := s.DB.QueryRowContext(ctx,
		`SELECT status FROM ingestion_jobs WHERE id = ?`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("job %s: not found", id)
	}
	return status, err
}

// GetJob retrieves a job by ID, or nil.
func (s *Store) GetJob(ctx context.Context, id string) (*IngestionJob, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, source_id, kind, status, discovered, processed, successful,
		failed, started_at, completed_at, summary, created_at
		FROM ingestion_jobs WHERE id = ?`, id)

	var j IngestionJob
	var started, completed sql.NullInt64
	err := row.Scan(&j.ID, &j.SourceID, &j.Kind, &j.Status, &j.Discovered,
		&j.Processed, &j.Successful, &j.Failed, &started, &completed, &j.Summary, &j.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}
	j.StartedAt = milli(started)
	j.CompletedAt = milli(completed)
	return &j, nil
}

// ListRecentJobs returns the newest jobs, most recent first.
func (s *Store) ListRecentJobs(ctx context.Context, limit int) ([]*IngestionJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, source_id, kind, status, discovered, processed, successful,
		failed, started_at, completed_at, summary, created_at
		FROM ingestion_jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*IngestionJob
	for rows.Next() {
		var j IngestionJob
		var started, completed sql.NullInt64
		if err := rows.Scan(&j.ID, &j.SourceID, &j.Kind, &j.Status, &j.Discovered,
			&j.Processed, &j.Successful, &j.Failed, &started, &completed,
			&j.Summary, &j.CreatedAt); err != nil {
			return nil, err
		}
		j.StartedAt = milli(started)
		j.CompletedAt = milli(completed)
		out = append(out, &j)
	}
	return out, rows.Err()
}
