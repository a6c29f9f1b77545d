package casedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// JobStatus tracks an ingest job's lifecycle in the history table.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is one row of ingest history. The row id doubles as the opaque numeric
// job identifier shared across workspace and accounting state.
type Job struct {
	ID           int64
	DataSourceID int64
	RunID        string
	SourcePath   string
	Status       JobStatus
	UnitsTotal   int
	Recovered    int64
	Errored      int64
	WriteMS      int64
	ParseMS      int64
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// BeginJob records a new running job and returns its identifier.
func (s *Store) BeginJob(ctx context.Context, dataSourceID int64, runID, sourcePath string, unitsTotal int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_jobs (data_source_id, run_id, source_path, status, units_total, started_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		dataSourceID, runID, sourcePath, JobRunning, unitsTotal, timestamp(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// FinishJob stamps a job's final status and totals snapshot.
func (s *Store) FinishJob(ctx context.Context, id int64, status JobStatus, recovered, errored, writeMS, parseMS int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE ingest_jobs
         SET status = ?, recovered = ?, errored = ?, write_ms = ?, parse_ms = ?, finished_at = ?
         WHERE id = ?`,
		status, recovered, errored, writeMS, parseMS, timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	return nil
}

// JobByID fetches one job, or nil when the id is unknown.
func (s *Store) JobByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM ingest_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("job by id: %w", err)
	}
	return job, nil
}

// RecentJobs returns up to limit jobs, most recent first.
func (s *Store) RecentJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM ingest_jobs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

const jobColumns = "id, data_source_id, run_id, source_path, status, units_total, recovered, errored, write_ms, parse_ms, started_at, finished_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job         Job
		statusStr   string
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&job.ID,
		&job.DataSourceID,
		&job.RunID,
		&job.SourcePath,
		&statusStr,
		&job.UnitsTotal,
		&job.Recovered,
		&job.Errored,
		&job.WriteMS,
		&job.ParseMS,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	job.Status = JobStatus(statusStr)
	if started, err := parseTimeString(startedRaw); err == nil {
		job.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			job.FinishedAt = &finished
		}
	}
	return &job, nil
}
