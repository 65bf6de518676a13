// Package status exposes the job registry's run history over HTTP for
// operators and the notification collaborator.
package status

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/models"
)

// JobState is the last known status of one job name.
type JobState struct {
	JobName string           `db:"job_name" json:"job_name"`
	LastRun time.Time        `db:"last_run" json:"last_run"`
	Status  models.JobStatus `db:"status" json:"status"`
}

// LogEntry is one closed (or still running) job_log row.
type LogEntry struct {
	LogID        int64            `db:"log_id" json:"log_id"`
	JobName      string           `db:"job_name" json:"job_name"`
	StartTime    time.Time        `db:"start_time" json:"start_time"`
	EndTime      *time.Time       `db:"end_time" json:"end_time,omitempty"`
	Status       models.JobStatus `db:"status" json:"status"`
	Message      sql.NullString   `db:"message" json:"-"`
	RowsAffected sql.NullInt64    `db:"rows_affected" json:"-"`
}

// Service reads job status from the control tables.
type Service struct {
	db *sqlx.DB
}

// NewService creates a status service over the given pool.
func NewService(pool *sqlx.DB) *Service {
	return &Service{db: pool}
}

// AllJobStates returns the last known status for every job name.
func (s *Service) AllJobStates(ctx context.Context) ([]JobState, error) {
	var states []JobState
	err := s.db.SelectContext(ctx, &states,
		"SELECT job_name, last_run, status FROM job_status ORDER BY job_name")
	if err != nil {
		return nil, fmt.Errorf("failed to read job_status: %w", err)
	}
	return states, nil
}

// JobState returns the last known status for one job, or nil when the job
// has never run.
func (s *Service) JobState(ctx context.Context, jobName string) (*JobState, error) {
	var state JobState
	err := s.db.GetContext(ctx, &state,
		"SELECT job_name, last_run, status FROM job_status WHERE job_name = $1", jobName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job_status for %q: %w", jobName, err)
	}
	return &state, nil
}

// JobLog returns the most recent log entries for a job, newest first.
func (s *Service) JobLog(ctx context.Context, jobName string, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []LogEntry
	err := s.db.SelectContext(ctx, &entries, `
		SELECT log_id, job_name, start_time, end_time, status, message, rows_affected
		FROM job_log WHERE job_name = $1
		ORDER BY start_time DESC LIMIT $2`, jobName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read job_log for %q: %w", jobName, err)
	}
	return entries, nil
}

// Ping verifies the control database is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
