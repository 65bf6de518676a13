package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/models"
)

// ControlStore is the persistence surface for the job registry, the per-run
// log and the last-known-status record.
type ControlStore interface {
	// LoadConfig returns the active registry entry for a job, or nil when
	// the job is missing or inactive.
	LoadConfig(ctx context.Context, jobName string) (*models.JobConfig, error)

	// OpenLog opens a job_log entry in the RUNNING state and returns its id.
	OpenLog(ctx context.Context, jobName string, start time.Time) (int64, error)

	// CloseLog closes a job_log entry with a terminal status.
	CloseLog(ctx context.Context, logID int64, end time.Time, status models.JobStatus, message string, rowsAffected int) error

	// UpsertStatus records the last known status for a job name.
	UpsertStatus(ctx context.Context, jobName string, lastRun time.Time, status models.JobStatus) error
}

// sqlControlStore implements ControlStore against the control tables.
type sqlControlStore struct {
	db *sqlx.DB
}

// NewControlStore creates the SQL control store.
func NewControlStore(pool *sqlx.DB) ControlStore {
	return &sqlControlStore{db: pool}
}

func (s *sqlControlStore) LoadConfig(ctx context.Context, jobName string) (*models.JobConfig, error) {
	var cfg models.JobConfig
	err := s.db.GetContext(ctx, &cfg,
		"SELECT job_name, source, target, schedule_time, active FROM etl_config WHERE job_name = $1 AND active",
		jobName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config for job %q: %w", jobName, err)
	}
	return &cfg, nil
}

func (s *sqlControlStore) OpenLog(ctx context.Context, jobName string, start time.Time) (int64, error) {
	var logID int64
	err := s.db.QueryRowxContext(ctx,
		"INSERT INTO job_log (job_name, start_time, status) VALUES ($1, $2, $3) RETURNING log_id",
		jobName, start, models.StatusRunning).Scan(&logID)
	if err != nil {
		return 0, fmt.Errorf("failed to open job_log entry for %q: %w", jobName, err)
	}
	return logID, nil
}

func (s *sqlControlStore) CloseLog(ctx context.Context, logID int64, end time.Time, status models.JobStatus, message string, rowsAffected int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE job_log SET end_time = $2, status = $3, message = $4, rows_affected = $5 WHERE log_id = $1",
		logID, end, status, message, rowsAffected)
	if err != nil {
		return fmt.Errorf("failed to close job_log entry %d: %w", logID, err)
	}
	return nil
}

func (s *sqlControlStore) UpsertStatus(ctx context.Context, jobName string, lastRun time.Time, status models.JobStatus) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_status (job_name, last_run, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (job_name) DO UPDATE SET last_run = EXCLUDED.last_run, status = EXCLUDED.status`,
		jobName, lastRun, status)
	if err != nil {
		return fmt.Errorf("failed to upsert job_status for %q: %w", jobName, err)
	}
	return nil
}
