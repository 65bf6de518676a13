package models

import "time"

// JobStatus is the terminal (or in-flight) state of one pipeline run.
type JobStatus string

const (
	StatusRunning  JobStatus = "RUNNING"
	StatusSuccess  JobStatus = "SUCCESS"
	StatusFailed   JobStatus = "FAILED"
	StatusEmpty    JobStatus = "EMPTY"
	StatusDisabled JobStatus = "DISABLED"
)

// Terminal reports whether the status may close a job_log entry. Every run
// must end in exactly one of these.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusEmpty, StatusDisabled:
		return true
	}
	return false
}

// JobConfig is one row of the etl_config registry: where a job reads from,
// where it writes to, and whether it is allowed to run at all.
type JobConfig struct {
	JobName      string `db:"job_name" json:"job_name"`
	Source       string `db:"source" json:"source"`
	Target       string `db:"target" json:"target"`
	ScheduleTime string `db:"schedule_time" json:"schedule_time"`
	Active       bool   `db:"active" json:"active"`
}

// JobRun is the per-run status record: one job_log entry plus the run
// identity and row counters. It is what the notification collaborator
// consumes when a run reaches a terminal status.
type JobRun struct {
	RunID        string     `db:"run_id" json:"run_id"`
	LogID        int64      `db:"log_id" json:"log_id"`
	JobName      string     `db:"job_name" json:"job_name"`
	Status       JobStatus  `db:"status" json:"status"`
	StartTime    time.Time  `db:"start_time" json:"start_time"`
	EndTime      *time.Time `db:"end_time" json:"end_time,omitempty"`
	Message      string     `db:"message" json:"message"`
	RowsSeen     int        `db:"rows_seen" json:"rows_seen"`
	RowsAffected int        `db:"rows_affected" json:"rows_affected"`
}

// Report is what a stage job returns to the runner: the terminal status it
// wants recorded plus the rows-seen / rows-affected summary.
type Report struct {
	Status       JobStatus
	Message      string
	RowsSeen     int
	RowsAffected int
}
