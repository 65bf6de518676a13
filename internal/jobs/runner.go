// Package jobs wraps every pipeline stage in a run-tracking envelope: a
// job_log entry opened in RUNNING, closed with exactly one terminal status on
// every exit path, a last-known-status upsert, and an event published for the
// notification collaborator.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/models"
)

// Notifier receives terminal run records. Implementations must tolerate
// being called for every run, successful or not.
type Notifier interface {
	PublishJobRun(ctx context.Context, run *models.JobRun) error
}

// Runner executes jobs inside the tracking envelope.
type Runner struct {
	store    ControlStore
	notifier Notifier // optional
	now      func() time.Time
}

// NewRunner creates a runner. notifier may be nil.
func NewRunner(store ControlStore, notifier Notifier) *Runner {
	return &Runner{store: store, notifier: notifier, now: time.Now}
}

// Run executes one job under the envelope:
//
//   - the registry is consulted first; a missing or inactive job closes the
//     run as DISABLED before the stage touches any store
//   - the job_log entry is guaranteed to leave RUNNING even when the stage
//     panics
//   - the returned error is non-nil exactly when the run ended FAILED
func (r *Runner) Run(ctx context.Context, job Job) (models.JobRun, error) {
	run := models.JobRun{
		RunID:     uuid.NewString(),
		JobName:   job.Name(),
		Status:    models.StatusRunning,
		StartTime: r.now(),
	}

	log.Printf("Starting job %q (run %s)", job.Name(), run.RunID)

	logID, err := r.store.OpenLog(ctx, job.Name(), run.StartTime)
	if err != nil {
		// Cannot even record the run: connectivity failure, fatal.
		run.Status = models.StatusFailed
		run.Message = err.Error()
		return run, err
	}
	run.LogID = logID

	report, execErr := r.execute(ctx, job)

	run.RowsSeen = report.RowsSeen
	run.RowsAffected = report.RowsAffected
	run.Message = report.Message
	run.Status = report.Status
	if execErr != nil {
		run.Status = models.StatusFailed
		if run.Message == "" {
			run.Message = execErr.Error()
		}
	}
	if !run.Status.Terminal() {
		run.Status = models.StatusSuccess
	}

	end := r.now()
	run.EndTime = &end
	if err := r.store.CloseLog(ctx, logID, end, run.Status, run.Message, run.RowsAffected); err != nil {
		log.Printf("Error closing job_log entry %d: %v", logID, err)
	}
	if err := r.store.UpsertStatus(ctx, job.Name(), end, run.Status); err != nil {
		log.Printf("Error upserting job_status for %q: %v", job.Name(), err)
	}
	r.publish(&run)

	log.Printf("Job %q finished with status %s in %v: %s",
		job.Name(), run.Status, end.Sub(run.StartTime), run.Message)

	if run.Status == models.StatusFailed {
		if execErr != nil {
			return run, execErr
		}
		return run, fmt.Errorf("job %q failed: %s", job.Name(), run.Message)
	}
	return run, nil
}

// execute gates the job on its registry entry and shields the envelope from
// stage panics.
func (r *Runner) execute(ctx context.Context, job Job) (report models.Report, err error) {
	defer func() {
		if p := recover(); p != nil {
			report = models.Report{Status: models.StatusFailed}
			err = fmt.Errorf("job %q panicked: %v", job.Name(), p)
		}
	}()

	cfg, err := r.store.LoadConfig(ctx, job.Name())
	if err != nil {
		return models.Report{Status: models.StatusFailed}, err
	}
	if cfg == nil {
		log.Printf("Job %q is missing from the registry or inactive", job.Name())
		return models.Report{
			Status:  models.StatusDisabled,
			Message: "job is missing from the registry or inactive",
		}, nil
	}

	return job.Execute(ctx, *cfg)
}

func (r *Runner) publish(run *models.JobRun) {
	if r.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.notifier.PublishJobRun(ctx, run); err != nil {
		log.Printf("Error publishing run status for %q: %v", run.JobName, err)
	}
}
