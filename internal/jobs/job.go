package jobs

import (
	"context"

	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/models"
)

// Job is one runnable pipeline stage. Jobs receive their resolved registry
// config and report how the run ended; they never write job_log themselves.
type Job interface {
	// Name returns the unique registry name of the job.
	Name() string

	// Description returns a human-readable description of the job.
	Description() string

	// Execute runs the stage. The returned report carries the terminal
	// status and the rows-seen / rows-affected summary; a non-nil error
	// means the run failed regardless of the report.
	Execute(ctx context.Context, cfg models.JobConfig) (models.Report, error)
}

// BaseJob provides the name/description boilerplate shared by all jobs.
type BaseJob struct {
	name        string
	description string
}

// NewBaseJob creates a base job with the given name and description.
func NewBaseJob(name, description string) BaseJob {
	return BaseJob{name: name, description: description}
}

// Name returns the job name.
func (j *BaseJob) Name() string {
	return j.name
}

// Description returns the job description.
func (j *BaseJob) Description() string {
	return j.description
}

// FuncJob wraps a plain function as a Job.
type FuncJob struct {
	BaseJob
	fn func(ctx context.Context, cfg models.JobConfig) (models.Report, error)
}

// NewFuncJob creates a job from a function.
func NewFuncJob(name, description string, fn func(ctx context.Context, cfg models.JobConfig) (models.Report, error)) *FuncJob {
	return &FuncJob{BaseJob: NewBaseJob(name, description), fn: fn}
}

// Execute runs the wrapped function.
func (j *FuncJob) Execute(ctx context.Context, cfg models.JobConfig) (models.Report, error) {
	return j.fn(ctx, cfg)
}
