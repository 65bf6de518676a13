// Package scheduler runs registered pipeline jobs on cron schedules. A job
// that ends FAILED is retried exactly once before the failure is surfaced,
// matching the stage-level retry policy of the pipeline.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/models"
)

// JobFunc runs one job under the tracking envelope and reports how it ended.
type JobFunc func(ctx context.Context) (models.JobRun, error)

// Scheduler manages scheduled jobs.
type Scheduler struct {
	config     *Config
	cron       *cron.Cron
	jobMap     map[string]JobFunc
	entryIDs   map[string]cron.EntryID
	mu         sync.Mutex
	isRunning  bool
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// NewScheduler creates a scheduler with the given configuration.
func NewScheduler(cfg *Config) *Scheduler {
	var cronOpts []cron.Option
	if cfg.TimeZone != "" {
		loc, err := time.LoadLocation(cfg.TimeZone)
		if err == nil {
			cronOpts = append(cronOpts, cron.WithLocation(loc))
		} else {
			log.Printf("Error loading timezone %s: %v, using UTC", cfg.TimeZone, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		config:     cfg,
		cron:       cron.New(cronOpts...),
		jobMap:     make(map[string]JobFunc),
		entryIDs:   make(map[string]cron.EntryID),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// RegisterJob registers a named job with the scheduler.
func (s *Scheduler) RegisterJob(name string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobMap[name]; exists {
		return fmt.Errorf("job with name %q already registered", name)
	}

	s.jobMap[name] = fn
	return nil
}

// Start schedules all registered jobs that have an enabled schedule and
// starts the cron loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	for name, fn := range s.jobMap {
		schedule, ok := s.config.Schedules[name]
		if !ok {
			log.Printf("No schedule found for job %q, skipping", name)
			continue
		}
		if !schedule.Enabled {
			log.Printf("Job %q is disabled in the schedule, skipping", name)
			continue
		}

		entryID, err := s.cron.AddFunc(schedule.Cron, s.jobRunner(name, fn))
		if err != nil {
			return fmt.Errorf("failed to schedule job %q: %w", name, err)
		}

		s.entryIDs[name] = entryID
		log.Printf("Scheduled job %q with cron expression %q", name, schedule.Cron)
	}

	s.cron.Start()
	s.isRunning = true
	log.Println("Scheduler started")
	return nil
}

// jobRunner wraps a job with a per-run timeout and the retry-once policy.
func (s *Scheduler) jobRunner(name string, fn JobFunc) func() {
	return func() {
		const attempts = 2
		for attempt := 1; attempt <= attempts; attempt++ {
			runCtx, cancel := context.WithTimeout(s.ctx, 30*time.Minute)
			run, err := fn(runCtx)
			cancel()

			if err == nil {
				if attempt > 1 {
					log.Printf("Job %q recovered on retry with status %s", name, run.Status)
				}
				return
			}

			if attempt < attempts {
				log.Printf("Job %q failed (%v), retrying once", name, err)
				continue
			}
			log.Printf("Job %q failed after retry: %v", name, err)
		}
	}
}

// Stop stops the scheduler and cancels in-flight runs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	s.cancelFunc()
	s.cron.Stop()
	s.isRunning = false
	log.Println("Scheduler stopped")
}

// NextRun returns the next scheduled run time for a job.
func (s *Scheduler) NextRun(name string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, ok := s.entryIDs[name]
	if !ok {
		return time.Time{}, fmt.Errorf("job %q not scheduled", name)
	}

	return s.cron.Entry(entryID).Next, nil
}

// RunJobNow runs a registered job immediately, outside its schedule.
func (s *Scheduler) RunJobNow(name string) error {
	s.mu.Lock()
	fn, ok := s.jobMap[name]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("job %q not found", name)
	}

	go s.jobRunner(name, fn)()
	return nil
}
