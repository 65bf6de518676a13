// Package etlservice wires the pipeline stages together behind one service:
// ingest raw extracts, clean them, reconcile the price history, load the
// warehouse. Stages run strictly in order; a stage starts only after its
// predecessor finished SUCCESS.
package etlservice

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/cleaning"
	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/jobs"
	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/models"
	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/scd2"
	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/staging"
	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/warehouse"
)

// Registry names of the pipeline stages. Each must have an active row in
// etl_config for its stage to run.
const (
	JobIngest    = "LOAD_STG_PRICES"
	JobClean     = "CLEAN_STG_PRICES"
	JobReconcile = "RECONCILE_PRICE_HISTORY"
	JobLoad      = "LOAD_TO_DW_PRICES"
)

// Service owns the stage implementations and the run-tracking envelope.
type Service struct {
	runner    *jobs.Runner
	ingestor  *staging.Ingestor
	cleanStg  *cleaning.Stage
	reconcile *scd2.Stage
	load      *warehouse.Stage
}

// New creates the ETL service over one database pool. notifier may be nil.
func New(pool *sqlx.DB, notifier jobs.Notifier) *Service {
	return &Service{
		runner:    jobs.NewRunner(jobs.NewControlStore(pool), notifier),
		ingestor:  staging.NewIngestor(pool),
		cleanStg:  cleaning.NewStage(pool),
		reconcile: scd2.NewStage(pool),
		load:      warehouse.NewStage(pool, warehouse.NewStore(pool)),
	}
}

// RunIngest stages the crawl CSV for the given business day, or the newest
// CSV when day is nil. The crawl directory comes from the job's registry row.
func (s *Service) RunIngest(ctx context.Context, day *time.Time) (models.JobRun, error) {
	job := jobs.NewFuncJob(JobIngest, "stage raw crawl CSV into stg_price_raw",
		func(ctx context.Context, cfg models.JobConfig) (models.Report, error) {
			var (
				path string
				ok   bool
				err  error
			)
			if day != nil {
				path, ok, err = staging.CSVForDate(cfg.Source, *day)
			} else {
				path, ok, err = staging.LatestCSV(cfg.Source)
			}
			if err != nil {
				return models.Report{Status: models.StatusFailed}, err
			}
			if !ok {
				return models.Report{Status: models.StatusEmpty, Message: fmt.Sprintf("no crawl CSV found in %s", cfg.Source)}, nil
			}

			records, err := staging.LoadCSV(path)
			if err != nil {
				return models.Report{Status: models.StatusFailed}, err
			}

			report, err := s.ingestor.Ingest(ctx, records)
			if err == nil && report.Status == models.StatusSuccess {
				report.Message = fmt.Sprintf("%s from %s", report.Message, path)
			}
			return report, err
		})
	return s.runner.Run(ctx, job)
}

// RunClean normalizes the raw batch into the clean staging table.
func (s *Service) RunClean(ctx context.Context) (models.JobRun, error) {
	job := jobs.NewFuncJob(JobClean, "clean stg_price_raw into stg_price_clean",
		func(ctx context.Context, cfg models.JobConfig) (models.Report, error) {
			return s.cleanStg.Run(ctx)
		})
	return s.runner.Run(ctx, job)
}

// RunReconcile applies the clean batch to the SCD2 price history.
func (s *Service) RunReconcile(ctx context.Context) (models.JobRun, error) {
	job := jobs.NewFuncJob(JobReconcile, "reconcile stg_price_clean into price_history",
		func(ctx context.Context, cfg models.JobConfig) (models.Report, error) {
			return s.reconcile.Run(ctx)
		})
	return s.runner.Run(ctx, job)
}

// RunLoad resolves dimensions and appends fact rows for the clean batch.
func (s *Service) RunLoad(ctx context.Context) (models.JobRun, error) {
	job := jobs.NewFuncJob(JobLoad, "load stg_price_clean into the star schema",
		func(ctx context.Context, cfg models.JobConfig) (models.Report, error) {
			return s.load.Run(ctx)
		})
	return s.runner.Run(ctx, job)
}

// RunPipeline runs the full Ingest → Clean → Reconcile → Load sequence for
// one business day (nil means the newest crawl). Any stage that does not end
// SUCCESS stops the chain; only FAILED makes the pipeline itself an error.
func (s *Service) RunPipeline(ctx context.Context, day *time.Time) ([]models.JobRun, error) {
	type stage struct {
		name string
		run  func(context.Context) (models.JobRun, error)
	}
	stages := []stage{
		{JobIngest, func(ctx context.Context) (models.JobRun, error) { return s.RunIngest(ctx, day) }},
		{JobClean, s.RunClean},
		{JobReconcile, s.RunReconcile},
		{JobLoad, s.RunLoad},
	}

	var runs []models.JobRun
	for _, st := range stages {
		run, err := st.run(ctx)
		runs = append(runs, run)
		if err != nil {
			return runs, fmt.Errorf("pipeline stopped at %s: %w", st.name, err)
		}
		if run.Status != models.StatusSuccess {
			log.Printf("Pipeline stopped at %s with status %s", st.name, run.Status)
			return runs, nil
		}
	}

	log.Printf("Pipeline completed: %d stages", len(runs))
	return runs, nil
}
