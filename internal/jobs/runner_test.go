package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/models"
)

// fakeControlStore records the envelope calls a run makes.
type fakeControlStore struct {
	configs map[string]*models.JobConfig

	openErr error

	openedJob    string
	closedLogID  int64
	closedStatus models.JobStatus
	closedMsg    string
	closedRows   int
	closed       bool
	statusJob    string
	statusValue  models.JobStatus
}

func newFakeControlStore() *fakeControlStore {
	return &fakeControlStore{configs: map[string]*models.JobConfig{}}
}

func (f *fakeControlStore) enable(name string) {
	f.configs[name] = &models.JobConfig{JobName: name, Active: true}
}

func (f *fakeControlStore) LoadConfig(_ context.Context, jobName string) (*models.JobConfig, error) {
	return f.configs[jobName], nil
}

func (f *fakeControlStore) OpenLog(_ context.Context, jobName string, _ time.Time) (int64, error) {
	if f.openErr != nil {
		return 0, f.openErr
	}
	f.openedJob = jobName
	return 42, nil
}

func (f *fakeControlStore) CloseLog(_ context.Context, logID int64, _ time.Time, status models.JobStatus, message string, rowsAffected int) error {
	f.closed = true
	f.closedLogID = logID
	f.closedStatus = status
	f.closedMsg = message
	f.closedRows = rowsAffected
	return nil
}

func (f *fakeControlStore) UpsertStatus(_ context.Context, jobName string, _ time.Time, status models.JobStatus) error {
	f.statusJob = jobName
	f.statusValue = status
	return nil
}

// fakeNotifier collects published runs.
type fakeNotifier struct {
	runs []models.JobRun
}

func (f *fakeNotifier) PublishJobRun(_ context.Context, run *models.JobRun) error {
	f.runs = append(f.runs, *run)
	return nil
}

func TestRunSuccess(t *testing.T) {
	store := newFakeControlStore()
	store.enable("CLEAN_STG_PRICES")
	notifier := &fakeNotifier{}
	runner := NewRunner(store, notifier)

	job := NewFuncJob("CLEAN_STG_PRICES", "clean staging", func(context.Context, models.JobConfig) (models.Report, error) {
		return models.Report{Status: models.StatusSuccess, Message: "cleaned 10/10 records", RowsSeen: 10, RowsAffected: 10}, nil
	})

	run, err := runner.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if run.Status != models.StatusSuccess {
		t.Errorf("Status = %s, want SUCCESS", run.Status)
	}
	if run.RunID == "" || run.LogID != 42 {
		t.Errorf("run identity incomplete: %+v", run)
	}
	if run.EndTime == nil || run.EndTime.Before(run.StartTime) {
		t.Errorf("EndTime %v not after StartTime %v", run.EndTime, run.StartTime)
	}
	if !store.closed || store.closedStatus != models.StatusSuccess || store.closedRows != 10 {
		t.Errorf("job_log not closed as SUCCESS with rows: %+v", store)
	}
	if store.statusValue != models.StatusSuccess {
		t.Errorf("job_status = %s, want SUCCESS", store.statusValue)
	}
	if len(notifier.runs) != 1 || notifier.runs[0].Status != models.StatusSuccess {
		t.Errorf("published runs = %+v, want one SUCCESS", notifier.runs)
	}
}

func TestRunDisabledJob(t *testing.T) {
	store := newFakeControlStore() // registry empty
	runner := NewRunner(store, nil)

	executed := false
	job := NewFuncJob("LOAD_TO_DW_PRICES", "load warehouse", func(context.Context, models.JobConfig) (models.Report, error) {
		executed = true
		return models.Report{Status: models.StatusSuccess}, nil
	})

	run, err := runner.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run returned error for disabled job: %v", err)
	}
	if executed {
		t.Error("disabled job was executed")
	}
	if run.Status != models.StatusDisabled {
		t.Errorf("Status = %s, want DISABLED", run.Status)
	}
	if store.closedStatus != models.StatusDisabled {
		t.Errorf("job_log closed as %s, want DISABLED", store.closedStatus)
	}
}

func TestRunFailure(t *testing.T) {
	store := newFakeControlStore()
	store.enable("RECONCILE_PRICE_HISTORY")
	runner := NewRunner(store, nil)

	wantErr := errors.New("deadlock detected")
	job := NewFuncJob("RECONCILE_PRICE_HISTORY", "reconcile history", func(context.Context, models.JobConfig) (models.Report, error) {
		return models.Report{Status: models.StatusFailed}, wantErr
	})

	run, err := runner.Run(context.Background(), job)
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if run.Status != models.StatusFailed {
		t.Errorf("Status = %s, want FAILED", run.Status)
	}
	if run.Message != wantErr.Error() {
		t.Errorf("Message = %q, want the error text", run.Message)
	}
	if store.closedStatus != models.StatusFailed {
		t.Errorf("job_log closed as %s, want FAILED", store.closedStatus)
	}
}

func TestRunEmptyIsNotAnError(t *testing.T) {
	store := newFakeControlStore()
	store.enable("LOAD_STG_PRICES")
	runner := NewRunner(store, nil)

	job := NewFuncJob("LOAD_STG_PRICES", "ingest crawl files", func(context.Context, models.JobConfig) (models.Report, error) {
		return models.Report{Status: models.StatusEmpty, Message: "no crawl files found"}, nil
	})

	run, err := runner.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("EMPTY run returned error: %v", err)
	}
	if run.Status != models.StatusEmpty {
		t.Errorf("Status = %s, want EMPTY", run.Status)
	}
	if store.closedStatus != models.StatusEmpty {
		t.Errorf("job_log closed as %s, want EMPTY", store.closedStatus)
	}
}

func TestRunPanicClosesLog(t *testing.T) {
	store := newFakeControlStore()
	store.enable("CLEAN_STG_PRICES")
	runner := NewRunner(store, nil)

	job := NewFuncJob("CLEAN_STG_PRICES", "clean staging", func(context.Context, models.JobConfig) (models.Report, error) {
		panic("index out of range")
	})

	run, err := runner.Run(context.Background(), job)
	if err == nil {
		t.Fatal("panicking job returned nil error")
	}
	if run.Status != models.StatusFailed {
		t.Errorf("Status = %s, want FAILED", run.Status)
	}
	if !store.closed || store.closedStatus != models.StatusFailed {
		t.Error("job_log entry left open after panic")
	}
	if run.EndTime == nil {
		t.Error("EndTime not stamped after panic")
	}
}

func TestRunOpenLogFailureIsFatal(t *testing.T) {
	store := newFakeControlStore()
	store.enable("CLEAN_STG_PRICES")
	store.openErr = errors.New("connection refused")
	runner := NewRunner(store, nil)

	executed := false
	job := NewFuncJob("CLEAN_STG_PRICES", "clean staging", func(context.Context, models.JobConfig) (models.Report, error) {
		executed = true
		return models.Report{Status: models.StatusSuccess}, nil
	})

	run, err := runner.Run(context.Background(), job)
	if !errors.Is(err, store.openErr) {
		t.Fatalf("err = %v, want %v", err, store.openErr)
	}
	if executed {
		t.Error("job ran despite unrecorded envelope")
	}
	if run.Status != models.StatusFailed {
		t.Errorf("Status = %s, want FAILED", run.Status)
	}
}

func TestRunNormalizesNonTerminalStatus(t *testing.T) {
	store := newFakeControlStore()
	store.enable("CLEAN_STG_PRICES")
	runner := NewRunner(store, nil)

	job := NewFuncJob("CLEAN_STG_PRICES", "clean staging", func(context.Context, models.JobConfig) (models.Report, error) {
		return models.Report{}, nil // stage forgot to set a status
	})

	run, err := runner.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if run.Status != models.StatusSuccess {
		t.Errorf("Status = %s, want normalized SUCCESS", run.Status)
	}
}
