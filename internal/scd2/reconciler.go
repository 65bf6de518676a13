// Package scd2 maintains the price history table as a slowly changing
// dimension of type 2: for each natural key at most one row is current, and
// attribute changes close the old row and open a new one with a fresh
// validity window. Closed rows are never touched again.
package scd2

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/models"
)

// Result summarizes one reconciliation run.
type Result struct {
	Seen      int
	Inserted  int
	Closed    int
	Unchanged int
	Skipped   int
}

// Reconciler applies one clean batch to the version history. A single
// reconciler run assumes it is the only writer against the history table.
type Reconciler struct {
	now func() time.Time
}

// NewReconciler creates a reconciler using the wall clock.
func NewReconciler() *Reconciler {
	return &Reconciler{now: time.Now}
}

// Reconcile compares each clean record against the current version for its
// natural key and writes the minimal set of history changes:
//
//   - no current version: insert a first-seen current row
//   - tracked attributes unchanged: no write at all
//   - any tracked attribute changed: close the old row, open a new one
//
// Records without a natural key are skipped and counted; store errors abort
// the run so the enclosing transaction rolls back as a whole.
func (r *Reconciler) Reconcile(ctx context.Context, store VersionStore, batch []models.CleanRecord) (Result, error) {
	result := Result{Seen: len(batch)}

	for i := range batch {
		rec := &batch[i]
		key := rec.NaturalKey()
		if key == "" {
			log.Printf("Skipping record with no natural key (empty product URL and name)")
			result.Skipped++
			continue
		}

		current, err := store.Current(ctx, key)
		if err != nil {
			return result, err
		}

		now := r.now()

		if current == nil {
			if err := store.Insert(ctx, newVersion(rec, key, now)); err != nil {
				return result, err
			}
			result.Inserted++
			continue
		}

		if !changed(current, rec) {
			result.Unchanged++
			continue
		}

		closed, err := store.CloseCurrent(ctx, key, now)
		if err != nil {
			return result, err
		}
		if closed != 1 {
			return result, fmt.Errorf("expected to close 1 current version for %q, closed %d", key, closed)
		}
		if err := store.Insert(ctx, newVersion(rec, key, now)); err != nil {
			return result, err
		}
		result.Closed++
		result.Inserted++
	}

	log.Printf("Reconciled %d records: %d new versions, %d closed, %d unchanged, %d skipped",
		result.Seen, result.Inserted, result.Closed, result.Unchanged, result.Skipped)
	return result, nil
}

// changed reports whether any tracked attribute differs between the current
// version and the incoming record. Prices compare numerically, the free-text
// field compares trimmed.
func changed(current *models.PriceVersion, rec *models.CleanRecord) bool {
	return current.CurrentPrice != rec.Price ||
		current.OriginalPrice != rec.OldPrice ||
		current.DiscountPercent != rec.DiscountPercent ||
		strings.TrimSpace(current.AdditionalInfo) != strings.TrimSpace(rec.AdditionalInfo)
}

func newVersion(rec *models.CleanRecord, key string, at time.Time) *models.PriceVersion {
	return &models.PriceVersion{
		NaturalKey:      key,
		ProductName:     rec.ProductName,
		Brand:           rec.Brand,
		CurrentPrice:    rec.Price,
		OriginalPrice:   rec.OldPrice,
		DiscountPercent: rec.DiscountPercent,
		AdditionalInfo:  rec.AdditionalInfo,
		ImageURL:        rec.ImageURL,
		ProductURL:      rec.ProductURL,
		SourceName:      rec.SourceName,
		SourceURL:       rec.SourceURL,
		CrawlDate:       rec.CrawlDate,
		CrawlTime:       rec.CrawlTime,
		FullDate:        rec.FullDate,
		ValidFrom:       at,
		ValidTo:         nil,
		IsCurrent:       true,
	}
}

// Stage runs a full reconciliation pass over the clean staging table inside
// one transaction. Data-quality problems skip individual records; any store
// failure rolls the whole run back.
type Stage struct {
	db         *sqlx.DB
	reconciler *Reconciler
}

// NewStage creates a reconciliation stage over the given pool.
func NewStage(pool *sqlx.DB) *Stage {
	return &Stage{db: pool, reconciler: NewReconciler()}
}

// Run executes one reconciliation run.
func (s *Stage) Run(ctx context.Context) (models.Report, error) {
	var batch []models.CleanRecord
	if err := s.db.SelectContext(ctx, &batch, "SELECT * FROM stg_price_clean"); err != nil {
		return models.Report{Status: models.StatusFailed}, fmt.Errorf("failed to read clean staging table: %w", err)
	}

	if len(batch) == 0 {
		log.Printf("No rows in stg_price_clean, nothing to reconcile")
		return models.Report{Status: models.StatusEmpty, Message: "clean staging table is empty"}, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Report{Status: models.StatusFailed}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := s.reconciler.Reconcile(ctx, &sqlVersionStore{tx: tx}, batch)
	if err != nil {
		return models.Report{Status: models.StatusFailed}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Report{Status: models.StatusFailed}, fmt.Errorf("failed to commit reconciliation: %w", err)
	}

	msg := fmt.Sprintf("reconciled %d records: %d new versions, %d closed, %d unchanged, %d skipped",
		result.Seen, result.Inserted, result.Closed, result.Unchanged, result.Skipped)
	return models.Report{
		Status:       models.StatusSuccess,
		Message:      msg,
		RowsSeen:     result.Seen,
		RowsAffected: result.Inserted,
	}, nil
}
