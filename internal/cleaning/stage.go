package cleaning

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/models"
)

const insertCleanQuery = `
	INSERT INTO stg_price_clean (
		product_name, brand, price, old_price, discount_percent,
		additional_info, image_url, product_url, source_name, source_url,
		crawl_date, crawl_time, full_date
	) VALUES (
		:product_name, :brand, :price, :old_price, :discount_percent,
		:additional_info, :image_url, :product_url, :source_name, :source_url,
		:crawl_date, :crawl_time, :full_date
	)`

// Stage reads the raw staging table, cleans it, and replaces the clean
// staging table with the result. The clean table is exclusively owned by this
// stage for the duration of a run: the truncate-then-insert is destructive
// and concurrent runs must be serialized by the caller.
type Stage struct {
	db      *sqlx.DB
	cleaner *Cleaner
}

// NewStage creates a cleaning stage over the given pool.
func NewStage(pool *sqlx.DB) *Stage {
	return &Stage{db: pool, cleaner: NewCleaner()}
}

// Run executes one cleaning pass. Running it twice on the same raw batch
// yields the same clean batch.
func (s *Stage) Run(ctx context.Context) (models.Report, error) {
	var raws []models.RawRecord
	if err := s.db.SelectContext(ctx, &raws, "SELECT * FROM stg_price_raw"); err != nil {
		return models.Report{Status: models.StatusFailed}, fmt.Errorf("failed to read raw staging table: %w", err)
	}

	if len(raws) == 0 {
		log.Printf("No rows in stg_price_raw, nothing to clean")
		return models.Report{Status: models.StatusEmpty, Message: "raw staging table is empty"}, nil
	}

	cleaned, stats := s.cleaner.Clean(raws)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Report{Status: models.StatusFailed}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "TRUNCATE TABLE stg_price_clean"); err != nil {
		return models.Report{Status: models.StatusFailed}, fmt.Errorf("failed to truncate clean staging table: %w", err)
	}

	for i := range cleaned {
		if _, err := tx.NamedExecContext(ctx, insertCleanQuery, &cleaned[i]); err != nil {
			return models.Report{Status: models.StatusFailed}, fmt.Errorf("failed to insert clean record %q: %w", cleaned[i].ProductName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Report{Status: models.StatusFailed}, fmt.Errorf("failed to commit clean batch: %w", err)
	}

	msg := fmt.Sprintf("cleaned %d/%d records (%d dropped, %d date fallbacks)",
		stats.Cleaned, stats.Seen, stats.Dropped, stats.DateFallbacks)
	return models.Report{
		Status:       models.StatusSuccess,
		Message:      msg,
		RowsSeen:     stats.Seen,
		RowsAffected: stats.Cleaned,
	}, nil
}
