// Package warehouse loads the cleaned price batch into the star schema:
// get-or-create rows in the brand, product and source dimensions, lookup-only
// against the pre-populated date dimension, then one immutable fact row per
// observation.
package warehouse

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/models"
)

// Result summarizes one load run.
type Result struct {
	Seen    int
	Loaded  int
	Skipped int
}

// Loader resolves dimensions and appends fact rows.
type Loader struct {
	store Store
}

// NewLoader creates a loader over the given store.
func NewLoader(store Store) *Loader {
	return &Loader{store: store}
}

// Load processes one batch of fact-eligible records. Records with an empty
// product name or no matching date dimension row are skipped and counted;
// store errors abort the run.
func (l *Loader) Load(ctx context.Context, batch []models.CleanRecord) (Result, error) {
	result := Result{Seen: len(batch)}

	for i := range batch {
		rec := &batch[i]

		name := strings.TrimSpace(rec.ProductName)
		if name == "" {
			result.Skipped++
			continue
		}

		brand := strings.TrimSpace(rec.Brand)
		if brand == "" {
			brand = "Unknown"
		}
		brandID, err := l.store.ResolveKey(ctx, DimBrand, brand, nil)
		if err != nil {
			return result, err
		}

		productID, err := l.store.ResolveKey(ctx, DimProduct, name, map[string]interface{}{
			"additional_info": rec.AdditionalInfo,
			"image_url":       rec.ImageURL,
			"product_url":     rec.ProductURL,
			"brand_id":        brandID,
		})
		if err != nil {
			return result, err
		}

		source := strings.TrimSpace(rec.SourceName)
		if source == "" {
			source = "Unknown"
		}
		sourceID, err := l.store.ResolveKey(ctx, DimSource, source, map[string]interface{}{
			"source_url": rec.SourceURL,
		})
		if err != nil {
			return result, err
		}

		day := time.Date(rec.FullDate.Year(), rec.FullDate.Month(), rec.FullDate.Day(), 0, 0, 0, 0, rec.FullDate.Location())
		dateSK, ok, err := l.store.DateKey(ctx, day)
		if err != nil {
			return result, err
		}
		if !ok {
			log.Printf("No dim_date row for %s, skipping %q", day.Format("2006-01-02"), name)
			result.Skipped++
			continue
		}

		fact := &models.FactPriceObservation{
			ProductID:       productID,
			BrandID:         brandID,
			SourceID:        sourceID,
			DateSK:          dateSK,
			Price:           rec.Price,
			DiscountPercent: rec.DiscountPercent,
			CrawlDate:       rec.CrawlDate,
			CrawlTime:       rec.CrawlTime,
			FullDate:        rec.FullDate,
		}
		if err := l.store.InsertFact(ctx, fact); err != nil {
			return result, err
		}
		result.Loaded++
	}

	log.Printf("Loaded %d/%d fact rows (%d skipped)", result.Loaded, result.Seen, result.Skipped)
	return result, nil
}

// Stage runs a full warehouse load over the clean staging table.
type Stage struct {
	staging   *sqlx.DB
	warehouse Store
}

// NewStage creates a load stage reading from the staging pool and writing
// through the warehouse store.
func NewStage(staging *sqlx.DB, store Store) *Stage {
	return &Stage{staging: staging, warehouse: store}
}

// Run executes one load run.
func (s *Stage) Run(ctx context.Context) (models.Report, error) {
	var batch []models.CleanRecord
	if err := s.staging.SelectContext(ctx, &batch, "SELECT * FROM stg_price_clean"); err != nil {
		return models.Report{Status: models.StatusFailed}, fmt.Errorf("failed to read clean staging table: %w", err)
	}

	if len(batch) == 0 {
		log.Printf("No rows in stg_price_clean, nothing to load")
		return models.Report{Status: models.StatusEmpty, Message: "clean staging table is empty"}, nil
	}

	loader := NewLoader(s.warehouse)
	result, err := loader.Load(ctx, batch)
	if err != nil {
		return models.Report{Status: models.StatusFailed}, err
	}

	msg := fmt.Sprintf("loaded %d/%d fact rows (%d skipped)", result.Loaded, result.Seen, result.Skipped)
	return models.Report{
		Status:       models.StatusSuccess,
		Message:      msg,
		RowsSeen:     result.Seen,
		RowsAffected: result.Loaded,
	}, nil
}
