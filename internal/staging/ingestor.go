// Package staging ingests raw scraper extracts into the raw staging table.
// The scraper adapters deliver one CSV per crawl; the ingestor stages it
// wholesale, untyped and unvalidated, for the cleaning stage to consume.
package staging

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/models"
)

const insertRawQuery = `
	INSERT INTO stg_price_raw (
		product_name, brand_name, price, old_price, discount_percent,
		additional_info, image_url, product_url, source_name, source_url,
		crawl_date, crawl_time, full_date
	) VALUES (
		:product_name, :brand_name, :price, :old_price, :discount_percent,
		:additional_info, :image_url, :product_url, :source_name, :source_url,
		:crawl_date, :crawl_time, :full_date
	)`

// LoadCSV reads a scraper-produced CSV into raw records. Every field is kept
// as text; columns are matched by header name and missing columns simply
// yield empty fields.
func LoadCSV(path string) ([]models.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read header of %s", path)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		// Tolerate a UTF-8 BOM on the first column.
		col[strings.TrimPrefix(strings.TrimSpace(name), "\uFEFF")] = i
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var records []models.RawRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read row of %s", path)
		}
		records = append(records, models.RawRecord{
			ProductName:     field(row, "product_name"),
			BrandName:       field(row, "brand_name"),
			Price:           field(row, "price"),
			OldPrice:        field(row, "old_price"),
			DiscountPercent: field(row, "discount_percent"),
			AdditionalInfo:  field(row, "additional_info"),
			ImageURL:        field(row, "image_url"),
			ProductURL:      field(row, "product_url"),
			SourceName:      field(row, "source_name"),
			SourceURL:       field(row, "source_url"),
			CrawlDate:       field(row, "crawl_date"),
			CrawlTime:       field(row, "crawl_time"),
			FullDate:        field(row, "full_date"),
		})
	}
	return records, nil
}

// LatestCSV returns the newest CSV file in dir by name order, matching how
// the crawl drops date-stamped files. ok is false when the directory holds
// no CSV files.
func LatestCSV(dir string) (string, bool, error) {
	names, err := listCSVs(dir)
	if err != nil {
		return "", false, err
	}
	if len(names) == 0 {
		return "", false, nil
	}
	return filepath.Join(dir, names[len(names)-1]), true, nil
}

// CSVForDate returns the CSV file in dir whose name carries the given
// business day (YYYY-MM-DD).
func CSVForDate(dir string, day time.Time) (string, bool, error) {
	names, err := listCSVs(dir)
	if err != nil {
		return "", false, err
	}
	stamp := day.Format("2006-01-02")
	for _, name := range names {
		if strings.Contains(name, stamp) {
			return filepath.Join(dir, name), true, nil
		}
	}
	return "", false, nil
}

func listCSVs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read crawl directory %s", dir)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Ingestor stages raw batches. The raw table is replaced wholesale on every
// ingest; concurrent ingests against the same table are unsafe and must be
// serialized by the caller.
type Ingestor struct {
	db *sqlx.DB
}

// NewIngestor creates an ingestor over the given pool.
func NewIngestor(pool *sqlx.DB) *Ingestor {
	return &Ingestor{db: pool}
}

// Ingest truncates the raw staging table and bulk-inserts the batch in one
// transaction.
func (in *Ingestor) Ingest(ctx context.Context, records []models.RawRecord) (models.Report, error) {
	if len(records) == 0 {
		return models.Report{Status: models.StatusEmpty, Message: "no raw records to stage"}, nil
	}

	tx, err := in.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Report{Status: models.StatusFailed}, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "TRUNCATE TABLE stg_price_raw"); err != nil {
		return models.Report{Status: models.StatusFailed}, errors.Wrap(err, "failed to truncate raw staging table")
	}

	if _, err := tx.NamedExecContext(ctx, insertRawQuery, records); err != nil {
		return models.Report{Status: models.StatusFailed}, errors.Wrap(err, "failed to bulk-insert raw records")
	}

	if err := tx.Commit(); err != nil {
		return models.Report{Status: models.StatusFailed}, errors.Wrap(err, "failed to commit raw batch")
	}

	log.Printf("Staged %d raw records", len(records))
	msg := fmt.Sprintf("staged %d raw records", len(records))
	return models.Report{
		Status:       models.StatusSuccess,
		Message:      msg,
		RowsSeen:     len(records),
		RowsAffected: len(records),
	}, nil
}
