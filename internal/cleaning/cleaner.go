// Package cleaning normalizes raw scraped listings into typed clean records.
//
// The policy is best-effort: one bad numeric field never fails a batch. A
// price that cannot be parsed becomes 0, a date that matches no known format
// falls back to the processing timestamp, and only records without a product
// name are dropped outright.
package cleaning

import (
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/models"
)

// nonDigits matches everything that is not an ASCII digit. Price fields carry
// thousands separators and currency glyphs ("1.234.000₫", "1,234,000 đ") that
// are stripped before parsing.
var nonDigits = regexp.MustCompile(`[^0-9]`)

// timestampFormats is the fixed priority order for parsing crawl timestamps.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// CleanPrice parses a scraped price string into a numeric value. Unparseable
// or empty input yields 0, never an error.
func CleanPrice(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	s = nonDigits.ReplaceAllString(s, "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// CleanDiscount parses a discount string like "13%" or "-15%" into a
// non-negative integer percentage. Non-numeric input yields 0.
func CleanDiscount(raw string) int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	s = strings.NewReplacer("%", "", ",", "", "+", "", "-", "", "−", "").Replace(s)
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	if v < 0 {
		v = -v
	}
	return int(v)
}

// ParseTimestamp tries each known timestamp format in priority order. When
// none matches it returns the current time and false; the caller counts
// these fallbacks as a data-quality signal.
func ParseTimestamp(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Now(), false
	}
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Now(), false
}

// Stats summarizes one cleaning pass.
type Stats struct {
	Seen          int
	Cleaned       int
	Dropped       int
	DateFallbacks int
}

// Cleaner transforms RawRecords into validated CleanRecords.
type Cleaner struct {
	validate *validator.Validate
}

// NewCleaner creates a Cleaner.
func NewCleaner() *Cleaner {
	return &Cleaner{validate: validator.New()}
}

// Clean processes one raw batch and returns the clean records that survive.
// Records with an empty or whitespace-only product name are dropped silently;
// everything else is kept under the best-effort numeric policy.
func (c *Cleaner) Clean(raws []models.RawRecord) ([]models.CleanRecord, Stats) {
	stats := Stats{Seen: len(raws)}
	result := make([]models.CleanRecord, 0, len(raws))

	for i := range raws {
		r := &raws[i]

		name := strings.TrimSpace(r.ProductName)
		if name == "" {
			stats.Dropped++
			continue
		}

		brand := strings.TrimSpace(r.BrandName)
		if brand == "" {
			brand = "Unknown"
		}

		fullDate, parsed := ParseTimestamp(r.FullDate)
		if !parsed {
			stats.DateFallbacks++
		}

		rec := models.CleanRecord{
			ProductName:     name,
			Brand:           brand,
			Price:           CleanPrice(r.Price),
			OldPrice:        CleanPrice(r.OldPrice),
			DiscountPercent: CleanDiscount(r.DiscountPercent),
			AdditionalInfo:  strings.TrimSpace(r.AdditionalInfo),
			ImageURL:        strings.TrimSpace(r.ImageURL),
			ProductURL:      strings.TrimSpace(r.ProductURL),
			SourceName:      strings.TrimSpace(r.SourceName),
			SourceURL:       strings.TrimSpace(r.SourceURL),
			CrawlDate:       strings.TrimSpace(r.CrawlDate),
			CrawlTime:       strings.TrimSpace(r.CrawlTime),
			FullDate:        fullDate,
		}

		if err := c.validate.Struct(&rec); err != nil {
			log.Printf("Dropping record %q: %v", name, err)
			stats.Dropped++
			continue
		}

		result = append(result, rec)
		stats.Cleaned++
	}

	if stats.DateFallbacks > 0 {
		log.Printf("Warning: %d of %d records had unparseable full_date values, substituted processing time", stats.DateFallbacks, stats.Seen)
	}
	log.Printf("Cleaned %d/%d records (dropped %d)", stats.Cleaned, stats.Seen, stats.Dropped)
	return result, stats
}
