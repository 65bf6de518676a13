package models

import (
	"strings"
	"time"
)

// SourceSite identifies which retail site a record was scraped from.
type SourceSite string

const (
	SourceCellphoneS SourceSite = "cellphones"
	SourceTGDD       SourceSite = "tgdd"
	SourceHoangHa    SourceSite = "hoanghamobile"
)

// RawRecord is one loosely typed product listing as delivered by a scraper
// adapter. Every field is kept as text; nothing is validated at this stage.
// Raw records live only inside one staging batch and are replaced wholesale
// on the next crawl.
type RawRecord struct {
	ProductName     string `db:"product_name" csv:"product_name"`
	BrandName       string `db:"brand_name" csv:"brand_name"`
	Price           string `db:"price" csv:"price"`
	OldPrice        string `db:"old_price" csv:"old_price"`
	DiscountPercent string `db:"discount_percent" csv:"discount_percent"`
	AdditionalInfo  string `db:"additional_info" csv:"additional_info"`
	ImageURL        string `db:"image_url" csv:"image_url"`
	ProductURL      string `db:"product_url" csv:"product_url"`
	SourceName      string `db:"source_name" csv:"source_name"`
	SourceURL       string `db:"source_url" csv:"source_url"`
	CrawlDate       string `db:"crawl_date" csv:"crawl_date"`
	CrawlTime       string `db:"crawl_time" csv:"crawl_time"`
	FullDate        string `db:"full_date" csv:"full_date"`
}

// CleanRecord is the typed, validated derivative of a RawRecord. One clean
// record is produced per valid raw record; invalid raw records are dropped.
type CleanRecord struct {
	ID              int64     `db:"id" json:"id,omitempty"`
	ProductName     string    `db:"product_name" json:"product_name" validate:"required"`
	Brand           string    `db:"brand" json:"brand"`
	Price           float64   `db:"price" json:"price" validate:"gte=0"`
	OldPrice        float64   `db:"old_price" json:"old_price" validate:"gte=0"`
	DiscountPercent int       `db:"discount_percent" json:"discount_percent" validate:"gte=0"`
	AdditionalInfo  string    `db:"additional_info" json:"additional_info"`
	ImageURL        string    `db:"image_url" json:"image_url"`
	ProductURL      string    `db:"product_url" json:"product_url"`
	SourceName      string    `db:"source_name" json:"source_name"`
	SourceURL       string    `db:"source_url" json:"source_url"`
	CrawlDate       string    `db:"crawl_date" json:"crawl_date"`
	CrawlTime       string    `db:"crawl_time" json:"crawl_time"`
	FullDate        time.Time `db:"full_date" json:"full_date"`
}

// NaturalKey returns the business identity of the product this record
// describes: the product URL when present, otherwise the product name.
func (r *CleanRecord) NaturalKey() string {
	if u := strings.TrimSpace(r.ProductURL); u != "" {
		return u
	}
	return strings.TrimSpace(r.ProductName)
}

// PriceVersion is one SCD Type 2 row in the price history table: the tracked
// attributes of a natural key over one validity window. A row with
// IsCurrent=true has ValidTo=nil; closed rows are immutable.
type PriceVersion struct {
	ID              int64      `db:"id" json:"id,omitempty"`
	NaturalKey      string     `db:"natural_key" json:"natural_key"`
	ProductName     string     `db:"product_name" json:"product_name"`
	Brand           string     `db:"brand" json:"brand"`
	CurrentPrice    float64    `db:"current_price" json:"current_price"`
	OriginalPrice   float64    `db:"original_price" json:"original_price"`
	DiscountPercent int        `db:"discount_percent" json:"discount_percent"`
	AdditionalInfo  string     `db:"additional_info" json:"additional_info"`
	ImageURL        string     `db:"image_url" json:"image_url"`
	ProductURL      string     `db:"product_url" json:"product_url"`
	SourceName      string     `db:"source_name" json:"source_name"`
	SourceURL       string     `db:"source_url" json:"source_url"`
	CrawlDate       string     `db:"crawl_date" json:"crawl_date"`
	CrawlTime       string     `db:"crawl_time" json:"crawl_time"`
	FullDate        time.Time  `db:"full_date" json:"full_date"`
	ValidFrom       time.Time  `db:"valid_from" json:"valid_from"`
	ValidTo         *time.Time `db:"valid_to" json:"valid_to,omitempty"`
	IsCurrent       bool       `db:"is_current" json:"is_current"`
}

// FactPriceObservation is one immutable fact row: a price observed for a
// product at a crawl timestamp, keyed by the four dimension surrogates.
type FactPriceObservation struct {
	ID              int64     `db:"id" json:"id,omitempty"`
	ProductID       int64     `db:"product_id" json:"product_id"`
	BrandID         int64     `db:"brand_id" json:"brand_id"`
	SourceID        int64     `db:"source_id" json:"source_id"`
	DateSK          int64     `db:"date_sk" json:"date_sk"`
	Price           float64   `db:"price" json:"price"`
	DiscountPercent int       `db:"discount_percent" json:"discount_percent"`
	CrawlDate       string    `db:"crawl_date" json:"crawl_date"`
	CrawlTime       string    `db:"crawl_time" json:"crawl_time"`
	FullDate        time.Time `db:"full_date" json:"full_date"`
}

// DateDimRow is one pre-populated calendar row in dim_date. The loader only
// ever looks these up; they are created out of band from a calendar CSV.
type DateDimRow struct {
	DateSK            int64     `db:"date_sk" csv:"date_sk"`
	FullDate          time.Time `db:"full_date" csv:"full_date"`
	DayOfWeek         string    `db:"day_of_week" csv:"day_of_week"`
	CalendarMonth     string    `db:"calendar_month" csv:"calendar_month"`
	CalendarYear      int       `db:"calendar_year" csv:"calendar_year"`
	CalendarYearMonth string    `db:"calendar_year_month" csv:"calendar_year_month"`
	DayOfMonth        int       `db:"day_of_month" csv:"day_of_month"`
	DayOfYear         int       `db:"day_of_year" csv:"day_of_year"`
	WeekOfYearSunday  int       `db:"week_of_year_sunday" csv:"week_of_year_sunday"`
	WeekOfYearMonday  int       `db:"week_of_year_monday" csv:"week_of_year_monday"`
}
