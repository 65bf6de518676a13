package warehouse

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/models"
)

const insertDateDimQuery = `
	INSERT INTO dim_date (
		date_sk, full_date, day_of_week, calendar_month, calendar_year,
		calendar_year_month, day_of_month, day_of_year,
		week_of_year_sunday, week_of_year_monday
	) VALUES (
		:date_sk, :full_date, :day_of_week, :calendar_month, :calendar_year,
		:calendar_year_month, :day_of_month, :day_of_year,
		:week_of_year_sunday, :week_of_year_monday
	) ON CONFLICT (date_sk) DO NOTHING`

// PreloadDateDim loads the calendar CSV into dim_date. The CSV must carry
// date_sk and full_date columns; all calendar attributes are derived from
// full_date. Rows whose surrogate already exists are left untouched, so the
// preload can be re-run safely.
func PreloadDateDim(ctx context.Context, pool *sqlx.DB, csvPath string) (int, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to open calendar CSV %s", csvPath)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read calendar CSV header")
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"date_sk", "full_date"} {
		if _, ok := col[required]; !ok {
			return 0, fmt.Errorf("calendar CSV is missing required column %q", required)
		}
	}

	inserted := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return inserted, errors.Wrap(err, "failed to read calendar CSV row")
		}

		sk, err := strconv.ParseInt(record[col["date_sk"]], 10, 64)
		if err != nil {
			log.Printf("Skipping calendar row with bad date_sk %q", record[col["date_sk"]])
			continue
		}
		day, err := time.Parse("2006-01-02", record[col["full_date"]])
		if err != nil {
			log.Printf("Skipping calendar row with bad full_date %q", record[col["full_date"]])
			continue
		}

		row := buildDateDimRow(sk, day)
		if _, err := pool.NamedExecContext(ctx, insertDateDimQuery, row); err != nil {
			return inserted, errors.Wrapf(err, "failed to insert dim_date row %d", sk)
		}
		inserted++
	}

	log.Printf("Preloaded %d dim_date rows from %s", inserted, csvPath)
	return inserted, nil
}

func buildDateDimRow(sk int64, day time.Time) *models.DateDimRow {
	_, isoWeek := day.ISOWeek()

	// Week-of-year with Sunday as the first day, counted from January 1.
	weekSunday := (day.YearDay()+int(time.Date(day.Year(), 1, 1, 0, 0, 0, 0, day.Location()).Weekday())-1)/7 + 1

	return &models.DateDimRow{
		DateSK:            sk,
		FullDate:          day,
		DayOfWeek:         day.Weekday().String(),
		CalendarMonth:     day.Month().String(),
		CalendarYear:      day.Year(),
		CalendarYearMonth: day.Format("2006-01"),
		DayOfMonth:        day.Day(),
		DayOfYear:         day.YearDay(),
		WeekOfYearSunday:  weekSunday,
		WeekOfYearMonday:  isoWeek,
	}
}
