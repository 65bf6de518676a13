package warehouse

import (
	"testing"
	"time"
)

func TestBuildDateDimRow(t *testing.T) {
	// 2025-03-14 is a Friday in ISO week 11.
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	row := buildDateDimRow(20250314, day)

	if row.DateSK != 20250314 {
		t.Errorf("DateSK = %d, want 20250314", row.DateSK)
	}
	if row.DayOfWeek != "Friday" {
		t.Errorf("DayOfWeek = %q, want Friday", row.DayOfWeek)
	}
	if row.CalendarMonth != "March" {
		t.Errorf("CalendarMonth = %q, want March", row.CalendarMonth)
	}
	if row.CalendarYear != 2025 {
		t.Errorf("CalendarYear = %d, want 2025", row.CalendarYear)
	}
	if row.CalendarYearMonth != "2025-03" {
		t.Errorf("CalendarYearMonth = %q, want 2025-03", row.CalendarYearMonth)
	}
	if row.DayOfMonth != 14 {
		t.Errorf("DayOfMonth = %d, want 14", row.DayOfMonth)
	}
	if row.DayOfYear != 73 {
		t.Errorf("DayOfYear = %d, want 73", row.DayOfYear)
	}
	if row.WeekOfYearMonday != 11 {
		t.Errorf("WeekOfYearMonday = %d, want 11", row.WeekOfYearMonday)
	}
	// Jan 1 2025 is a Wednesday, so Sunday-based weeks roll over early.
	if row.WeekOfYearSunday != 11 {
		t.Errorf("WeekOfYearSunday = %d, want 11", row.WeekOfYearSunday)
	}
}

func TestBuildDateDimRowYearStart(t *testing.T) {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	row := buildDateDimRow(20250101, day)

	if row.DayOfYear != 1 || row.DayOfMonth != 1 {
		t.Errorf("unexpected day fields: %+v", row)
	}
	if row.WeekOfYearSunday != 1 {
		t.Errorf("WeekOfYearSunday = %d, want 1", row.WeekOfYearSunday)
	}
}
