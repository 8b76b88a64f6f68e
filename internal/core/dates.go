package core

import (
	"fmt"
	"time"
)

// ISODateLayout is the only date format stored on transactions.
const ISODateLayout = "2006-01-02"

// ParseISODate parses YYYY-MM-DD as a UTC midnight.
func ParseISODate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(ISODateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// IsISODate reports whether s is a valid YYYY-MM-DD calendar date.
func IsISODate(s string) bool {
	_, err := ParseISODate(s)
	return err == nil
}

// FormatISODate renders the calendar date of t (in UTC) as YYYY-MM-DD.
func FormatISODate(t time.Time) string {
	return t.UTC().Format(ISODateLayout)
}

// Today returns the current UTC calendar date.
func Today(now func() time.Time) string {
	if now == nil {
		now = time.Now
	}
	return FormatISODate(now())
}

// DaysIn returns the number of days of the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddCalendarMonths moves iso by months calendar months, keeping the day of
// month unless the target month is shorter, in which case the last day of the
// target month is used. Malformed input is returned unchanged.
func AddCalendarMonths(iso string, months int) string {
	start, err := ParseISODate(iso)
	if err != nil {
		return iso
	}

	// normalize year/month first so time.Date never rolls the day over
	target := time.Date(start.Year(), start.Month()+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	day := start.Day()
	if last := DaysIn(target.Year(), target.Month()); day > last {
		day = last
	}

	return FormatISODate(time.Date(target.Year(), target.Month(), day, 0, 0, 0, 0, time.UTC))
}

// MonthKey returns the YYYY-MM prefix used for month filtering.
func MonthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}
