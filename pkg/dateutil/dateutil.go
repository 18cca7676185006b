package dateutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ISOLayout is the calendar-date layout used across the API.
const ISOLayout = "2006-01-02"

// ToISODate formats a timestamp as a local calendar date.
func ToISODate(t time.Time) string {
	return t.Format(ISOLayout)
}

// FromISODate parses a YYYY-MM-DD string into a midnight local time.
func FromISODate(s string) (time.Time, error) {
	t, err := time.Parse(ISOLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse iso date %q: %w", s, err)
	}
	return t, nil
}

// DayOfWeekMondayFirst returns the ISO weekday: Monday=1 .. Sunday=7.
func DayOfWeekMondayFirst(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// StartOfDay truncates a timestamp to 00:00:00.000.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the inclusive upper bound of a day, 23:59:59.999.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// AddDays shifts a date by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DateRange bounds an inclusive calendar interval.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether ts falls inside the inclusive range.
func (r DateRange) Contains(ts time.Time) bool {
	return !ts.Before(r.From) && !ts.After(r.To)
}

// DayRange bounds a single calendar day.
func DayRange(day time.Time) DateRange {
	return DateRange{From: StartOfDay(day), To: EndOfDay(day)}
}

// MonthRange bounds a calendar month.
func MonthRange(year int, month time.Month) DateRange {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	last := first.AddDate(0, 1, -1)
	return DateRange{From: first, To: EndOfDay(last)}
}

// LastWeekRange covers the 7 days ending at ref, inclusive.
func LastWeekRange(ref time.Time) DateRange {
	return lookback(ref, 6)
}

// Last30DaysRange covers the 30 days ending at ref, inclusive.
func Last30DaysRange(ref time.Time) DateRange {
	return lookback(ref, 29)
}

// LastQuarterRange covers the trailing 3 months ending at ref.
func LastQuarterRange(ref time.Time) DateRange {
	return DateRange{From: StartOfDay(monthsBack(ref, 3)), To: EndOfDay(ref)}
}

// LastHalfYearRange covers the trailing 6 months ending at ref.
func LastHalfYearRange(ref time.Time) DateRange {
	return DateRange{From: StartOfDay(monthsBack(ref, 6)), To: EndOfDay(ref)}
}

func lookback(ref time.Time, days int) DateRange {
	return DateRange{From: StartOfDay(AddDays(ref, -days)), To: EndOfDay(ref)}
}

// monthsBack shifts a date n months into the past, clamping the day to
// the target month's length. A plain AddDate would normalize month-end
// references into the following month (Mar 31 minus 6 months is Oct 1).
func monthsBack(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, -n, 0)
	day := t.Day()
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}

// ParseAcademicYearLabel validates a "YYYY-YYYY" label where the right
// year is exactly the left year plus one, returning both years.
func ParseAcademicYearLabel(label string) (int, int, error) {
	parts := strings.Split(label, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 4 {
		return 0, 0, fmt.Errorf("invalid academic year label %q, expected YYYY-YYYY", label)
	}
	left, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid academic year label %q: %w", label, err)
	}
	right, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid academic year label %q: %w", label, err)
	}
	if right != left+1 {
		return 0, 0, fmt.Errorf("invalid academic year label %q, years must be consecutive", label)
	}
	return left, right, nil
}

// AcademicYearRange maps a "Y1-Y2" label onto [Sep 1 Y1, Aug 31 Y2]
// inclusive. The September-to-August convention is fixed.
func AcademicYearRange(label string) (DateRange, error) {
	left, right, err := ParseAcademicYearLabel(label)
	if err != nil {
		return DateRange{}, err
	}
	from := time.Date(left, time.September, 1, 0, 0, 0, 0, time.Local)
	to := EndOfDay(time.Date(right, time.August, 31, 0, 0, 0, 0, time.Local))
	return DateRange{From: from, To: to}, nil
}

// MonthsOf splits an inclusive range into per-month sub-ranges clamped to
// the original bounds. Used to partition long scans.
func MonthsOf(r DateRange) []DateRange {
	if r.To.Before(r.From) {
		return nil
	}
	var parts []DateRange
	cursor := time.Date(r.From.Year(), r.From.Month(), 1, 0, 0, 0, 0, r.From.Location())
	for !cursor.After(r.To) {
		month := MonthRange(cursor.Year(), cursor.Month())
		part := month
		if part.From.Before(r.From) {
			part.From = r.From
		}
		if part.To.After(r.To) {
			part.To = r.To
		}
		parts = append(parts, part)
		cursor = cursor.AddDate(0, 1, 0)
	}
	return parts
}

// MinutesOfClock parses an "HH:MM" string into minutes since midnight.
func MinutesOfClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock time %q out of range", s)
	}
	return h*60 + m, nil
}
