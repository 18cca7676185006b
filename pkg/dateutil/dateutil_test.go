package dateutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestISODateRoundTrip(t *testing.T) {
	parsed, err := FromISODate("2024-09-03")
	require.NoError(t, err)
	assert.Equal(t, "2024-09-03", ToISODate(parsed))

	_, err = FromISODate("03/09/2024")
	assert.Error(t, err)
}

func TestDayOfWeekMondayFirst(t *testing.T) {
	// 2024-09-02 is a Monday.
	monday := time.Date(2024, time.September, 2, 0, 0, 0, 0, time.Local)
	for i := 0; i < 7; i++ {
		assert.Equal(t, i+1, DayOfWeekMondayFirst(AddDays(monday, i)))
	}
	// Every Monday of the year maps to 1, every Sunday to 7.
	for week := 0; week < 52; week++ {
		assert.Equal(t, 1, DayOfWeekMondayFirst(AddDays(monday, week*7)))
		assert.Equal(t, 7, DayOfWeekMondayFirst(AddDays(monday, week*7+6)))
	}
}

func TestDayBounds(t *testing.T) {
	ts := time.Date(2024, time.May, 14, 13, 45, 12, 0, time.Local)
	start := StartOfDay(ts)
	end := EndOfDay(ts)

	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 59, end.Minute())
	assert.Equal(t, 59, end.Second())

	r := DayRange(ts)
	assert.True(t, r.Contains(start))
	assert.True(t, r.Contains(end))
	assert.False(t, r.Contains(end.Add(time.Millisecond)))
}

func TestAcademicYearRange(t *testing.T) {
	r, err := AcademicYearRange("2024-2025")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.September, 1, 0, 0, 0, 0, time.Local), r.From)
	assert.Equal(t, 2025, r.To.Year())
	assert.Equal(t, time.August, r.To.Month())
	assert.Equal(t, 31, r.To.Day())

	// Boundary days are inside the range.
	assert.True(t, r.Contains(time.Date(2024, time.September, 1, 0, 0, 0, 0, time.Local)))
	assert.True(t, r.Contains(time.Date(2025, time.August, 31, 23, 0, 0, 0, time.Local)))
	assert.False(t, r.Contains(time.Date(2025, time.September, 1, 0, 0, 0, 0, time.Local)))
}

func TestParseAcademicYearLabel(t *testing.T) {
	left, right, err := ParseAcademicYearLabel("2023-2024")
	require.NoError(t, err)
	assert.Equal(t, 2023, left)
	assert.Equal(t, 2024, right)

	for _, bad := range []string{"2023", "2023-2025", "23-24", "abcd-efgh"} {
		_, _, err := ParseAcademicYearLabel(bad)
		assert.Error(t, err, bad)
	}
}

func TestLookbackRanges(t *testing.T) {
	ref := time.Date(2024, time.March, 31, 10, 0, 0, 0, time.Local)

	week := LastWeekRange(ref)
	assert.Equal(t, time.Date(2024, time.March, 25, 0, 0, 0, 0, time.Local), week.From)

	month := Last30DaysRange(ref)
	assert.Equal(t, time.Date(2024, time.March, 2, 0, 0, 0, 0, time.Local), month.From)

	quarter := LastQuarterRange(ref)
	assert.Equal(t, time.December, quarter.From.Month())
	assert.Equal(t, 31, quarter.From.Day())

	// September has no 31st; the window starts on its last day instead
	// of spilling into October.
	half := LastHalfYearRange(ref)
	assert.Equal(t, time.September, half.From.Month())
	assert.Equal(t, 30, half.From.Day())
	assert.Equal(t, 2023, half.From.Year())
}

func TestMonthRange(t *testing.T) {
	r := MonthRange(2024, time.February)
	assert.Equal(t, 1, r.From.Day())
	assert.Equal(t, 29, r.To.Day()) // leap year
}

func TestMonthsOf(t *testing.T) {
	r := DateRange{
		From: time.Date(2024, time.September, 15, 0, 0, 0, 0, time.Local),
		To:   EndOfDay(time.Date(2024, time.November, 10, 0, 0, 0, 0, time.Local)),
	}
	parts := MonthsOf(r)
	require.Len(t, parts, 3)
	assert.Equal(t, 15, parts[0].From.Day())
	assert.Equal(t, time.October, parts[1].From.Month())
	assert.Equal(t, 1, parts[1].From.Day())
	assert.Equal(t, 10, parts[2].To.Day())

	single := MonthsOf(DayRange(time.Date(2024, time.May, 3, 0, 0, 0, 0, time.Local)))
	require.Len(t, single, 1)
	assert.Equal(t, 3, single[0].From.Day())
}

func TestMinutesOfClock(t *testing.T) {
	m, err := MinutesOfClock("08:30")
	require.NoError(t, err)
	assert.Equal(t, 510, m)

	for _, bad := range []string{"8h30", "25:00", "10:75", ""} {
		_, err := MinutesOfClock(bad)
		assert.Error(t, err, bad)
	}
}
