package dto

import (
	"fmt"
	"time"

	"github.com/edusuite/presence-api/pkg/dateutil"
)

// RangePreset names a default lookback window for absence queries.
type RangePreset string

const (
	PresetWeek         RangePreset = "week"
	Preset30Days       RangePreset = "30d"
	PresetQuarter      RangePreset = "quarter"
	PresetHalfYear     RangePreset = "half_year"
	PresetAcademicYear RangePreset = "academic_year"
)

// Valid reports whether the preset is supported.
func (p RangePreset) Valid() bool {
	switch p {
	case PresetWeek, Preset30Days, PresetQuarter, PresetHalfYear, PresetAcademicYear:
		return true
	default:
		return false
	}
}

// AbsenceSummaryQuery carries the parameters of a range-scoped absence
// aggregation. Either From/To or Preset must be provided; the academic
// year preset additionally needs the year label.
type AbsenceSummaryQuery struct {
	From              string      `form:"from"`
	To                string      `form:"to"`
	Preset            RangePreset `form:"preset"`
	ClassID           string      `form:"classId"`
	AcademicYearID    string      `form:"yearId"`
	AcademicYearLabel string      `form:"yearLabel"`
}

// Resolve normalises the query into an inclusive date range. Explicit
// bounds win over presets; reversed bounds are swapped.
func (q AbsenceSummaryQuery) Resolve(now time.Time) (dateutil.DateRange, error) {
	if q.From != "" || q.To != "" {
		if q.From == "" || q.To == "" {
			return dateutil.DateRange{}, fmt.Errorf("both from and to are required for an explicit range")
		}
		from, err := dateutil.FromISODate(q.From)
		if err != nil {
			return dateutil.DateRange{}, err
		}
		to, err := dateutil.FromISODate(q.To)
		if err != nil {
			return dateutil.DateRange{}, err
		}
		if to.Before(from) {
			from, to = to, from
		}
		return dateutil.DateRange{From: dateutil.StartOfDay(from), To: dateutil.EndOfDay(to)}, nil
	}

	switch q.Preset {
	case PresetWeek:
		return dateutil.LastWeekRange(now), nil
	case Preset30Days:
		return dateutil.Last30DaysRange(now), nil
	case PresetQuarter:
		return dateutil.LastQuarterRange(now), nil
	case PresetHalfYear:
		return dateutil.LastHalfYearRange(now), nil
	case PresetAcademicYear:
		if q.AcademicYearLabel == "" {
			return dateutil.DateRange{}, fmt.Errorf("yearLabel is required for the academic_year preset")
		}
		return dateutil.AcademicYearRange(q.AcademicYearLabel)
	case "":
		return dateutil.DateRange{}, fmt.Errorf("either from/to or preset must be provided")
	default:
		return dateutil.DateRange{}, fmt.Errorf("unknown range preset %q", q.Preset)
	}
}

// ScopeTag derives the tag aggregation results are stamped with, so a
// consumer can verify a response still matches its current scope before
// applying it.
func (q AbsenceSummaryQuery) ScopeTag(r dateutil.DateRange) string {
	scope := "global"
	if q.ClassID != "" {
		scope = "class:" + q.ClassID
	}
	if q.AcademicYearID != "" {
		scope += "|year:" + q.AcademicYearID
	}
	return fmt.Sprintf("%s|%s..%s", scope, dateutil.ToISODate(r.From), dateutil.ToISODate(r.To))
}
