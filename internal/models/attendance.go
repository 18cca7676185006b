package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AbsenceEntry is one recorded absence for a student within a session.
// Amended attendance produces multiple entries per student per session.
type AbsenceEntry struct {
	Kind              string    `json:"kind"`
	Timestamp         time.Time `json:"timestamp"`
	AcademicYearLabel string    `json:"academic_year_label"`
	Semester          Semester  `json:"semester"`
	Start             string    `json:"start"`
	End               string    `json:"end"`
	Room              string    `json:"room"`
	TeacherName       string    `json:"teacher_name"`
	SubjectID         string    `json:"subject_id"`
	SubjectLabel      string    `json:"subject_label"`
	StudentID         string    `json:"student_id"`
	StudentFullName   string    `json:"student_full_name"`
}

// AbsenceEntryKind is the discriminator stored on every entry.
const AbsenceEntryKind = "absence"

// AbsenceMap holds absence entries keyed by student matricule. A student
// key is present only when that student has at least one entry. Stored
// as a JSONB column.
type AbsenceMap map[string][]AbsenceEntry

// Value implements driver.Valuer for JSONB persistence.
func (m AbsenceMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB retrieval.
func (m *AbsenceMap) Scan(src interface{}) error {
	if src == nil {
		*m = AbsenceMap{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported absence map source type %T", src)
	}
	return json.Unmarshal(raw, m)
}

// AttendanceRecord is the persisted document for one session occurrence
// that has been taken: fixed session metadata plus the absentee map.
type AttendanceRecord struct {
	ID                string     `db:"id" json:"id"`
	AcademicYearID    string     `db:"academic_year_id" json:"academic_year_id"`
	AcademicYearLabel string     `db:"academic_year_label" json:"academic_year_label"`
	ClassID           string     `db:"class_id" json:"class_id"`
	ClassLabel        string     `db:"class_label" json:"class_label"`
	Semester          Semester   `db:"semester" json:"semester"`
	Date              time.Time  `db:"date" json:"date"`
	DayOfWeek         int        `db:"day_of_week" json:"day_of_week"`
	Start             string     `db:"start_time" json:"start"`
	End               string     `db:"end_time" json:"end"`
	Room              string     `db:"room" json:"room"`
	TeacherName       string     `db:"teacher_name" json:"teacher_name"`
	SubjectID         string     `db:"subject_id" json:"subject_id"`
	SubjectLabel      string     `db:"subject_label" json:"subject_label"`
	Absences          AbsenceMap `db:"absences" json:"absences"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// AttendanceRangeFilter scopes range queries over attendance records.
// From/To are inclusive day bounds; ClassID and AcademicYearID narrow
// the scan when set.
type AttendanceRangeFilter struct {
	From           time.Time
	To             time.Time
	ClassID        string
	AcademicYearID string
}

// AbsenteeRow is one line of a session-scoped absentee report.
type AbsenteeRow struct {
	StudentID       string         `json:"student_id"`
	StudentFullName string         `json:"student_full_name"`
	Count           int            `json:"count"`
	Entries         []AbsenceEntry `json:"entries"`
}

// StudentAbsenceSummary is the per-student result of a range-scoped
// aggregation. Built fresh per query and discarded after the response.
type StudentAbsenceSummary struct {
	StudentID       string         `json:"student_id"`
	StudentFullName string         `json:"student_full_name"`
	ClassLabel      string         `json:"class_label"`
	TotalCount      int            `json:"total_count"`
	Entries         []AbsenceEntry `json:"details"`
}
