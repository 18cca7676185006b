package models

import "time"

// ScheduleSlot is one entry of a class's weekly template. Slots form an
// unordered set; overlapping slots are not rejected here.
type ScheduleSlot struct {
	ID             string    `db:"id" json:"id"`
	ClassID        string    `db:"class_id" json:"class_id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	Semester       Semester  `db:"semester" json:"semester"`
	DayOfWeek      int       `db:"day_of_week" json:"day_of_week"`
	SubjectID      string    `db:"subject_id" json:"subject_id"`
	SubjectLabel   string    `db:"subject_label" json:"subject_label"`
	Start          string    `db:"start_time" json:"start"`
	End            string    `db:"end_time" json:"end"`
	Room           string    `db:"room" json:"room"`
	TeacherName    string    `db:"teacher_name" json:"teacher_name"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// SessionOccurrence is one concrete date+time instance of a recurring
// weekly slot. It is derived on every query and never persisted.
type SessionOccurrence struct {
	ClassID        string   `json:"class_id"`
	AcademicYearID string   `json:"academic_year_id"`
	Date           string   `json:"date"`
	DayOfWeek      int      `json:"day_of_week"`
	Semester       Semester `json:"semester"`
	SubjectID      string   `json:"subject_id"`
	SubjectLabel   string   `json:"subject_label"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
	Room           string   `json:"room"`
	TeacherName    string   `json:"teacher_name"`
}

// Key returns the composite session identity used for record lookups.
func (o SessionOccurrence) Key() SessionKey {
	return SessionKey{
		ClassID:        o.ClassID,
		AcademicYearID: o.AcademicYearID,
		Semester:       o.Semester,
		Date:           o.Date,
		SubjectID:      o.SubjectID,
		Start:          o.Start,
		End:            o.End,
	}
}

// SessionKey identifies one session occurrence. All seven fields must
// match exactly on lookup.
type SessionKey struct {
	ClassID        string   `json:"class_id"`
	AcademicYearID string   `json:"academic_year_id"`
	Semester       Semester `json:"semester"`
	Date           string   `json:"date"`
	SubjectID      string   `json:"subject_id"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
}
