package models

import "time"

// TeacherSignIn is one logged sign-in for a teacher-led session.
// Hours may be stored at write time; legacy rows without it get their
// duration derived from the start/end clock strings.
type TeacherSignIn struct {
	ID           string    `db:"id" json:"id"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	TeacherName  string    `db:"teacher_name" json:"teacher_name"`
	ClassID      string    `db:"class_id" json:"class_id"`
	ClassLabel   string    `db:"class_label" json:"class_label"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	SubjectLabel string    `db:"subject_label" json:"subject_label"`
	Start        string    `db:"start_time" json:"start"`
	End          string    `db:"end_time" json:"end"`
	Hours        *float64  `db:"hours" json:"hours,omitempty"`
	Room         string    `db:"room" json:"room"`
	Date         time.Time `db:"date" json:"date"`
	RecordedAt   time.Time `db:"recorded_at" json:"recorded_at"`
}

// TeacherHoursSummary aggregates one teacher's hours for a month,
// grouped class label -> subject label -> hours. TotalHours is computed
// independently and always equals the sum of the leaf values.
type TeacherHoursSummary struct {
	TeacherID   string                        `json:"teacher_id"`
	TeacherName string                        `json:"teacher_name"`
	TotalHours  float64                       `json:"total_hours"`
	ByClass     map[string]map[string]float64 `json:"by_class"`
}

// TeacherDaySheet lists a teacher's raw sign-ins for one day, sorted by
// start time, with the day total appended.
type TeacherDaySheet struct {
	TeacherID   string          `json:"teacher_id"`
	TeacherName string          `json:"teacher_name"`
	Rows        []TeacherSignIn `json:"rows"`
	TotalHours  float64         `json:"total_hours"`
}
