package models

import "time"

// Semester is an institution-defined teaching period that partitions
// the academic year. Institutions run up to six per year.
type Semester string

// Valid reports whether the value is one of the known semesters.
func (s Semester) Valid() bool {
	switch s {
	case "S1", "S2", "S3", "S4", "S5", "S6":
		return true
	}
	return false
}

// AcademicYear is one school year. Rows are append-only and the label
// is the YYYY-YYYY form.
type AcademicYear struct {
	ID        string    `db:"id" json:"id"`
	Label     string    `db:"label" json:"label"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
