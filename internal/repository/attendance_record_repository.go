package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edusuite/presence-api/internal/models"
)

// AttendanceRecordRepository is the store adapter for attendance
// records. It is a pure key/range accessor; business rules live in the
// services.
type AttendanceRecordRepository struct {
	db *sqlx.DB
}

// NewAttendanceRecordRepository constructs the repository.
func NewAttendanceRecordRepository(db *sqlx.DB) *AttendanceRecordRepository {
	return &AttendanceRecordRepository{db: db}
}

const attendanceColumns = `id, academic_year_id, academic_year_label, class_id, class_label, semester, date, day_of_week,
start_time, end_time, room, teacher_name, subject_id, subject_label, absences, created_at, updated_at`

// Find performs the composite-key lookup for one session occurrence.
// All seven key fields must match exactly; the date is compared at day
// granularity. Returns sql.ErrNoRows when no record was taken yet.
func (r *AttendanceRecordRepository) Find(ctx context.Context, key models.SessionKey) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records
WHERE class_id = $1 AND academic_year_id = $2 AND semester = $3 AND date = $4
AND subject_id = $5 AND start_time = $6 AND end_time = $7`, attendanceColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query,
		key.ClassID, key.AcademicYearID, key.Semester, key.Date, key.SubjectID, key.Start, key.End); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListRange returns all records whose date falls inside the inclusive
// filter bounds, narrowed by class and academic year when set. Rows are
// ordered by date ascending so that scans are deterministic.
func (r *AttendanceRecordRepository) ListRange(ctx context.Context, filter models.AttendanceRangeFilter) ([]models.AttendanceRecord, error) {
	where := []string{"date >= $1", "date <= $2"}
	args := []interface{}{filter.From, filter.To}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.AcademicYearID != "" {
		where = append(where, fmt.Sprintf("academic_year_id = $%d", len(args)+1))
		args = append(args, filter.AcademicYearID)
	}
	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE %s ORDER BY date ASC, start_time ASC`,
		attendanceColumns, strings.Join(where, " AND "))
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	return records, nil
}

// Upsert inserts or replaces the record for its session key. The
// absences map is replaced wholesale; amendments are expressed as
// additional entries inside the map supplied by the caller.
func (r *AttendanceRecordRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	query := fmt.Sprintf(`INSERT INTO attendance_records (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT (class_id, academic_year_id, semester, date, subject_id, start_time, end_time)
DO UPDATE SET absences = EXCLUDED.absences, room = EXCLUDED.room, teacher_name = EXCLUDED.teacher_name,
class_label = EXCLUDED.class_label, subject_label = EXCLUDED.subject_label, updated_at = EXCLUDED.updated_at
RETURNING %s`, attendanceColumns, attendanceColumns)
	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query,
		record.ID, record.AcademicYearID, record.AcademicYearLabel, record.ClassID, record.ClassLabel,
		record.Semester, record.Date, record.DayOfWeek, record.Start, record.End, record.Room,
		record.TeacherName, record.SubjectID, record.SubjectLabel, record.Absences,
		record.CreatedAt, record.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert attendance record: %w", err)
	}
	return &stored, nil
}
