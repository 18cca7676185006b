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

// ScheduleSlotRepository persists the weekly template slots of classes.
type ScheduleSlotRepository struct {
	db *sqlx.DB
}

// NewScheduleSlotRepository constructs the repository.
func NewScheduleSlotRepository(db *sqlx.DB) *ScheduleSlotRepository {
	return &ScheduleSlotRepository{db: db}
}

const slotColumns = `id, class_id, academic_year_id, semester, day_of_week, subject_id, subject_label,
start_time, end_time, room, teacher_name, created_at`

// Create inserts a new slot. Overlap between slots is not validated.
func (r *ScheduleSlotRepository) Create(ctx context.Context, slot *models.ScheduleSlot) (*models.ScheduleSlot, error) {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}
	query := fmt.Sprintf(`INSERT INTO schedule_slots (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING %s`, slotColumns, slotColumns)
	var stored models.ScheduleSlot
	if err := r.db.GetContext(ctx, &stored, query,
		slot.ID, slot.ClassID, slot.AcademicYearID, slot.Semester, slot.DayOfWeek,
		slot.SubjectID, slot.SubjectLabel, slot.Start, slot.End, slot.Room,
		slot.TeacherName, slot.CreatedAt); err != nil {
		return nil, fmt.Errorf("create schedule slot: %w", err)
	}
	return &stored, nil
}

// ListByClass returns all slots of a class, optionally narrowed by
// academic year and semester. Source order is day, then insertion.
func (r *ScheduleSlotRepository) ListByClass(ctx context.Context, classID, academicYearID string, semester models.Semester) ([]models.ScheduleSlot, error) {
	where := []string{"class_id = $1"}
	args := []interface{}{classID}
	if academicYearID != "" {
		where = append(where, fmt.Sprintf("academic_year_id = $%d", len(args)+1))
		args = append(args, academicYearID)
	}
	if semester != "" {
		where = append(where, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, semester)
	}
	query := fmt.Sprintf(`SELECT %s FROM schedule_slots WHERE %s ORDER BY day_of_week ASC, created_at ASC`,
		slotColumns, strings.Join(where, " AND "))
	var slots []models.ScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list schedule slots: %w", err)
	}
	return slots, nil
}

// Delete removes one slot by id.
func (r *ScheduleSlotRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedule_slots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule slot: %w", err)
	}
	return nil
}
