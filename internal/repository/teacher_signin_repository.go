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

// TeacherSignInRepository persists teacher session sign-ins.
type TeacherSignInRepository struct {
	db *sqlx.DB
}

// NewTeacherSignInRepository constructs the repository.
func NewTeacherSignInRepository(db *sqlx.DB) *TeacherSignInRepository {
	return &TeacherSignInRepository{db: db}
}

const signInColumns = `id, teacher_id, teacher_name, class_id, class_label, subject_id, subject_label,
start_time, end_time, hours, room, date, recorded_at`

// Create inserts a new sign-in row.
func (r *TeacherSignInRepository) Create(ctx context.Context, signIn *models.TeacherSignIn) (*models.TeacherSignIn, error) {
	if signIn.ID == "" {
		signIn.ID = uuid.NewString()
	}
	if signIn.RecordedAt.IsZero() {
		signIn.RecordedAt = time.Now().UTC()
	}
	query := fmt.Sprintf(`INSERT INTO teacher_sign_ins (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING %s`, signInColumns, signInColumns)
	var stored models.TeacherSignIn
	if err := r.db.GetContext(ctx, &stored, query,
		signIn.ID, signIn.TeacherID, signIn.TeacherName, signIn.ClassID, signIn.ClassLabel,
		signIn.SubjectID, signIn.SubjectLabel, signIn.Start, signIn.End, signIn.Hours,
		signIn.Room, signIn.Date, signIn.RecordedAt); err != nil {
		return nil, fmt.Errorf("create teacher sign-in: %w", err)
	}
	return &stored, nil
}

// ListBetween returns sign-ins whose timestamp falls in the inclusive
// [from, to] bound, optionally narrowed to one teacher. Rows come back
// ordered by date then start time for deterministic aggregation.
func (r *TeacherSignInRepository) ListBetween(ctx context.Context, from, to time.Time, teacherID string) ([]models.TeacherSignIn, error) {
	where := []string{"recorded_at >= $1", "recorded_at <= $2"}
	args := []interface{}{from, to}
	if teacherID != "" {
		where = append(where, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, teacherID)
	}
	query := fmt.Sprintf(`SELECT %s FROM teacher_sign_ins WHERE %s ORDER BY date ASC, start_time ASC`,
		signInColumns, strings.Join(where, " AND "))
	var rows []models.TeacherSignIn
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list teacher sign-ins: %w", err)
	}
	return rows, nil
}
