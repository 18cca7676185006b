package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusuite/presence-api/internal/models"
)

func slotRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "class_id", "academic_year_id", "semester", "day_of_week", "subject_id", "subject_label",
		"start_time", "end_time", "room", "teacher_name", "created_at",
	})
}

func TestScheduleSlotCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleSlotRepository(db)

	rows := slotRows().AddRow(
		"slot-1", "3eme-A", "year-1", "S1", 1, "math", "Mathematics",
		"08:00", "10:00", "B12", "Mme Diallo", time.Now(),
	)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO schedule_slots")).
		WillReturnRows(rows)

	stored, err := repo.Create(context.Background(), &models.ScheduleSlot{
		ClassID:        "3eme-A",
		AcademicYearID: "year-1",
		Semester:       "S1",
		DayOfWeek:      1,
		SubjectID:      "math",
		SubjectLabel:   "Mathematics",
		Start:          "08:00",
		End:            "10:00",
		Room:           "B12",
		TeacherName:    "Mme Diallo",
	})
	require.NoError(t, err)
	assert.Equal(t, "slot-1", stored.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleSlotListByClassNarrowsFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("class_id = $1 AND academic_year_id = $2 AND semester = $3 ORDER BY day_of_week ASC, created_at ASC")).
		WithArgs("3eme-A", "year-1", models.Semester("S1")).
		WillReturnRows(slotRows())

	slots, err := repo.ListByClass(context.Background(), "3eme-A", "year-1", "S1")
	require.NoError(t, err)
	assert.Empty(t, slots)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleSlotDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_slots WHERE id = $1")).
		WithArgs("slot-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "slot-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
