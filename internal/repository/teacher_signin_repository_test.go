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

func signInRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "teacher_id", "teacher_name", "class_id", "class_label", "subject_id", "subject_label",
		"start_time", "end_time", "hours", "room", "date", "recorded_at",
	})
}

func TestTeacherSignInCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherSignInRepository(db)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	rows := signInRows().AddRow(
		"sign-1", "t1", "Awa Ndiaye", "3eme-A", "3eme A", "math", "Mathematics",
		"08:00", "10:00", nil, "B12", day, time.Now(),
	)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO teacher_sign_ins")).
		WillReturnRows(rows)

	stored, err := repo.Create(context.Background(), &models.TeacherSignIn{
		TeacherID:    "t1",
		TeacherName:  "Awa Ndiaye",
		ClassID:      "3eme-A",
		ClassLabel:   "3eme A",
		SubjectID:    "math",
		SubjectLabel: "Mathematics",
		Start:        "08:00",
		End:          "10:00",
		Date:         day,
	})
	require.NoError(t, err)
	assert.Equal(t, "sign-1", stored.ID)
	assert.Nil(t, stored.Hours)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherSignInListBetweenScopesByTeacher(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherSignInRepository(db)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("recorded_at >= $1 AND recorded_at <= $2 AND teacher_id = $3 ORDER BY date ASC, start_time ASC")).
		WithArgs(from, to, "t1").
		WillReturnRows(signInRows())

	rows, err := repo.ListBetween(context.Background(), from, to, "t1")
	require.NoError(t, err)
	assert.Empty(t, rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherSignInListBetweenAllTeachers(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherSignInRepository(db)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("recorded_at >= $1 AND recorded_at <= $2 ORDER BY date ASC, start_time ASC")).
		WithArgs(from, to).
		WillReturnRows(signInRows().AddRow(
			"sign-1", "t1", "Awa Ndiaye", "3eme-A", "3eme A", "math", "Mathematics",
			"08:00", "10:00", 2.0, "B12", from, from.Add(8*time.Hour),
		))

	rows, err := repo.ListBetween(context.Background(), from, to, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Hours)
	assert.InDelta(t, 2.0, *rows[0].Hours, 0.0001)
	require.NoError(t, mock.ExpectationsWereMet())
}
