package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edusuite/presence-api/internal/models"
	appErrors "github.com/edusuite/presence-api/pkg/errors"
)

type signInStoreStub struct {
	rows    []models.TeacherSignIn
	err     error
	created *models.TeacherSignIn
}

func (s *signInStoreStub) Create(ctx context.Context, signIn *models.TeacherSignIn) (*models.TeacherSignIn, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = signIn
	return signIn, nil
}

func (s *signInStoreStub) ListBetween(ctx context.Context, from, to time.Time, teacherID string) ([]models.TeacherSignIn, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.TeacherSignIn
	for _, row := range s.rows {
		if row.RecordedAt.Before(from) || row.RecordedAt.After(to) {
			continue
		}
		if teacherID != "" && row.TeacherID != teacherID {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func newHoursServiceForTest(store *signInStoreStub) *HoursService {
	return NewHoursService(store, nil, zap.NewNop(), "fr")
}

func signIn(teacherID, teacherName, classLabel, subjectLabel, start, end string, hours *float64, day time.Time) models.TeacherSignIn {
	return models.TeacherSignIn{
		ID:           fmt.Sprintf("%s-%s-%s", teacherID, classLabel, start),
		TeacherID:    teacherID,
		TeacherName:  teacherName,
		ClassID:      classLabel,
		ClassLabel:   classLabel,
		SubjectID:    subjectLabel,
		SubjectLabel: subjectLabel,
		Start:        start,
		End:          end,
		Hours:        hours,
		Date:         day,
		RecordedAt:   day.Add(8 * time.Hour),
	}
}

func floatPtr(v float64) *float64 { return &v }

func TestMonthlySummaryDerivesHoursFromClocks(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	store := &signInStoreStub{rows: []models.TeacherSignIn{
		signIn("t1", "Awa Ndiaye", "3eme A", "Mathematics", "08:00", "10:00", nil, day),
	}}
	svc := newHoursServiceForTest(store)

	summaries, err := svc.MonthlySummary(context.Background(), 2026, time.March, "")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.InDelta(t, 2.0, summaries[0].TotalHours, 0.0001)
	assert.InDelta(t, 2.0, summaries[0].ByClass["3eme A"]["Mathematics"], 0.0001)
}

func TestMonthlySummaryStoredHoursWinOverClocks(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	store := &signInStoreStub{rows: []models.TeacherSignIn{
		signIn("t1", "Awa Ndiaye", "3eme A", "Mathematics", "08:00", "10:00", floatPtr(1.5), day),
	}}
	svc := newHoursServiceForTest(store)

	summaries, err := svc.MonthlySummary(context.Background(), 2026, time.March, "")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.InDelta(t, 1.5, summaries[0].TotalHours, 0.0001)
}

func TestMonthlySummaryStoredZeroHoursWins(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	store := &signInStoreStub{rows: []models.TeacherSignIn{
		signIn("t1", "Awa Ndiaye", "3eme A", "Mathematics", "08:00", "10:00", floatPtr(0), day),
	}}
	svc := newHoursServiceForTest(store)

	summaries, err := svc.MonthlySummary(context.Background(), 2026, time.March, "")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	// Zero is a stored value, not an invitation to re-derive from the clocks.
	assert.InDelta(t, 0.0, summaries[0].TotalHours, 0.0001)
}

func TestMonthlySummaryTotalEqualsSumOfLeaves(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	store := &signInStoreStub{rows: []models.TeacherSignIn{
		signIn("t1", "Awa Ndiaye", "3eme A", "Mathematics", "08:00", "10:00", nil, day),
		signIn("t1", "Awa Ndiaye", "3eme A", "Physics", "10:00", "11:00", nil, day),
		signIn("t1", "Awa Ndiaye", "5eme B", "Mathematics", "14:00", "16:00", nil, day.AddDate(0, 0, 1)),
		signIn("t2", "Boubacar Kane", "5eme B", "History", "08:00", "09:30", nil, day),
	}}
	svc := newHoursServiceForTest(store)

	summaries, err := svc.MonthlySummary(context.Background(), 2026, time.March, "")
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	for _, summary := range summaries {
		var leaves float64
		for _, subjects := range summary.ByClass {
			for _, hours := range subjects {
				leaves += hours
			}
		}
		assert.InDelta(t, leaves, summary.TotalHours, 0.0001, "total must equal grouped leaves for %s", summary.TeacherID)
	}

	// Highest total first.
	assert.Equal(t, "t1", summaries[0].TeacherID)
	assert.InDelta(t, 5.0, summaries[0].TotalHours, 0.0001)
	assert.Equal(t, "t2", summaries[1].TeacherID)
	assert.InDelta(t, 1.5, summaries[1].TotalHours, 0.0001)
}

func TestMonthlySummaryOrdering(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	store := &signInStoreStub{rows: []models.TeacherSignIn{
		signIn("t1", "Cheikh Ba", "3eme A", "Mathematics", "08:00", "09:00", nil, day),
		signIn("t2", "Awa Ndiaye", "3eme A", "Physics", "08:00", "12:00", nil, day),
		signIn("t3", "Boubacar Kane", "5eme B", "History", "08:00", "09:00", nil, day),
	}}
	svc := newHoursServiceForTest(store)

	summaries, err := svc.MonthlySummary(context.Background(), 2026, time.March, "")
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	// Total hours descending, then collated name for the 1.0 hour tie.
	assert.Equal(t, "t2", summaries[0].TeacherID)
	assert.Equal(t, "t3", summaries[1].TeacherID)
	assert.Equal(t, "t1", summaries[2].TeacherID)
}

func TestMonthlySummarySkipsMalformedRows(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	store := &signInStoreStub{rows: []models.TeacherSignIn{
		signIn("t1", "Awa Ndiaye", "3eme A", "Mathematics", "08:00", "10:00", nil, day),
		signIn("t1", "Awa Ndiaye", "3eme A", "Physics", "morning", "noon", nil, day),
	}}
	svc := newHoursServiceForTest(store)

	summaries, err := svc.MonthlySummary(context.Background(), 2026, time.March, "")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.InDelta(t, 2.0, summaries[0].TotalHours, 0.0001)
	assert.NotContains(t, summaries[0].ByClass["3eme A"], "Physics")
}

func TestMonthlySummaryStoreFailure(t *testing.T) {
	store := &signInStoreStub{err: fmt.Errorf("connection refused")}
	svc := newHoursServiceForTest(store)

	_, err := svc.MonthlySummary(context.Background(), 2026, time.March, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStoreUnavailable.Code, appErrors.FromError(err).Code)
}

func TestDaySheetSumsOneDay(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	store := &signInStoreStub{rows: []models.TeacherSignIn{
		signIn("t1", "Awa Ndiaye", "3eme A", "Mathematics", "08:00", "10:00", nil, day),
		signIn("t1", "Awa Ndiaye", "5eme B", "Mathematics", "10:00", "12:00", nil, day),
		signIn("t1", "Awa Ndiaye", "5eme B", "Mathematics", "10:00", "12:00", nil, day.AddDate(0, 0, 1)),
	}}
	svc := newHoursServiceForTest(store)

	sheet, err := svc.DaySheet(context.Background(), "t1", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, "Awa Ndiaye", sheet.TeacherName)
	require.Len(t, sheet.Rows, 2)
	assert.InDelta(t, 4.0, sheet.TotalHours, 0.0001)
}

func TestRecordSignInValidation(t *testing.T) {
	svc := newHoursServiceForTest(&signInStoreStub{})

	_, err := svc.RecordSignIn(context.Background(), RecordSignInRequest{
		TeacherID:    "t1",
		TeacherName:  "Awa Ndiaye",
		ClassID:      "3eme-A",
		ClassLabel:   "3eme A",
		SubjectID:    "math",
		SubjectLabel: "Mathematics",
		Start:        "10:00",
		End:          "08:00",
		Date:         "2026-03-02",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
