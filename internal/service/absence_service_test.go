package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edusuite/presence-api/internal/dto"
	"github.com/edusuite/presence-api/internal/models"
	appErrors "github.com/edusuite/presence-api/pkg/errors"
)

type attendanceStoreStub struct {
	findRecord *models.AttendanceRecord
	findErr    error
	records    []models.AttendanceRecord
	listErr    func(filter models.AttendanceRangeFilter) error
	upserted   *models.AttendanceRecord
}

func (s *attendanceStoreStub) Find(ctx context.Context, key models.SessionKey) (*models.AttendanceRecord, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.findRecord == nil {
		return nil, sql.ErrNoRows
	}
	return s.findRecord, nil
}

func (s *attendanceStoreStub) ListRange(ctx context.Context, filter models.AttendanceRangeFilter) ([]models.AttendanceRecord, error) {
	if s.listErr != nil {
		if err := s.listErr(filter); err != nil {
			return nil, err
		}
	}
	var out []models.AttendanceRecord
	for _, record := range s.records {
		if record.Date.Before(filter.From) || record.Date.After(filter.To) {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *attendanceStoreStub) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	s.upserted = record
	return record, nil
}

func newAbsenceServiceForTest(store *attendanceStoreStub) *AbsenceService {
	return NewAbsenceService(store, nil, nil, zap.NewNop(), "fr", time.Minute)
}

func absenceEntry(studentID, fullName string, ts time.Time) models.AbsenceEntry {
	return models.AbsenceEntry{
		Kind:            models.AbsenceEntryKind,
		Timestamp:       ts,
		Semester:        "S1",
		Start:           "08:00",
		End:             "10:00",
		SubjectID:       "math",
		SubjectLabel:    "Mathematics",
		StudentID:       studentID,
		StudentFullName: fullName,
	}
}

func repeatEntries(studentID, fullName string, ts time.Time, n int) []models.AbsenceEntry {
	entries := make([]models.AbsenceEntry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, absenceEntry(studentID, fullName, ts.Add(time.Duration(i)*time.Minute)))
	}
	return entries
}

func sessionKey() models.SessionKey {
	return models.SessionKey{
		ClassID:        "3eme-A",
		AcademicYearID: "year-1",
		Semester:       "S1",
		Date:           "2026-03-02",
		SubjectID:      "math",
		Start:          "08:00",
		End:            "10:00",
	}
}

func TestSessionReportNotTakenReturnsEmpty(t *testing.T) {
	svc := newAbsenceServiceForTest(&attendanceStoreStub{})

	report, err := svc.SessionReport(context.Background(), sessionKey())
	require.NoError(t, err)
	assert.False(t, report.Taken)
	assert.Empty(t, report.Absentees)
	assert.Zero(t, report.TotalEntries)
}

func TestSessionReportOrdersByCountThenName(t *testing.T) {
	ts := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	record := &models.AttendanceRecord{
		ClassID:  "3eme-A",
		Absences: models.AbsenceMap{},
	}
	record.Absences["M5678"] = repeatEntries("M5678", "Aissatou Ba", ts, 3)
	record.Absences["M1234"] = append(
		repeatEntries("M1234", "Mamadou Sow", ts, 2),
		// Unknown kind, must be skipped without distorting the count.
		models.AbsenceEntry{Kind: "late", Timestamp: ts, StudentID: "M1234", StudentFullName: "Mamadou Sow"},
	)
	record.Absences["M9999"] = repeatEntries("M9999", "Fatou Diallo", ts, 2)

	svc := newAbsenceServiceForTest(&attendanceStoreStub{findRecord: record})
	report, err := svc.SessionReport(context.Background(), sessionKey())
	require.NoError(t, err)
	assert.True(t, report.Taken)
	require.Len(t, report.Absentees, 3)

	assert.Equal(t, "M5678", report.Absentees[0].StudentID)
	assert.Equal(t, 3, report.Absentees[0].Count)
	// Both remaining students have two entries; names break the tie.
	assert.Equal(t, "Fatou Diallo", report.Absentees[1].StudentFullName)
	assert.Equal(t, "Mamadou Sow", report.Absentees[2].StudentFullName)
	assert.Equal(t, 7, report.TotalEntries)
}

func TestSessionReportSkipsStructurallyInvalidEntries(t *testing.T) {
	ts := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	noBounds := absenceEntry("M1234", "Mamadou Sow", ts)
	noBounds.Start = ""
	noBounds.End = ""
	noStudent := absenceEntry("", "Mamadou Sow", ts)
	record := &models.AttendanceRecord{
		ClassID: "3eme-A",
		Absences: models.AbsenceMap{
			"M1234": {absenceEntry("M1234", "Mamadou Sow", ts), noBounds, noStudent},
		},
	}

	svc := newAbsenceServiceForTest(&attendanceStoreStub{findRecord: record})
	report, err := svc.SessionReport(context.Background(), sessionKey())
	require.NoError(t, err)
	require.Len(t, report.Absentees, 1)
	assert.Equal(t, 1, report.Absentees[0].Count)
	assert.Equal(t, 1, report.TotalEntries)
}

func TestSessionReportStoreFailure(t *testing.T) {
	svc := newAbsenceServiceForTest(&attendanceStoreStub{findErr: fmt.Errorf("connection refused")})

	_, err := svc.SessionReport(context.Background(), sessionKey())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStoreUnavailable.Code, appErrors.FromError(err).Code)
}

func recordSessionRequest(students ...AbsentStudent) RecordSessionRequest {
	return RecordSessionRequest{
		ClassID:           "3eme-A",
		ClassLabel:        "3eme A",
		AcademicYearID:    "year-1",
		AcademicYearLabel: "2025-2026",
		Semester:          "S1",
		Date:              "2026-03-02",
		SubjectID:         "math",
		SubjectLabel:      "Mathematics",
		Start:             "08:00",
		End:               "10:00",
		Room:              "B12",
		TeacherName:       "Mme Diallo",
		AbsentStudents:    students,
	}
}

func TestRecordSessionAppendsToExistingEntries(t *testing.T) {
	ts := time.Date(2026, 3, 2, 8, 5, 0, 0, time.UTC)
	existing := &models.AttendanceRecord{
		ID:        "rec-1",
		ClassID:   "3eme-A",
		CreatedAt: ts,
		Absences: models.AbsenceMap{
			"M1234": repeatEntries("M1234", "Mamadou Sow", ts, 1),
		},
	}
	store := &attendanceStoreStub{findRecord: existing}
	svc := newAbsenceServiceForTest(store)

	stored, err := svc.RecordSession(context.Background(), recordSessionRequest(
		AbsentStudent{StudentID: "M1234", FullName: "Mamadou Sow"},
		AbsentStudent{StudentID: "M5678", FullName: "Aissatou Ba"},
	))
	require.NoError(t, err)
	assert.Equal(t, "rec-1", stored.ID)
	require.NotNil(t, store.upserted)
	assert.Len(t, store.upserted.Absences["M1234"], 2)
	assert.Len(t, store.upserted.Absences["M5678"], 1)
}

func TestRecordSessionRejectsSunday(t *testing.T) {
	svc := newAbsenceServiceForTest(&attendanceStoreStub{})
	req := recordSessionRequest()
	req.Date = "2026-03-01" // Sunday

	_, err := svc.RecordSession(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func rangeRecord(date time.Time, classLabel string, absences models.AbsenceMap) models.AttendanceRecord {
	return models.AttendanceRecord{
		ClassID:    "3eme-A",
		ClassLabel: classLabel,
		Date:       date,
		Absences:   absences,
	}
}

func TestRangeSummaryAggregatesAcrossMonths(t *testing.T) {
	jan := time.Date(2026, 1, 20, 0, 0, 0, 0, time.Local)
	mar := time.Date(2026, 3, 5, 0, 0, 0, 0, time.Local)
	store := &attendanceStoreStub{records: []models.AttendanceRecord{
		rangeRecord(jan, "3eme A", models.AbsenceMap{
			"M1234": repeatEntries("M1234", "Mamadou Sow", jan, 2),
			"M5678": repeatEntries("M5678", "Aissatou Ba", jan, 2),
		}),
		rangeRecord(mar, "3eme A", models.AbsenceMap{
			"M1234": repeatEntries("M1234", "M. Sow", mar, 1),
		}),
	}}
	svc := newAbsenceServiceForTest(store)

	result, err := svc.RangeSummary(context.Background(), dto.AbsenceSummaryQuery{
		From:    "2026-01-15",
		To:      "2026-03-10",
		ClassID: "3eme-A",
	}, time.Now())
	require.NoError(t, err)
	require.Len(t, result.Students, 2)

	assert.Equal(t, "M1234", result.Students[0].StudentID)
	assert.Equal(t, 3, result.Students[0].TotalCount)
	// Display name comes from the earliest record in the range.
	assert.Equal(t, "Mamadou Sow", result.Students[0].StudentFullName)
	assert.Equal(t, "M5678", result.Students[1].StudentID)
	assert.Equal(t, 2, result.Students[1].TotalCount)
	assert.Equal(t, 5, result.TotalAbsences)
	assert.Contains(t, result.Scope, "class:3eme-A")
	assert.Equal(t, "2026-01-15", result.From)
	assert.Equal(t, "2026-03-10", result.To)
}

func TestRangeSummaryFailsWholeOnPartitionError(t *testing.T) {
	store := &attendanceStoreStub{
		listErr: func(filter models.AttendanceRangeFilter) error {
			if filter.From.Month() == time.February {
				return fmt.Errorf("connection reset")
			}
			return nil
		},
	}
	svc := newAbsenceServiceForTest(store)

	_, err := svc.RangeSummary(context.Background(), dto.AbsenceSummaryQuery{
		From: "2026-01-15",
		To:   "2026-03-10",
	}, time.Now())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStoreUnavailable.Code, appErrors.FromError(err).Code)
}

func TestRangeSummaryRequiresRangeOrPreset(t *testing.T) {
	svc := newAbsenceServiceForTest(&attendanceStoreStub{})

	_, err := svc.RangeSummary(context.Background(), dto.AbsenceSummaryQuery{}, time.Now())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRangeSummarySwapsReversedBounds(t *testing.T) {
	svc := newAbsenceServiceForTest(&attendanceStoreStub{})

	result, err := svc.RangeSummary(context.Background(), dto.AbsenceSummaryQuery{
		From: "2026-03-10",
		To:   "2026-01-15",
	}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "2026-01-15", result.From)
	assert.Equal(t, "2026-03-10", result.To)
}
