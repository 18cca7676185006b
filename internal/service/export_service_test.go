package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edusuite/presence-api/internal/dto"
	"github.com/edusuite/presence-api/internal/models"
	"github.com/edusuite/presence-api/pkg/export"
	"github.com/edusuite/presence-api/pkg/storage"
)

type absenceAggregatorStub struct{}

func (absenceAggregatorStub) RangeSummary(ctx context.Context, q dto.AbsenceSummaryQuery, now time.Time) (*AbsenceRangeResult, error) {
	return &AbsenceRangeResult{
		Scope: "class:3eme-A|2026-01-01..2026-01-31",
		From:  "2026-01-01",
		To:    "2026-01-31",
		Students: []models.StudentAbsenceSummary{
			{StudentID: "M1234", StudentFullName: "Mamadou Sow", ClassLabel: "3eme A", TotalCount: 3},
			{StudentID: "M5678", StudentFullName: "Aissatou Ba", ClassLabel: "3eme A", TotalCount: 1},
		},
		TotalAbsences: 4,
		GeneratedAt:   time.Now().UTC(),
	}, nil
}

type hoursAggregatorStub struct{}

func (hoursAggregatorStub) MonthlySummary(ctx context.Context, year int, month time.Month, teacherID string) ([]models.TeacherHoursSummary, error) {
	return []models.TeacherHoursSummary{
		{
			TeacherID:   "t1",
			TeacherName: "Awa Ndiaye",
			TotalHours:  3.6666666667,
			ByClass: map[string]map[string]float64{
				"3eme A": {"Mathematics": 2.0, "Physics": 1.6666666667},
			},
		},
	}, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	svc := NewExportService(absenceAggregatorStub{}, hoursAggregatorStub{}, store, signer, cfg, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	return svc, store
}

func TestExportServiceGenerateAbsenceCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeAbsences,
		Params:    models.ReportJobParams{From: "2026-01-01", To: "2026-01-31", Format: "csv"},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.NotEmpty(t, result.RelativePath)
	require.Contains(t, result.URL, "/export/")

	info, err := os.Stat(store.Path(result.RelativePath))
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGenerateHoursPDF(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-2",
		Type:      models.ReportTypeTeacherHours,
		Params:    models.ReportJobParams{From: "2026-03-01", Format: "pdf"},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, dto.ExportFormatPDF, result.Format)

	info, err := os.Stat(store.Path(result.RelativePath))
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestHoursDocumentRoundsAtTheBoundary(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	doc, err := svc.HoursDocument(context.Background(), 2026, time.March, "")
	require.NoError(t, err)
	require.Len(t, doc.Rows, 2)
	assert.Equal(t, "2.00", doc.Rows[0]["Hours"])
	assert.Equal(t, "1.67", doc.Rows[1]["Hours"])
	assert.Equal(t, "3.67", doc.Totals["Hours"])
	assert.Equal(t, "2026-03", doc.PeriodLabel)
}

func TestAbsenceDocumentCarriesScopeAndTotals(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	doc, err := svc.AbsenceDocument(context.Background(), dto.AbsenceSummaryQuery{From: "2026-01-01", To: "2026-01-31"})
	require.NoError(t, err)
	require.Len(t, doc.Rows, 2)
	assert.Equal(t, "Mamadou Sow", doc.Rows[0]["Student"])
	assert.Equal(t, "4", doc.Totals["Absences"])
	assert.Contains(t, doc.ScopeLabel, "class:3eme-A")
}

func TestRoundHalfUp(t *testing.T) {
	assert.InDelta(t, 0.13, roundHalfUp(0.125), 0.0001)
	assert.InDelta(t, 0.38, roundHalfUp(0.375), 0.0001)
	assert.InDelta(t, 2.0, roundHalfUp(2.0), 0.0001)
	assert.Equal(t, "1.67", formatHours(1.6666666667))
}

func TestGenerateRejectsUnknownFormat(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:     "job-3",
		Type:   models.ReportTypeAbsences,
		Params: models.ReportJobParams{From: "2026-01-01", To: "2026-01-31", Format: "xlsx"},
	}
	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}
