package service

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edusuite/presence-api/internal/dto"
	"github.com/edusuite/presence-api/internal/models"
	"github.com/edusuite/presence-api/pkg/dateutil"
	"github.com/edusuite/presence-api/pkg/export"
	"github.com/edusuite/presence-api/pkg/storage"
)

type absenceAggregator interface {
	RangeSummary(ctx context.Context, q dto.AbsenceSummaryQuery, now time.Time) (*AbsenceRangeResult, error)
}

type hoursAggregator interface {
	MonthlySummary(ctx context.Context, year int, month time.Month, teacherID string) ([]models.TeacherHoursSummary, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title, subtitle string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       dto.ExportFormat
	ExpiresAt    time.Time
}

// ExportService turns aggregation results into report documents and
// persists rendered files. Hour values are rounded half-up to two
// decimals here, at the presentation boundary only.
type ExportService struct {
	absences absenceAggregator
	hours    hoursAggregator
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(absences absenceAggregator, hours hoursAggregator, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		absences: absences,
		hours:    hours,
		storage:  store,
		csv:      csv,
		pdf:      pdf,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// AbsenceDocument builds the report document for a range-scoped absence
// aggregation.
func (s *ExportService) AbsenceDocument(ctx context.Context, q dto.AbsenceSummaryQuery) (dto.ReportDocument, error) {
	result, err := s.absences.RangeSummary(ctx, q, time.Now())
	if err != nil {
		return dto.ReportDocument{}, err
	}
	columns := []string{"Student ID", "Student", "Class", "Absences"}
	rows := make([]map[string]string, 0, len(result.Students))
	for _, student := range result.Students {
		rows = append(rows, map[string]string{
			"Student ID": student.StudentID,
			"Student":    student.StudentFullName,
			"Class":      student.ClassLabel,
			"Absences":   fmt.Sprintf("%d", student.TotalCount),
		})
	}
	return dto.ReportDocument{
		Title:       "Absence Report",
		PeriodLabel: fmt.Sprintf("%s to %s", result.From, result.To),
		ScopeLabel:  result.Scope,
		Columns:     columns,
		Rows:        rows,
		Totals: map[string]string{
			"Student":  "Total",
			"Absences": fmt.Sprintf("%d", result.TotalAbsences),
		},
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// HoursDocument builds the report document for one month of teaching
// hours. Rows follow the aggregation's teacher order; classes and
// subjects within a teacher are listed alphabetically.
func (s *ExportService) HoursDocument(ctx context.Context, year int, month time.Month, teacherID string) (dto.ReportDocument, error) {
	summaries, err := s.hours.MonthlySummary(ctx, year, month, teacherID)
	if err != nil {
		return dto.ReportDocument{}, err
	}
	columns := []string{"Teacher ID", "Teacher", "Class", "Subject", "Hours"}
	rows := make([]map[string]string, 0, len(summaries))
	var grandTotal float64
	for _, summary := range summaries {
		grandTotal += summary.TotalHours
		classes := make([]string, 0, len(summary.ByClass))
		for class := range summary.ByClass {
			classes = append(classes, class)
		}
		sort.Strings(classes)
		for _, class := range classes {
			subjects := make([]string, 0, len(summary.ByClass[class]))
			for subject := range summary.ByClass[class] {
				subjects = append(subjects, subject)
			}
			sort.Strings(subjects)
			for _, subject := range subjects {
				rows = append(rows, map[string]string{
					"Teacher ID": summary.TeacherID,
					"Teacher":    summary.TeacherName,
					"Class":      class,
					"Subject":    subject,
					"Hours":      formatHours(summary.ByClass[class][subject]),
				})
			}
		}
	}
	scope := "all teachers"
	if teacherID != "" {
		scope = "teacher:" + teacherID
	}
	return dto.ReportDocument{
		Title:       "Teaching Hours Report",
		PeriodLabel: fmt.Sprintf("%04d-%02d", year, int(month)),
		ScopeLabel:  scope,
		Columns:     columns,
		Rows:        rows,
		Totals: map[string]string{
			"Subject": "Total",
			"Hours":   formatHours(grandTotal),
		},
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// Render produces the file bytes for a document in the given format.
func (s *ExportService) Render(doc dto.ReportDocument, format dto.ExportFormat) ([]byte, error) {
	dataset := export.Dataset{Headers: doc.Columns, Rows: doc.Rows, Totals: doc.Totals}
	switch format {
	case dto.ExportFormatCSV:
		return s.csv.Render(dataset)
	case dto.ExportFormatPDF:
		subtitle := doc.PeriodLabel
		if doc.ScopeLabel != "" {
			subtitle = fmt.Sprintf("%s (%s)", doc.PeriodLabel, doc.ScopeLabel)
		}
		return s.pdf.Render(dataset, doc.Title, subtitle)
	default:
		return nil, fmt.Errorf("unsupported format %s", format)
	}
}

// Generate builds the document for a job definition and stores the
// rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	format := dto.ExportFormat(job.Params.Format)
	if !format.Valid() {
		return nil, fmt.Errorf("unsupported format %s", job.Params.Format)
	}

	var (
		doc dto.ReportDocument
		err error
	)
	switch job.Type {
	case models.ReportTypeAbsences:
		doc, err = s.AbsenceDocument(ctx, dto.AbsenceSummaryQuery{
			From:           job.Params.From,
			To:             job.Params.To,
			ClassID:        job.Params.ClassID,
			AcademicYearID: job.Params.AcademicYearID,
		})
	case models.ReportTypeTeacherHours:
		var from time.Time
		from, err = dateutil.FromISODate(job.Params.From)
		if err == nil {
			doc, err = s.HoursDocument(ctx, from.Year(), from.Month(), job.Params.TeacherID)
		}
	default:
		err = fmt.Errorf("unsupported report type %s", job.Type)
	}
	if err != nil {
		return nil, err
	}

	payload, err := s.Render(doc, format)
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/export/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scopePart := sanitizeFilename(job.Params.From)
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), scopePart, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

// roundHalfUp rounds to two decimals with ties moving away from zero
// toward positive infinity (1.005 becomes 1.01).
func roundHalfUp(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

func formatHours(v float64) string {
	return fmt.Sprintf("%.2f", roundHalfUp(v))
}
