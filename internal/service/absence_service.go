package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/edusuite/presence-api/internal/dto"
	"github.com/edusuite/presence-api/internal/models"
	"github.com/edusuite/presence-api/pkg/dateutil"
	appErrors "github.com/edusuite/presence-api/pkg/errors"
)

type attendanceStore interface {
	Find(ctx context.Context, key models.SessionKey) (*models.AttendanceRecord, error)
	ListRange(ctx context.Context, filter models.AttendanceRangeFilter) ([]models.AttendanceRecord, error)
	Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
}

// collatedNames orders student and teacher display names with a
// locale-aware, case-insensitive collation. The collator keeps internal
// buffers, so compares are serialised.
type collatedNames struct {
	mu sync.Mutex
	c  *collate.Collator
}

func newCollatedNames(locale string) *collatedNames {
	tag := language.Make(locale)
	if tag == language.Und {
		tag = language.French
	}
	return &collatedNames{c: collate.New(tag, collate.IgnoreCase)}
}

// Less reports whether a sorts before b.
func (n *collatedNames) Less(a, b string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.c.CompareString(a, b) < 0
}

// AbsenceService aggregates absence entries into session reports and
// range-scoped per-student summaries. Aggregates are always computed
// from the stored records; nothing here is persisted.
type AbsenceService struct {
	store     attendanceStore
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	names     *collatedNames
	cacheTTL  time.Duration
}

// NewAbsenceService constructs the absence service.
func NewAbsenceService(store attendanceStore, cache *CacheService, validate *validator.Validate, logger *zap.Logger, locale string, cacheTTL time.Duration) *AbsenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AbsenceService{
		store:     store,
		cache:     cache,
		validator: validate,
		logger:    logger,
		names:     newCollatedNames(locale),
		cacheTTL:  cacheTTL,
	}
}

// SessionAbsenceReport is the per-session absentee view. Taken is false
// when no record exists for the session yet; the report is then empty
// rather than an error.
type SessionAbsenceReport struct {
	Taken        bool                     `json:"taken"`
	Record       *models.AttendanceRecord `json:"record,omitempty"`
	Absentees    []models.AbsenteeRow     `json:"absentees"`
	TotalEntries int                      `json:"total_entries"`
}

// SessionReport resolves the attendance record for one session key and
// folds its absence entries into per-student rows.
func (s *AbsenceService) SessionReport(ctx context.Context, key models.SessionKey) (*SessionAbsenceReport, error) {
	record, err := s.store.Find(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &SessionAbsenceReport{Taken: false, Absentees: []models.AbsenteeRow{}}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "record store unavailable")
	}

	rows := make([]models.AbsenteeRow, 0, len(record.Absences))
	total := 0
	for studentID, entries := range record.Absences {
		valid := s.validEntries(studentID, entries)
		if len(valid) == 0 {
			continue
		}
		total += len(valid)
		rows = append(rows, models.AbsenteeRow{
			StudentID:       studentID,
			StudentFullName: valid[0].StudentFullName,
			Count:           len(valid),
			Entries:         valid,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		if rows[i].StudentFullName != rows[j].StudentFullName {
			return s.names.Less(rows[i].StudentFullName, rows[j].StudentFullName)
		}
		return rows[i].StudentID < rows[j].StudentID
	})

	return &SessionAbsenceReport{Taken: true, Record: record, Absentees: rows, TotalEntries: total}, nil
}

// AbsentStudent names one student marked absent in a submission.
type AbsentStudent struct {
	StudentID string `json:"student_id" validate:"required"`
	FullName  string `json:"full_name" validate:"required"`
}

// RecordSessionRequest carries one attendance submission for a session.
// Resubmitting the same session appends entries instead of replacing
// the earlier ones.
type RecordSessionRequest struct {
	ClassID           string          `json:"class_id" validate:"required"`
	ClassLabel        string          `json:"class_label" validate:"required"`
	AcademicYearID    string          `json:"academic_year_id" validate:"required"`
	AcademicYearLabel string          `json:"academic_year_label" validate:"required"`
	Semester          string          `json:"semester" validate:"required"`
	Date              string          `json:"date" validate:"required"`
	SubjectID         string          `json:"subject_id" validate:"required"`
	SubjectLabel      string          `json:"subject_label" validate:"required"`
	Start             string          `json:"start" validate:"required"`
	End               string          `json:"end" validate:"required"`
	Room              string          `json:"room"`
	TeacherName       string          `json:"teacher_name" validate:"required"`
	AbsentStudents    []AbsentStudent `json:"absent_students" validate:"dive"`
}

// RecordSession merges a submission into the stored record for its
// session key and persists the result.
func (s *AbsenceService) RecordSession(ctx context.Context, req RecordSessionRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	semester := models.Semester(req.Semester)
	if !semester.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid semester")
	}
	day, err := dateutil.FromISODate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	dow := dateutil.DayOfWeekMondayFirst(day)
	if dow == 7 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no sessions take place on Sundays")
	}
	if _, err := dateutil.MinutesOfClock(req.Start); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start time, expected HH:MM")
	}
	if _, err := dateutil.MinutesOfClock(req.End); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end time, expected HH:MM")
	}

	key := models.SessionKey{
		ClassID:        req.ClassID,
		AcademicYearID: req.AcademicYearID,
		Semester:       semester,
		Date:           req.Date,
		SubjectID:      req.SubjectID,
		Start:          req.Start,
		End:            req.End,
	}

	absences := models.AbsenceMap{}
	existing, err := s.store.Find(ctx, key)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "record store unavailable")
	}
	if existing != nil {
		for studentID, entries := range existing.Absences {
			absences[studentID] = append([]models.AbsenceEntry(nil), entries...)
		}
	}

	now := time.Now().UTC()
	for _, student := range req.AbsentStudents {
		absences[student.StudentID] = append(absences[student.StudentID], models.AbsenceEntry{
			Kind:              models.AbsenceEntryKind,
			Timestamp:         now,
			AcademicYearLabel: req.AcademicYearLabel,
			Semester:          semester,
			Start:             req.Start,
			End:               req.End,
			Room:              req.Room,
			TeacherName:       req.TeacherName,
			SubjectID:         req.SubjectID,
			SubjectLabel:      req.SubjectLabel,
			StudentID:         student.StudentID,
			StudentFullName:   student.FullName,
		})
	}

	record := &models.AttendanceRecord{
		AcademicYearID:    req.AcademicYearID,
		AcademicYearLabel: req.AcademicYearLabel,
		ClassID:           req.ClassID,
		ClassLabel:        req.ClassLabel,
		Semester:          semester,
		Date:              day,
		DayOfWeek:         dow,
		Start:             req.Start,
		End:               req.End,
		Room:              req.Room,
		TeacherName:       req.TeacherName,
		SubjectID:         req.SubjectID,
		SubjectLabel:      req.SubjectLabel,
		Absences:          absences,
	}
	if existing != nil {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	}

	stored, err := s.store.Upsert(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to persist attendance record")
	}

	if s.cache.Enabled() {
		if err := s.cache.Invalidate(ctx, "absences:*"); err != nil {
			s.logger.Warn("failed to invalidate absence cache", zap.Error(err))
		}
	}
	return stored, nil
}

// AbsenceRangeResult is the range-scoped aggregation output. Scope
// encodes the class, year and bounds the result was computed for so a
// consumer can discard responses that no longer match its filters.
type AbsenceRangeResult struct {
	Scope         string                         `json:"scope"`
	From          string                         `json:"from"`
	To            string                         `json:"to"`
	Students      []models.StudentAbsenceSummary `json:"students"`
	TotalAbsences int                            `json:"total_absences"`
	GeneratedAt   time.Time                      `json:"generated_at"`
}

// RangeSummary aggregates absence counts per student over an inclusive
// date range. The scan is partitioned by month and the partitions are
// fetched concurrently; any partition failure aborts the whole
// aggregation so partial results are never returned.
func (s *AbsenceService) RangeSummary(ctx context.Context, q dto.AbsenceSummaryQuery, now time.Time) (*AbsenceRangeResult, error) {
	r, err := q.Resolve(now)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	scope := q.ScopeTag(r)
	cacheKey := "absences:summary:" + scope

	if s.cache.Enabled() {
		var cached AbsenceRangeResult
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, nil
		}
	}

	parts := dateutil.MonthsOf(r)
	partRecords := make([][]models.AttendanceRecord, len(parts))
	partErrs := make([]error, len(parts))

	var wg sync.WaitGroup
	for i, part := range parts {
		wg.Add(1)
		go func(i int, part dateutil.DateRange) {
			defer wg.Done()
			records, err := s.store.ListRange(ctx, models.AttendanceRangeFilter{
				From:           part.From,
				To:             part.To,
				ClassID:        q.ClassID,
				AcademicYearID: q.AcademicYearID,
			})
			if err != nil {
				partErrs[i] = err
				return
			}
			partRecords[i] = records
		}(i, part)
	}
	wg.Wait()

	for _, err := range partErrs {
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "record store unavailable")
		}
	}

	// Merge partitions in chronological order so the first valid entry
	// seen for a student comes from their earliest record.
	byStudent := map[string]*models.StudentAbsenceSummary{}
	total := 0
	for _, records := range partRecords {
		for _, record := range records {
			for studentID, entries := range record.Absences {
				valid := s.validEntries(studentID, entries)
				if len(valid) == 0 {
					continue
				}
				summary, ok := byStudent[studentID]
				if !ok {
					summary = &models.StudentAbsenceSummary{
						StudentID:       studentID,
						StudentFullName: valid[0].StudentFullName,
						ClassLabel:      record.ClassLabel,
					}
					byStudent[studentID] = summary
				}
				// Name sticks to the earliest entry; class follows the latest record.
				summary.ClassLabel = record.ClassLabel
				summary.TotalCount += len(valid)
				summary.Entries = append(summary.Entries, valid...)
				total += len(valid)
			}
		}
	}

	students := make([]models.StudentAbsenceSummary, 0, len(byStudent))
	for _, summary := range byStudent {
		students = append(students, *summary)
	}
	sort.SliceStable(students, func(i, j int) bool {
		if students[i].TotalCount != students[j].TotalCount {
			return students[i].TotalCount > students[j].TotalCount
		}
		if students[i].StudentFullName != students[j].StudentFullName {
			return s.names.Less(students[i].StudentFullName, students[j].StudentFullName)
		}
		return students[i].StudentID < students[j].StudentID
	})

	result := &AbsenceRangeResult{
		Scope:         scope,
		From:          dateutil.ToISODate(r.From),
		To:            dateutil.ToISODate(r.To),
		Students:      students,
		TotalAbsences: total,
		GeneratedAt:   time.Now().UTC(),
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, result, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache absence summary", zap.Error(err))
		}
	}
	return result, nil
}

// validEntries drops entries that fail structural checks. Each skip is
// logged so corrupt documents surface in operations instead of
// distorting counts silently.
func (s *AbsenceService) validEntries(studentID string, entries []models.AbsenceEntry) []models.AbsenceEntry {
	valid := make([]models.AbsenceEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Kind != models.AbsenceEntryKind {
			s.logger.Warn("skipping absence entry with unexpected kind",
				zap.String("student_id", studentID), zap.String("kind", entry.Kind))
			continue
		}
		if entry.StudentID == "" {
			s.logger.Warn("skipping absence entry without student id",
				zap.String("map_key", studentID))
			continue
		}
		if entry.StudentID != studentID {
			s.logger.Warn("skipping absence entry filed under wrong student",
				zap.String("map_key", studentID), zap.String("entry_student_id", entry.StudentID))
			continue
		}
		if entry.Start == "" || entry.End == "" {
			s.logger.Warn("skipping absence entry without time bounds",
				zap.String("student_id", studentID),
				zap.String("start", entry.Start), zap.String("end", entry.End))
			continue
		}
		if entry.Timestamp.IsZero() {
			s.logger.Warn("skipping absence entry without timestamp",
				zap.String("student_id", studentID))
			continue
		}
		valid = append(valid, entry)
	}
	return valid
}
