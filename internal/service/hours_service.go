package service

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edusuite/presence-api/internal/models"
	"github.com/edusuite/presence-api/pkg/dateutil"
	appErrors "github.com/edusuite/presence-api/pkg/errors"
)

type signInStore interface {
	Create(ctx context.Context, signIn *models.TeacherSignIn) (*models.TeacherSignIn, error)
	ListBetween(ctx context.Context, from, to time.Time, teacherID string) ([]models.TeacherSignIn, error)
}

// HoursService records teacher sign-ins and aggregates taught hours.
type HoursService struct {
	store     signInStore
	validator *validator.Validate
	logger    *zap.Logger
	names     *collatedNames
}

// NewHoursService constructs the hours service.
func NewHoursService(store signInStore, validate *validator.Validate, logger *zap.Logger, locale string) *HoursService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HoursService{store: store, validator: validate, logger: logger, names: newCollatedNames(locale)}
}

// RecordSignInRequest is one teacher sign-in submission. Hours may be
// omitted; aggregation then derives the duration from the clock bounds.
type RecordSignInRequest struct {
	TeacherID    string   `json:"teacher_id" validate:"required"`
	TeacherName  string   `json:"teacher_name" validate:"required"`
	ClassID      string   `json:"class_id" validate:"required"`
	ClassLabel   string   `json:"class_label" validate:"required"`
	SubjectID    string   `json:"subject_id" validate:"required"`
	SubjectLabel string   `json:"subject_label" validate:"required"`
	Start        string   `json:"start" validate:"required"`
	End          string   `json:"end" validate:"required"`
	Hours        *float64 `json:"hours,omitempty"`
	Room         string   `json:"room"`
	Date         string   `json:"date" validate:"required"`
}

// RecordSignIn validates and persists a sign-in.
func (s *HoursService) RecordSignIn(ctx context.Context, req RecordSignInRequest) (*models.TeacherSignIn, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sign-in payload")
	}
	day, err := dateutil.FromISODate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	startMin, err := dateutil.MinutesOfClock(req.Start)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start time, expected HH:MM")
	}
	endMin, err := dateutil.MinutesOfClock(req.End)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end time, expected HH:MM")
	}
	if endMin <= startMin {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	if req.Hours != nil && *req.Hours <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "hours must be positive when provided")
	}

	signIn := &models.TeacherSignIn{
		TeacherID:    req.TeacherID,
		TeacherName:  req.TeacherName,
		ClassID:      req.ClassID,
		ClassLabel:   req.ClassLabel,
		SubjectID:    req.SubjectID,
		SubjectLabel: req.SubjectLabel,
		Start:        req.Start,
		End:          req.End,
		Hours:        req.Hours,
		Room:         req.Room,
		Date:         day,
	}
	stored, err := s.store.Create(ctx, signIn)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to persist sign-in")
	}
	return stored, nil
}

// MonthlySummary aggregates each teacher's hours for one calendar
// month, grouped class then subject. The top-level total is accumulated
// independently of the grouped leaves and always equals their sum.
// Teachers are ordered by total hours descending, collated name
// ascending on ties.
func (s *HoursService) MonthlySummary(ctx context.Context, year int, month time.Month, teacherID string) ([]models.TeacherHoursSummary, error) {
	if year < 2000 || year > 2100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year out of range")
	}
	if month < time.January || month > time.December {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid month")
	}
	r := dateutil.MonthRange(year, month)
	rows, err := s.store.ListBetween(ctx, r.From, r.To, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "record store unavailable")
	}

	byTeacher := map[string]*models.TeacherHoursSummary{}
	for _, row := range rows {
		hours, ok := s.hoursOf(row)
		if !ok {
			continue
		}
		summary, exists := byTeacher[row.TeacherID]
		if !exists {
			summary = &models.TeacherHoursSummary{
				TeacherID:   row.TeacherID,
				TeacherName: row.TeacherName,
				ByClass:     map[string]map[string]float64{},
			}
			byTeacher[row.TeacherID] = summary
		}
		subjects, exists := summary.ByClass[row.ClassLabel]
		if !exists {
			subjects = map[string]float64{}
			summary.ByClass[row.ClassLabel] = subjects
		}
		subjects[row.SubjectLabel] += hours
		summary.TotalHours += hours
	}

	summaries := make([]models.TeacherHoursSummary, 0, len(byTeacher))
	for _, summary := range byTeacher {
		summaries = append(summaries, *summary)
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].TotalHours != summaries[j].TotalHours {
			return summaries[i].TotalHours > summaries[j].TotalHours
		}
		if summaries[i].TeacherName != summaries[j].TeacherName {
			return s.names.Less(summaries[i].TeacherName, summaries[j].TeacherName)
		}
		return summaries[i].TeacherID < summaries[j].TeacherID
	})
	return summaries, nil
}

// DaySheet lists one teacher's sign-ins for a single day with the day
// total appended.
func (s *HoursService) DaySheet(ctx context.Context, teacherID, date string) (*models.TeacherDaySheet, error) {
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher id required")
	}
	day, err := dateutil.FromISODate(date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	r := dateutil.DayRange(day)
	rows, err := s.store.ListBetween(ctx, r.From, r.To, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "record store unavailable")
	}

	sheet := &models.TeacherDaySheet{TeacherID: teacherID, Rows: rows}
	for _, row := range rows {
		if sheet.TeacherName == "" {
			sheet.TeacherName = row.TeacherName
		}
		hours, ok := s.hoursOf(row)
		if !ok {
			continue
		}
		sheet.TotalHours += hours
	}
	if sheet.Rows == nil {
		sheet.Rows = []models.TeacherSignIn{}
	}
	return sheet, nil
}

// hoursOf returns the stored hours when present, otherwise the duration
// derived from the clock bounds (08:00 to 10:00 counts as 2 hours).
// A stored value is authoritative, including zero. Rows that carry
// neither are skipped and logged.
func (s *HoursService) hoursOf(row models.TeacherSignIn) (float64, bool) {
	if row.Hours != nil {
		if *row.Hours < 0 {
			s.logger.Warn("skipping sign-in with negative stored hours",
				zap.String("sign_in_id", row.ID), zap.Float64("hours", *row.Hours))
			return 0, false
		}
		return *row.Hours, true
	}
	startMin, err := dateutil.MinutesOfClock(row.Start)
	if err != nil {
		s.logger.Warn("skipping sign-in with malformed start time",
			zap.String("sign_in_id", row.ID), zap.String("start", row.Start))
		return 0, false
	}
	endMin, err := dateutil.MinutesOfClock(row.End)
	if err != nil {
		s.logger.Warn("skipping sign-in with malformed end time",
			zap.String("sign_in_id", row.ID), zap.String("end", row.End))
		return 0, false
	}
	if endMin <= startMin {
		s.logger.Warn("skipping sign-in with non-positive duration",
			zap.String("sign_in_id", row.ID),
			zap.String("start", row.Start), zap.String("end", row.End))
		return 0, false
	}
	return float64(endMin-startMin) / 60.0, true
}
