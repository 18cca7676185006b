package service

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edusuite/presence-api/internal/models"
	"github.com/edusuite/presence-api/pkg/dateutil"
	appErrors "github.com/edusuite/presence-api/pkg/errors"
)

type scheduleSlotRepository interface {
	Create(ctx context.Context, slot *models.ScheduleSlot) (*models.ScheduleSlot, error)
	ListByClass(ctx context.Context, classID, academicYearID string, semester models.Semester) ([]models.ScheduleSlot, error)
	Delete(ctx context.Context, id string) error
}

type academicYearRepository interface {
	Create(ctx context.Context, year *models.AcademicYear) (*models.AcademicYear, error)
	List(ctx context.Context) ([]models.AcademicYear, error)
}

// ScheduleService manages weekly templates and materializes them into
// concrete session occurrences.
type ScheduleService struct {
	slots     scheduleSlotRepository
	years     academicYearRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs the schedule service.
func NewScheduleService(slots scheduleSlotRepository, years academicYearRepository, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{slots: slots, years: years, validator: validate, logger: logger}
}

// CreateSlotRequest describes a new weekly template slot.
type CreateSlotRequest struct {
	ClassID        string `json:"class_id" validate:"required"`
	AcademicYearID string `json:"academic_year_id" validate:"required"`
	Semester       string `json:"semester" validate:"required"`
	DayOfWeek      int    `json:"day_of_week" validate:"required,min=1,max=7"`
	SubjectID      string `json:"subject_id" validate:"required"`
	SubjectLabel   string `json:"subject_label" validate:"required"`
	Start          string `json:"start" validate:"required"`
	End            string `json:"end" validate:"required"`
	Room           string `json:"room"`
	TeacherName    string `json:"teacher_name" validate:"required"`
}

// CreateSlot validates and persists a weekly slot. Slots on day 7 are
// accepted but never produce occurrences.
func (s *ScheduleService) CreateSlot(ctx context.Context, req CreateSlotRequest) (*models.ScheduleSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	semester := models.Semester(req.Semester)
	if !semester.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid semester")
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

	slot := &models.ScheduleSlot{
		ClassID:        req.ClassID,
		AcademicYearID: req.AcademicYearID,
		Semester:       semester,
		DayOfWeek:      req.DayOfWeek,
		SubjectID:      req.SubjectID,
		SubjectLabel:   req.SubjectLabel,
		Start:          req.Start,
		End:            req.End,
		Room:           req.Room,
		TeacherName:    req.TeacherName,
	}
	stored, err := s.slots.Create(ctx, slot)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create slot")
	}
	return stored, nil
}

// ListSlots returns the template slots of a class.
func (s *ScheduleService) ListSlots(ctx context.Context, classID, academicYearID string, semester models.Semester) ([]models.ScheduleSlot, error) {
	if classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class id required")
	}
	slots, err := s.slots.ListByClass(ctx, classID, academicYearID, semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list slots")
	}
	return slots, nil
}

// DeleteSlot removes a slot from the template.
func (s *ScheduleService) DeleteSlot(ctx context.Context, id string) error {
	if id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "slot id required")
	}
	if err := s.slots.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete slot")
	}
	return nil
}

// CreateAcademicYear validates the label convention and persists the year.
func (s *ScheduleService) CreateAcademicYear(ctx context.Context, label string) (*models.AcademicYear, error) {
	if _, _, err := dateutil.ParseAcademicYearLabel(label); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	stored, err := s.years.Create(ctx, &models.AcademicYear{Label: label})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create academic year")
	}
	return stored, nil
}

// ListAcademicYears returns the known academic years.
func (s *ScheduleService) ListAcademicYears(ctx context.Context) ([]models.AcademicYear, error) {
	years, err := s.years.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list academic years")
	}
	return years, nil
}

// MaterializeDay derives the session occurrences of one class for one
// calendar date. Sundays always yield an empty set; malformed slots are
// skipped and logged rather than aborting the whole day.
func (s *ScheduleService) MaterializeDay(ctx context.Context, classID, academicYearID string, semester models.Semester, date string) ([]models.SessionOccurrence, error) {
	day, err := dateutil.FromISODate(date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	dow := dateutil.DayOfWeekMondayFirst(day)
	if dow == 7 {
		return []models.SessionOccurrence{}, nil
	}

	slots, err := s.slots.ListByClass(ctx, classID, academicYearID, semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	type timedSlot struct {
		slot     models.ScheduleSlot
		startMin int
		endMin   int
	}
	matched := make([]timedSlot, 0, len(slots))
	for _, slot := range slots {
		if slot.DayOfWeek != dow {
			continue
		}
		startMin, serr := dateutil.MinutesOfClock(slot.Start)
		if serr != nil {
			s.logger.Warn("skipping slot with malformed start time",
				zap.String("slot_id", slot.ID), zap.String("start", slot.Start))
			continue
		}
		endMin, eerr := dateutil.MinutesOfClock(slot.End)
		if eerr != nil {
			s.logger.Warn("skipping slot with malformed end time",
				zap.String("slot_id", slot.ID), zap.String("end", slot.End))
			continue
		}
		matched = append(matched, timedSlot{slot: slot, startMin: startMin, endMin: endMin})
	}

	// Stable sort keeps source order for slots sharing the same times.
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].startMin != matched[j].startMin {
			return matched[i].startMin < matched[j].startMin
		}
		return matched[i].endMin < matched[j].endMin
	})

	occurrences := make([]models.SessionOccurrence, 0, len(matched))
	for _, ts := range matched {
		occurrences = append(occurrences, models.SessionOccurrence{
			ClassID:        ts.slot.ClassID,
			AcademicYearID: ts.slot.AcademicYearID,
			Date:           dateutil.ToISODate(day),
			DayOfWeek:      dow,
			Semester:       ts.slot.Semester,
			SubjectID:      ts.slot.SubjectID,
			SubjectLabel:   ts.slot.SubjectLabel,
			Start:          ts.slot.Start,
			End:            ts.slot.End,
			Room:           ts.slot.Room,
			TeacherName:    ts.slot.TeacherName,
		})
	}
	return occurrences, nil
}
