package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edusuite/presence-api/internal/models"
	"github.com/edusuite/presence-api/internal/service"
	appErrors "github.com/edusuite/presence-api/pkg/errors"
	"github.com/edusuite/presence-api/pkg/response"
)

// ScheduleHandler exposes weekly template and materialization endpoints.
type ScheduleHandler struct {
	service *service.ScheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// CreateSlot godoc
// @Summary Create a weekly schedule slot
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.CreateSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules/slots [post]
func (h *ScheduleHandler) CreateSlot(c *gin.Context) {
	var req service.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot payload"))
		return
	}
	slot, err := h.service.CreateSlot(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// ListSlots godoc
// @Summary List weekly slots of a class
// @Tags Schedules
// @Produce json
// @Param classId query string true "Class ID"
// @Param yearId query string false "Academic year ID"
// @Param semester query string false "Semester (S1 or S2)"
// @Success 200 {object} response.Envelope
// @Router /schedules/slots [get]
func (h *ScheduleHandler) ListSlots(c *gin.Context) {
	classID := c.Query("classId")
	if classID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "classId required"))
		return
	}
	slots, err := h.service.ListSlots(c.Request.Context(), classID, c.Query("yearId"), models.Semester(c.Query("semester")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// DeleteSlot godoc
// @Summary Delete a weekly slot
// @Tags Schedules
// @Produce json
// @Param id path string true "Slot ID"
// @Success 204 {object} response.Envelope
// @Router /schedules/slots/{id} [delete]
func (h *ScheduleHandler) DeleteSlot(c *gin.Context) {
	if err := h.service.DeleteSlot(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DaySessions godoc
// @Summary Materialize the sessions of a class for one date
// @Description Returns the concrete session occurrences derived from the weekly template. Sundays yield an empty list.
// @Tags Schedules
// @Produce json
// @Param classId query string true "Class ID"
// @Param yearId query string true "Academic year ID"
// @Param semester query string true "Semester (S1 or S2)"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules/sessions [get]
func (h *ScheduleHandler) DaySessions(c *gin.Context) {
	classID := c.Query("classId")
	date := c.Query("date")
	if classID == "" || date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "classId and date required"))
		return
	}
	sessions, err := h.service.MaterializeDay(c.Request.Context(), classID, c.Query("yearId"), models.Semester(c.Query("semester")), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// CreateAcademicYear godoc
// @Summary Create an academic year
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body object true "Year label, e.g. 2025-2026"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /academic-years [post]
func (h *ScheduleHandler) CreateAcademicYear(c *gin.Context) {
	var payload struct {
		Label string `json:"label" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "label required"))
		return
	}
	year, err := h.service.CreateAcademicYear(c.Request.Context(), payload.Label)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, year)
}

// ListAcademicYears godoc
// @Summary List academic years
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /academic-years [get]
func (h *ScheduleHandler) ListAcademicYears(c *gin.Context) {
	years, err := h.service.ListAcademicYears(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years, nil)
}
