package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edusuite/presence-api/internal/dto"
	"github.com/edusuite/presence-api/internal/models"
	"github.com/edusuite/presence-api/internal/service"
	appErrors "github.com/edusuite/presence-api/pkg/errors"
	"github.com/edusuite/presence-api/pkg/response"
)

// HoursHandler exposes teacher sign-in and teaching-hours endpoints.
type HoursHandler struct {
	service  *service.HoursService
	exporter *service.ExportService
}

// NewHoursHandler constructs handler.
func NewHoursHandler(svc *service.HoursService, exporter *service.ExportService) *HoursHandler {
	return &HoursHandler{service: svc, exporter: exporter}
}

// RecordSignIn godoc
// @Summary Record a teacher sign-in
// @Tags Hours
// @Accept json
// @Produce json
// @Param payload body service.RecordSignInRequest true "Sign-in payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /hours/sign-ins [post]
func (h *HoursHandler) RecordSignIn(c *gin.Context) {
	var req service.RecordSignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sign-in payload"))
		return
	}
	signIn, err := h.service.RecordSignIn(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, signIn)
}

// MonthlySummary godoc
// @Summary Monthly teaching hours per teacher
// @Description Aggregates each teacher's hours for one calendar month, grouped by class then subject.
// @Tags Hours
// @Produce json
// @Param year query int true "Year"
// @Param month query int true "Month (1-12)"
// @Param teacherId query string false "Teacher ID; teachers are always scoped to themselves"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /hours/summary [get]
func (h *HoursHandler) MonthlySummary(c *gin.Context) {
	year, month, teacherID, err := h.resolveMonthScope(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	summaries, err := h.service.MonthlySummary(c.Request.Context(), year, month, teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, nil)
}

// DaySheet godoc
// @Summary One teacher's sign-ins for a single day
// @Tags Hours
// @Produce json
// @Param teacherId query string true "Teacher ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /hours/day-sheet [get]
func (h *HoursHandler) DaySheet(c *gin.Context) {
	teacherID := c.Query("teacherId")
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleTeacher {
		teacherID = claims.UserID
	}
	sheet, err := h.service.DaySheet(c.Request.Context(), teacherID, c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// Export godoc
// @Summary Export a monthly hours report
// @Description Renders the monthly teaching-hours aggregation as CSV or PDF and streams it back.
// @Tags Hours
// @Produce octet-stream
// @Param format query string true "Export format (csv or pdf)"
// @Param year query int true "Year"
// @Param month query int true "Month (1-12)"
// @Param teacherId query string false "Teacher ID"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /hours/export [get]
func (h *HoursHandler) Export(c *gin.Context) {
	format := dto.ExportFormat(c.Query("format"))
	if !format.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	year, month, teacherID, err := h.resolveMonthScope(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	doc, err := h.exporter.HoursDocument(c.Request.Context(), year, month, teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	payload, err := h.exporter.Render(doc, format)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to render export"))
		return
	}
	streamExport(c, payload, format, fmt.Sprintf("teacher_hours_%04d-%02d", year, int(month)))
}

// resolveMonthScope parses the year/month pair and pins teachers to
// their own scope.
func (h *HoursHandler) resolveMonthScope(c *gin.Context) (int, time.Month, string, error) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		return 0, 0, "", appErrors.Clone(appErrors.ErrValidation, "year must be a number")
	}
	monthNum, err := strconv.Atoi(c.Query("month"))
	if err != nil || monthNum < 1 || monthNum > 12 {
		return 0, 0, "", appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	teacherID := c.Query("teacherId")
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleTeacher {
		teacherID = claims.UserID
	}
	return year, time.Month(monthNum), teacherID, nil
}
