package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edusuite/presence-api/internal/dto"
	"github.com/edusuite/presence-api/internal/models"
	"github.com/edusuite/presence-api/internal/service"
	appErrors "github.com/edusuite/presence-api/pkg/errors"
	"github.com/edusuite/presence-api/pkg/response"
)

// AbsenceHandler exposes attendance capture and absence aggregation endpoints.
type AbsenceHandler struct {
	service  *service.AbsenceService
	exporter *service.ExportService
}

// NewAbsenceHandler constructs handler.
func NewAbsenceHandler(svc *service.AbsenceService, exporter *service.ExportService) *AbsenceHandler {
	return &AbsenceHandler{service: svc, exporter: exporter}
}

// RecordSession godoc
// @Summary Record attendance for a session
// @Description Persists the absentees of one session. Resubmitting the same session appends entries.
// @Tags Absences
// @Accept json
// @Produce json
// @Param payload body service.RecordSessionRequest true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /absences/sessions [post]
func (h *AbsenceHandler) RecordSession(c *gin.Context) {
	var req service.RecordSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}
	record, err := h.service.RecordSession(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// SessionReport godoc
// @Summary Absentees of one session
// @Description Resolves the session by its full key. A session without a record yields taken=false and an empty list.
// @Tags Absences
// @Produce json
// @Param classId query string true "Class ID"
// @Param yearId query string true "Academic year ID"
// @Param semester query string true "Semester (S1 or S2)"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param subjectId query string true "Subject ID"
// @Param start query string true "Start time (HH:MM)"
// @Param end query string true "End time (HH:MM)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /absences/sessions [get]
func (h *AbsenceHandler) SessionReport(c *gin.Context) {
	key := models.SessionKey{
		ClassID:        c.Query("classId"),
		AcademicYearID: c.Query("yearId"),
		Semester:       models.Semester(c.Query("semester")),
		Date:           c.Query("date"),
		SubjectID:      c.Query("subjectId"),
		Start:          c.Query("start"),
		End:            c.Query("end"),
	}
	if key.ClassID == "" || key.Date == "" || key.SubjectID == "" || key.Start == "" || key.End == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "classId, date, subjectId, start and end required"))
		return
	}
	report, err := h.service.SessionReport(c.Request.Context(), key)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Summary godoc
// @Summary Range-scoped absence summary
// @Description Aggregates absence counts per student over an inclusive date range or a named preset.
// @Tags Absences
// @Produce json
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Param preset query string false "Range preset (week, 30d, quarter, half_year, academic_year)"
// @Param classId query string false "Class ID"
// @Param yearId query string false "Academic year ID"
// @Param yearLabel query string false "Academic year label, required for the academic_year preset"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /absences/summary [get]
func (h *AbsenceHandler) Summary(c *gin.Context) {
	var q dto.AbsenceSummaryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid summary query"))
		return
	}
	result, err := h.service.RangeSummary(c.Request.Context(), q, time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Export an absence summary
// @Description Renders the range-scoped summary as CSV or PDF and streams it back.
// @Tags Absences
// @Produce octet-stream
// @Param format query string true "Export format (csv or pdf)"
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Param preset query string false "Range preset"
// @Param classId query string false "Class ID"
// @Param yearId query string false "Academic year ID"
// @Param yearLabel query string false "Academic year label"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /absences/export [get]
func (h *AbsenceHandler) Export(c *gin.Context) {
	format := dto.ExportFormat(c.Query("format"))
	if !format.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	var q dto.AbsenceSummaryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid summary query"))
		return
	}
	doc, err := h.exporter.AbsenceDocument(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	payload, err := h.exporter.Render(doc, format)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to render export"))
		return
	}
	streamExport(c, payload, format, fmt.Sprintf("absences_%s", time.Now().UTC().Format("20060102_150405")))
}

func streamExport(c *gin.Context, payload []byte, format dto.ExportFormat, basename string) {
	mime := "text/csv"
	if format == dto.ExportFormatPDF {
		mime = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.%s\"", basename, format))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, mime, payload)
}
