package dto

import "github.com/edusuite/presence-api/internal/models"

// ReportRequest is the payload for queueing an asynchronous report.
type ReportRequest struct {
	Type           models.ReportType `json:"type"`
	Format         ExportFormat      `json:"format"`
	ClassID        string            `json:"class_id,omitempty"`
	AcademicYearID string            `json:"academic_year_id,omitempty"`
	TeacherID      string            `json:"teacher_id,omitempty"`
	From           string            `json:"from"`
	To             string            `json:"to"`
}

// ReportJobResponse acknowledges job creation.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress to pollers.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
