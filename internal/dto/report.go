package dto

import "time"

// ReportDocument is the shape handed to the report renderer: a header,
// a column schema and ordered rows. Row order and the two-decimal
// rounding of hour values are guaranteed here; layout is not.
type ReportDocument struct {
	Title       string              `json:"title"`
	PeriodLabel string              `json:"period_label"`
	ScopeLabel  string              `json:"scope_label"`
	Columns     []string            `json:"columns"`
	Rows        []map[string]string `json:"rows"`
	Totals      map[string]string   `json:"totals,omitempty"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// ExportFormat selects the renderer output.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// Valid reports whether the format is supported.
func (f ExportFormat) Valid() bool {
	return f == ExportFormatCSV || f == ExportFormatPDF
}
