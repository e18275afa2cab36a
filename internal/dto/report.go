package dto

// ReportFormat enumerates supported report renderings.
type ReportFormat string

const (
	ReportFormatCSV   ReportFormat = "csv"
	ReportFormatTable ReportFormat = "table"
	ReportFormatPDF   ReportFormat = "pdf"
)

// ReportRequest captures the report filter form. Dates use YYYY-MM-DD and are
// inclusive bounds on class_start.
type ReportRequest struct {
	LibrarianName string       `json:"librarian_name,omitempty"`
	StartDate     string       `json:"start_date,omitempty"`
	EndDate       string       `json:"end_date,omitempty"`
	Format        ReportFormat `json:"format"`
}

// TableReport is the structured rendering used for on-page display.
// WideColumns hints which columns the client should give extra room.
type TableReport struct {
	Headers     []string   `json:"headers"`
	Rows        [][]string `json:"rows"`
	WideColumns []string   `json:"wide_columns"`
}
