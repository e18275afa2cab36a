package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/libinstruct/lir-api/internal/dto"
	"github.com/libinstruct/lir-api/internal/models"
	appErrors "github.com/libinstruct/lir-api/pkg/errors"
	"github.com/libinstruct/lir-api/pkg/export"
)

type reportStore interface {
	ReportRows(ctx context.Context, filter models.ReportFilter) ([]models.ReportRecord, error)
	FlagsForClassIDs(ctx context.Context, ids []int64) (map[int64][]models.ClassFlag, error)
	DistinctLibrarianNames(ctx context.Context) ([]string, error)
}

type settingsReader interface {
	Current(ctx context.Context) (*models.AppSettings, error)
}

// ReportFile is a rendered downloadable report.
type ReportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ReportService renders filtered exports of the class record store.
type ReportService struct {
	store    reportStore
	settings settingsReader
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewReportService constructs the service.
func NewReportService(store reportStore, settings settingsReader, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		store:    store,
		settings: settings,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// reportHeaders is the fixed column order of every report rendering. The
// trailing flags column is synthesized from the attached flag rows.
var reportHeaders = []string{
	"id", "librarian_name", "librarian2_name", "instructor_name", "instructor_email",
	"instructor_phone", "class_start", "class_end", "class_location", "class_type",
	"audience", "class_description", "department_group", "course_number", "attendance",
	"owner", "last_updated", "last_updated_by", "flags",
}

// wideColumns hints which columns the tabular rendering should widen.
var wideColumns = []string{"class_start", "class_end", "flags"}

const reportTimeLayout = "2006-01-02 15:04"

// ParseFilter converts the transport-level request into a store filter.
// Malformed dates are collected as validation violations.
func ParseFilter(req dto.ReportRequest) (models.ReportFilter, error) {
	var violations []string
	filter := models.ReportFilter{LibrarianName: strings.TrimSpace(req.LibrarianName)}
	if req.StartDate != "" {
		parsed, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			violations = append(violations, "Malformed Field: Start Date")
		} else {
			filter.StartDate = &parsed
		}
	}
	if req.EndDate != "" {
		parsed, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			violations = append(violations, "Malformed Field: End Date")
		} else {
			filter.EndDate = &parsed
		}
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		violations = append(violations, "End Date precedes Start Date")
	}
	if len(violations) > 0 {
		return models.ReportFilter{}, appErrors.Validation(violations)
	}
	return filter, nil
}

// LibrarianNames lists the distinct librarian names for the filter form.
func (s *ReportService) LibrarianNames(ctx context.Context) ([]string, error) {
	names, err := s.store.DistinctLibrarianNames(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list librarian names")
	}
	SortNatural(names)
	return names, nil
}

// Table renders the report as structured rows for on-page display. Zero
// matches yield an empty body, never an error.
func (s *ReportService) Table(ctx context.Context, filter models.ReportFilter) (*dto.TableReport, error) {
	dataset, err := s.dataset(ctx, filter)
	if err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(dataset.Rows))
	for _, row := range dataset.Rows {
		cells := make([]string, len(dataset.Headers))
		for i, header := range dataset.Headers {
			cells[i] = row[header]
		}
		rows = append(rows, cells)
	}
	return &dto.TableReport{Headers: dataset.Headers, Rows: rows, WideColumns: wideColumns}, nil
}

// File renders the report as a downloadable CSV or PDF.
func (s *ReportService) File(ctx context.Context, filter models.ReportFilter, format dto.ReportFormat) (*ReportFile, error) {
	dataset, err := s.dataset(ctx, filter)
	if err != nil {
		return nil, err
	}
	slug := "LIR"
	if settings, err := s.settings.Current(ctx); err == nil {
		slug = settings.Slug
	} else {
		s.logger.Warn("settings lookup failed, using default slug", zap.Error(err))
	}

	switch format {
	case dto.ReportFormatPDF:
		body, err := s.pdf.Render(dataset, slug)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return &ReportFile{
			Filename:    Filename(slug, filter) + ".pdf",
			ContentType: "application/pdf",
			Body:        body,
		}, nil
	default:
		body, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		return &ReportFile{
			Filename:    Filename(slug, filter) + ".csv",
			ContentType: "text/csv",
			Body:        body,
		}, nil
	}
}

func (s *ReportService) dataset(ctx context.Context, filter models.ReportFilter) (export.Dataset, error) {
	records, err := s.store.ReportRows(ctx, filter)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report rows")
	}
	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}
	flags, err := s.store.FlagsForClassIDs(ctx, ids)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report flags")
	}

	rows := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, reportRow(rec, flags[rec.ID]))
	}
	return export.Dataset{Headers: reportHeaders, Rows: rows}, nil
}

func reportRow(rec models.ReportRecord, flags []models.ClassFlag) map[string]string {
	row := map[string]string{
		"id":                strconv.FormatInt(rec.ID, 10),
		"librarian_name":    rec.LibrarianName,
		"librarian2_name":   deref(rec.Librarian2Name),
		"instructor_name":   rec.InstructorName,
		"instructor_email":  deref(rec.InstructorEmail),
		"instructor_phone":  deref(rec.InstructorPhone),
		"class_start":       rec.ClassStart.Format(reportTimeLayout),
		"class_end":         rec.ClassEnd.Format(reportTimeLayout),
		"class_location":    rec.ClassLocation,
		"class_type":        rec.ClassType,
		"audience":          rec.Audience,
		"class_description": deref(rec.ClassDescription),
		"department_group":  rec.DepartmentGroup,
		"course_number":     deref(rec.CourseNumber),
		"owner":             rec.Owner,
		"last_updated":      rec.LastUpdated.Format(reportTimeLayout),
		"last_updated_by":   rec.LastUpdatedByName,
		"flags":             FlagsColumn(flags),
	}
	if rec.Attendance != nil {
		row["attendance"] = strconv.Itoa(*rec.Attendance)
	} else {
		row["attendance"] = ""
	}
	return row
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// FlagsColumn renders attached flags as a comma-joined "name = yes/no" list
// in flag-name order.
func FlagsColumn(flags []models.ClassFlag) string {
	parts := make([]string, 0, len(flags))
	for _, flag := range flags {
		value := "no"
		if flag.Value {
			value = "yes"
		}
		parts = append(parts, fmt.Sprintf("%s = %s", flag.Name, value))
	}
	return strings.Join(parts, ", ")
}

// Filename builds the download name: the slug, then the librarian name with
// non-alphabetic characters stripped, then the date bounds, or " all" when no
// filter was applied. The extension is appended by the caller.
func Filename(slug string, filter models.ReportFilter) string {
	name := slug
	filtered := false
	if filter.LibrarianName != "" {
		stripped := stripNonAlpha(filter.LibrarianName)
		if stripped != "" {
			name += " " + stripped
		}
		filtered = true
	}
	if filter.StartDate != nil {
		name += " starting " + filter.StartDate.Format("2006-01-02")
		filtered = true
	}
	if filter.EndDate != nil {
		name += " ending " + filter.EndDate.Format("2006-01-02")
		filtered = true
	}
	if !filtered {
		name += " all"
	}
	return name
}

func stripNonAlpha(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
