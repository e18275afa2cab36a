package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/libinstruct/lir-api/internal/dto"
	"github.com/libinstruct/lir-api/internal/models"
)

type reportStoreStub struct {
	rows       []models.ReportRecord
	flags      map[int64][]models.ClassFlag
	names      []string
	lastFilter models.ReportFilter
}

func (s *reportStoreStub) ReportRows(ctx context.Context, filter models.ReportFilter) ([]models.ReportRecord, error) {
	s.lastFilter = filter
	return s.rows, nil
}

func (s *reportStoreStub) FlagsForClassIDs(ctx context.Context, ids []int64) (map[int64][]models.ClassFlag, error) {
	if s.flags == nil {
		return map[int64][]models.ClassFlag{}, nil
	}
	return s.flags, nil
}

func (s *reportStoreStub) DistinctLibrarianNames(ctx context.Context) ([]string, error) {
	return s.names, nil
}

type settingsReaderStub struct {
	settings models.AppSettings
}

func (s *settingsReaderStub) Current(ctx context.Context) (*models.AppSettings, error) {
	copy := s.settings
	return &copy, nil
}

func sampleReportRecord(id int64) models.ReportRecord {
	start := time.Date(2026, 2, 3, 9, 30, 0, 0, time.UTC)
	attendance := 18
	return models.ReportRecord{
		ClassRecord: models.ClassRecord{
			ID:              id,
			LibrarianName:   "Ada Park",
			InstructorName:  "Sam Doyle",
			ClassStart:      start,
			ClassEnd:        start.Add(time.Hour),
			ClassLocation:   "Main Library Room 101",
			ClassType:       "Hands-on",
			Audience:        "Undergraduate",
			DepartmentGroup: "History",
			Attendance:      &attendance,
			OwnerID:         "user-1",
			LastUpdated:     start,
			LastUpdatedBy:   "user-2",
		},
		Owner:             "Ada Park",
		LastUpdatedByName: "Ben Ortiz",
	}
}

func newTestReportService(store *reportStoreStub) *ReportService {
	return NewReportService(store, &settingsReaderStub{settings: models.DefaultSettings()}, nil)
}

func TestReportServiceCSVIncludesFlagsColumn(t *testing.T) {
	store := &reportStoreStub{
		rows: []models.ReportRecord{sampleReportRecord(5)},
		flags: map[int64][]models.ClassFlag{
			5: {
				{ClassID: 5, Name: "Embedded Librarian", Value: true},
				{ClassID: 5, Name: "First Visit", Value: false},
			},
		},
	}
	svc := newTestReportService(store)

	file, err := svc.File(context.Background(), models.ReportFilter{}, dto.ReportFormatCSV)
	require.NoError(t, err)
	require.Equal(t, "text/csv", file.ContentType)
	require.Equal(t, "LIR all.csv", file.Filename)

	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "id,librarian_name"))
	require.True(t, strings.HasSuffix(lines[0], ",flags"))
	require.Contains(t, lines[1], "Embedded Librarian = yes, First Visit = no")
}

func TestReportServiceCSVZeroRowsHeadersOnly(t *testing.T) {
	svc := newTestReportService(&reportStoreStub{})

	file, err := svc.File(context.Background(), models.ReportFilter{}, dto.ReportFormatCSV)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 1)
}

func TestReportServiceTableShapesRowsAndHints(t *testing.T) {
	store := &reportStoreStub{rows: []models.ReportRecord{sampleReportRecord(1)}}
	svc := newTestReportService(store)

	table, err := svc.Table(context.Background(), models.ReportFilter{})
	require.NoError(t, err)
	require.Equal(t, len(table.Headers), len(table.Rows[0]))
	require.Equal(t, []string{"class_start", "class_end", "flags"}, table.WideColumns)
	require.Equal(t, "Ada Park", table.Rows[0][1])
	require.Equal(t, "Ben Ortiz", table.Rows[0][17])
}

func TestReportServicePDFFormat(t *testing.T) {
	store := &reportStoreStub{rows: []models.ReportRecord{sampleReportRecord(1)}}
	svc := newTestReportService(store)

	file, err := svc.File(context.Background(), models.ReportFilter{}, dto.ReportFormatPDF)
	require.NoError(t, err)
	require.Equal(t, "application/pdf", file.ContentType)
	require.Equal(t, "LIR all.pdf", file.Filename)
	require.NotEmpty(t, file.Body)
}

func TestReportFilename(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		filter models.ReportFilter
		want   string
	}{
		{"no filter", models.ReportFilter{}, "LIR all"},
		{"librarian stripped", models.ReportFilter{LibrarianName: "Ada O'Park-3"}, "LIR Ada OPark"},
		{"dates", models.ReportFilter{StartDate: &start, EndDate: &end}, "LIR starting 2026-01-01 ending 2026-01-31"},
		{"everything", models.ReportFilter{LibrarianName: "Ada Park", StartDate: &start}, "LIR Ada Park starting 2026-01-01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Filename("LIR", tc.filter))
		})
	}
}

func TestParseFilterCollectsViolations(t *testing.T) {
	_, err := ParseFilter(dto.ReportRequest{StartDate: "01/02/2026", EndDate: "bad"})
	require.Error(t, err)

	_, err = ParseFilter(dto.ReportRequest{StartDate: "2026-02-01", EndDate: "2026-01-01"})
	require.Error(t, err)

	filter, err := ParseFilter(dto.ReportRequest{LibrarianName: " Ada Park ", StartDate: "2026-01-01"})
	require.NoError(t, err)
	require.Equal(t, "Ada Park", filter.LibrarianName)
	require.NotNil(t, filter.StartDate)
	require.Nil(t, filter.EndDate)
}

func TestReportServiceLibrarianNamesSorted(t *testing.T) {
	store := &reportStoreStub{names: []string{"Zoe Hall", "ada park", "Ben Ortiz"}}
	svc := newTestReportService(store)

	names, err := svc.LibrarianNames(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"ada park", "Ben Ortiz", "Zoe Hall"}, names)
}
