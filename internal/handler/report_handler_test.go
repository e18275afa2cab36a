package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/libinstruct/lir-api/internal/dto"
	"github.com/libinstruct/lir-api/internal/models"
	"github.com/libinstruct/lir-api/internal/service"
)

type reportServiceMock struct {
	table      *dto.TableReport
	file       *service.ReportFile
	names      []string
	lastFilter models.ReportFilter
	lastFormat dto.ReportFormat
}

func (m *reportServiceMock) Table(ctx context.Context, filter models.ReportFilter) (*dto.TableReport, error) {
	m.lastFilter = filter
	return m.table, nil
}

func (m *reportServiceMock) File(ctx context.Context, filter models.ReportFilter, format dto.ReportFormat) (*service.ReportFile, error) {
	m.lastFilter = filter
	m.lastFormat = format
	return m.file, nil
}

func (m *reportServiceMock) LibrarianNames(ctx context.Context) ([]string, error) {
	return m.names, nil
}

func newReportTestContext(t *testing.T, target string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)
	c.Request = req
	return c, w
}

func TestReportHandlerCSVDownloadHeaders(t *testing.T) {
	mock := &reportServiceMock{file: &service.ReportFile{
		Filename:    "LIR all.csv",
		ContentType: "text/csv",
		Body:        []byte("id,librarian_name\n"),
	}}
	h := NewReportHandler(mock)

	c, w := newReportTestContext(t, "/reports?format=csv")
	h.Generate(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, `attachment; filename="LIR all.csv"`, w.Header().Get("Content-Disposition"))
	require.Contains(t, w.Header().Get("Cache-Control"), "no-store")
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Equal(t, dto.ReportFormatCSV, mock.lastFormat)
}

func TestReportHandlerTableDefault(t *testing.T) {
	mock := &reportServiceMock{table: &dto.TableReport{Headers: []string{"id"}}}
	h := NewReportHandler(mock)

	c, w := newReportTestContext(t, "/reports?librarian_name=Ada%20Park&start_date=2026-01-01")
	h.Generate(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Ada Park", mock.lastFilter.LibrarianName)
	require.NotNil(t, mock.lastFilter.StartDate)
}

func TestReportHandlerBadDate(t *testing.T) {
	h := NewReportHandler(&reportServiceMock{})

	c, w := newReportTestContext(t, "/reports?start_date=garbage")
	h.Generate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Malformed Field: Start Date")
}

func TestReportHandlerUnknownFormat(t *testing.T) {
	h := NewReportHandler(&reportServiceMock{})

	c, w := newReportTestContext(t, "/reports?format=xlsx")
	h.Generate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerLibrarians(t *testing.T) {
	h := NewReportHandler(&reportServiceMock{names: []string{"Ada Park", "Ben Ortiz"}})

	c, w := newReportTestContext(t, "/reports/librarians")
	h.Librarians(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Ada Park")
}
