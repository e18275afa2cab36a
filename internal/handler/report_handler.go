package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/libinstruct/lir-api/internal/dto"
	"github.com/libinstruct/lir-api/internal/models"
	"github.com/libinstruct/lir-api/internal/service"
	appErrors "github.com/libinstruct/lir-api/pkg/errors"
	"github.com/libinstruct/lir-api/pkg/response"
)

type reportService interface {
	Table(ctx context.Context, filter models.ReportFilter) (*dto.TableReport, error)
	File(ctx context.Context, filter models.ReportFilter, format dto.ReportFormat) (*service.ReportFile, error)
	LibrarianNames(ctx context.Context) ([]string, error)
}

// ReportHandler renders filtered report output.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs the handler.
func NewReportHandler(service reportService) *ReportHandler {
	return &ReportHandler{service: service}
}

func reportRequest(c *gin.Context) dto.ReportRequest {
	return dto.ReportRequest{
		LibrarianName: c.Query("librarian_name"),
		StartDate:     c.Query("start_date"),
		EndDate:       c.Query("end_date"),
		Format:        dto.ReportFormat(c.DefaultQuery("format", string(dto.ReportFormatTable))),
	}
}

// Generate renders the report in the requested format. Table output comes
// back as JSON; csv and pdf are file downloads with attachment headers.
func (h *ReportHandler) Generate(c *gin.Context) {
	req := reportRequest(c)
	filter, err := service.ParseFilter(req)
	if err != nil {
		response.Error(c, err)
		return
	}

	switch req.Format {
	case dto.ReportFormatCSV, dto.ReportFormatPDF:
		file, err := h.service.File(c.Request.Context(), filter, req.Format)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate")
		c.Header("Pragma", "no-cache")
		c.Data(http.StatusOK, file.ContentType, file.Body)
	case dto.ReportFormatTable:
		table, err := h.service.Table(c.Request.Context(), filter)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, table)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown report format"))
	}
}

// Librarians lists the distinct librarian names for the filter form.
func (h *ReportHandler) Librarians(c *gin.Context) {
	names, err := h.service.LibrarianNames(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, names)
}
