package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/libinstruct/lir-api/internal/dto"
	"github.com/libinstruct/lir-api/internal/models"
	appErrors "github.com/libinstruct/lir-api/pkg/errors"
	"github.com/libinstruct/lir-api/pkg/response"
)

type settingsService interface {
	Current(ctx context.Context) (*models.AppSettings, error)
	Update(ctx context.Context, req dto.UpdateSettingsRequest) (*models.AppSettings, error)
	Durations(ctx context.Context) ([]dto.DurationOption, error)
}

// SettingsHandler exposes the application settings row.
type SettingsHandler struct {
	service settingsService
}

// NewSettingsHandler constructs the handler.
func NewSettingsHandler(service settingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// Get returns the current settings.
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.service.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings)
}

// Update applies the admin-controlled fields.
func (h *SettingsHandler) Update(c *gin.Context) {
	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid settings payload"))
		return
	}
	settings, err := h.service.Update(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings)
}

// Durations lists the selectable class lengths derived from the interval
// settings.
func (h *SettingsHandler) Durations(c *gin.Context) {
	options, err := h.service.Durations(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options)
}
