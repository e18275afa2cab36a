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

type catalogService interface {
	Values(ctx context.Context, kind models.CatalogKind) (*dto.ValueListResponse, error)
	AddValue(ctx context.Context, kind models.CatalogKind, value string) (*dto.ValueListResponse, error)
	RemoveValue(ctx context.Context, kind models.CatalogKind, value string) (*dto.ValueListResponse, error)
	Flags(ctx context.Context) ([]dto.FlagDefinitionItem, error)
	SaveFlags(ctx context.Context, req dto.SaveFlagDefinitionsRequest) ([]dto.FlagDefinitionItem, error)
}

// CatalogHandler exposes the configurable value lists and flag definitions.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(service catalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

func catalogKind(c *gin.Context) (models.CatalogKind, bool) {
	raw := c.Param("kind")
	if !models.ValidCatalogKind(raw) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown catalog kind"))
		return "", false
	}
	return models.CatalogKind(raw), true
}

// Values returns one catalog list.
func (h *CatalogHandler) Values(c *gin.Context) {
	kind, ok := catalogKind(c)
	if !ok {
		return
	}
	resp, err := h.service.Values(c.Request.Context(), kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// AddValue appends a value to a catalog list.
func (h *CatalogHandler) AddValue(c *gin.Context) {
	kind, ok := catalogKind(c)
	if !ok {
		return
	}
	var req dto.AddValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid catalog payload"))
		return
	}
	resp, err := h.service.AddValue(c.Request.Context(), kind, req.Value)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

// RemoveValue deletes a value from a catalog list.
func (h *CatalogHandler) RemoveValue(c *gin.Context) {
	kind, ok := catalogKind(c)
	if !ok {
		return
	}
	value := c.Query("value")
	if value == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing value parameter"))
		return
	}
	resp, err := h.service.RemoveValue(c.Request.Context(), kind, value)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// Flags returns flag definitions in form order. Passing enabled=true narrows
// the listing to active flags, which is what the entry form renders.
func (h *CatalogHandler) Flags(c *gin.Context) {
	items, err := h.service.Flags(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if c.Query("enabled") == "true" {
		active := make([]dto.FlagDefinitionItem, 0, len(items))
		for _, item := range items {
			if item.Enabled {
				active = append(active, item)
			}
		}
		items = active
	}
	response.JSON(c, http.StatusOK, items)
}

// SaveFlags replaces the whole flag definition set.
func (h *CatalogHandler) SaveFlags(c *gin.Context) {
	var req dto.SaveFlagDefinitionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid flag definitions payload"))
		return
	}
	items, err := h.service.SaveFlags(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items)
}
