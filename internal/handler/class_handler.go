package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/libinstruct/lir-api/internal/dto"
	"github.com/libinstruct/lir-api/internal/models"
	appErrors "github.com/libinstruct/lir-api/pkg/errors"
	"github.com/libinstruct/lir-api/pkg/response"
)

type classService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.ClassRecordRequest) (*dto.ClassRecordResponse, error)
	Update(ctx context.Context, actor *models.JWTClaims, id int64, req dto.ClassRecordRequest) (*dto.ClassRecordResponse, error)
	Get(ctx context.Context, id int64) (*dto.ClassRecordResponse, error)
	List(ctx context.Context, actor *models.JWTClaims, bucket models.Bucket) (*dto.ClassListResponse, error)
	RequestDelete(ctx context.Context, actor *models.JWTClaims, id int64) (*dto.DeleteTokenResponse, error)
	ConfirmDelete(ctx context.Context, actor *models.JWTClaims, id int64, token string) error
}

// ClassHandler exposes REST endpoints for class records.
type ClassHandler struct {
	service classService
}

// NewClassHandler constructs the handler.
func NewClassHandler(service classService) *ClassHandler {
	return &ClassHandler{service: service}
}

func classID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid class record id"))
		return 0, false
	}
	return id, true
}

// List returns the requested bucket plus all bucket counts. An unknown
// bucket value falls back to upcoming.
func (h *ClassHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	bucket := models.ParseBucket(c.Query("bucket"))
	resp, err := h.service.List(c.Request.Context(), claims, bucket)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// Get returns one record with its flags.
func (h *ClassHandler) Get(c *gin.Context) {
	id, ok := classID(c)
	if !ok {
		return
	}
	resp, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// Create stores a new class record owned by the caller.
func (h *ClassHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ClassRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid class record payload"))
		return
	}
	resp, err := h.service.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

// Update rewrites an existing record.
func (h *ClassHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := classID(c)
	if !ok {
		return
	}
	var req dto.ClassRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid class record payload"))
		return
	}
	resp, err := h.service.Update(c.Request.Context(), claims, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// RequestDelete issues a single-use confirmation token for deleting a record.
func (h *ClassHandler) RequestDelete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := classID(c)
	if !ok {
		return
	}
	resp, err := h.service.RequestDelete(c.Request.Context(), claims, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// Delete removes a record, requiring the token minted by RequestDelete.
func (h *ClassHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := classID(c)
	if !ok {
		return
	}
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing delete confirmation token"))
		return
	}
	if err := h.service.ConfirmDelete(c.Request.Context(), claims, id, token); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
