package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/libinstruct/lir-api/internal/dto"
	"github.com/libinstruct/lir-api/pkg/response"
)

type reminderService interface {
	Run(ctx context.Context, now time.Time) (*dto.ReminderRunResponse, error)
}

type reminderSchedule interface {
	NextRun() time.Time
}

// ReminderHandler exposes the reminder engine: a manual trigger and a
// next-run diagnostic.
type ReminderHandler struct {
	service  reminderService
	schedule reminderSchedule
}

// NewReminderHandler constructs the handler. schedule may be nil when the
// daily scheduler is disabled.
func NewReminderHandler(service reminderService, schedule reminderSchedule) *ReminderHandler {
	return &ReminderHandler{service: service, schedule: schedule}
}

// Run triggers a reminder dispatch immediately.
func (h *ReminderHandler) Run(c *gin.Context) {
	result, err := h.service.Run(c.Request.Context(), time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// NextRun reports when the scheduler will fire next. Returns a zero time
// when scheduling is disabled.
func (h *ReminderHandler) NextRun(c *gin.Context) {
	var next time.Time
	if h.schedule != nil {
		next = h.schedule.NextRun()
	}
	response.JSON(c, http.StatusOK, dto.ReminderNextRunResponse{NextRun: next})
}
