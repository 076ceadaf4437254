package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oumizumi/Kairo-sub002/internal/dto"
	"github.com/oumizumi/Kairo-sub002/internal/service"
	"github.com/oumizumi/Kairo-sub002/pkg/response"
)

// ScheduleHandler schedule generation
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
}

// NewScheduleHandler creates a ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc}
}

// Generate builds a schedule from a message or structured fields and saves it.
// A schedule that could not be built is still 200, with code 13002 and the
// generator's explanation.
// POST /api/schedule/generate/
func (h *ScheduleHandler) Generate(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "invalid request", err.Error())
		return
	}
	if req.Message == "" && req.Program == "" && len(req.Courses) == 0 && !req.Regenerate {
		response.BadRequest(c, 13001, "message, program or courses is required")
		return
	}

	result, err := h.scheduleSvc.Generate(c.Request.Context(), userID, &req)
	if err != nil {
		handleScheduleError(c, err, result)
		return
	}

	if result.Result == nil || !result.Success {
		message := "no schedule could be generated"
		if result.Result != nil && result.Message != "" {
			message = result.Message
		}
		response.WithStatus(c, http.StatusOK, 13002, message, result)
		return
	}
	response.OK(c, result)
}

func handleScheduleError(c *gin.Context, err error, result *dto.GenerateScheduleResponse) {
	switch {
	case errors.Is(err, service.ErrCurriculumUnavailable):
		message := err.Error()
		if result != nil && result.Result != nil && result.Message != "" {
			message = result.Message
		}
		response.Error(c, http.StatusServiceUnavailable, 13003, message)
	default:
		response.InternalError(c)
	}
}
