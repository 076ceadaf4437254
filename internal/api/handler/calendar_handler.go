package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oumizumi/Kairo-sub002/internal/dto"
	"github.com/oumizumi/Kairo-sub002/internal/service"
	pkgerrors "github.com/oumizumi/Kairo-sub002/pkg/errors"
	"github.com/oumizumi/Kairo-sub002/pkg/response"
)

// CalendarHandler the signed-in user's calendar events
type CalendarHandler struct {
	calendarSvc service.CalendarService
}

// NewCalendarHandler creates a CalendarHandler
func NewCalendarHandler(calendarSvc service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendarSvc: calendarSvc}
}

// List every event
// GET /api/user-calendar/
func (h *CalendarHandler) List(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	events, err := h.calendarSvc.List(c.Request.Context(), userID)
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	response.OK(c, events)
}

// Create one event
// POST /api/user-calendar/
func (h *CalendarHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CalendarEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "invalid event", err.Error())
		return
	}

	event, err := h.calendarSvc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	response.Created(c, event)
}

// Get one event
// GET /api/user-calendar/:id/
func (h *CalendarHandler) Get(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	event, err := h.calendarSvc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	response.OK(c, event)
}

// Update applies the given fields
// PUT|PATCH /api/user-calendar/:id/
func (h *CalendarHandler) Update(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateCalendarEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "invalid event", err.Error())
		return
	}

	event, err := h.calendarSvc.Update(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	response.OK(c, event)
}

// Delete one event
// DELETE /api/user-calendar/:id/
func (h *CalendarHandler) Delete(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.calendarSvc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		handleCalendarError(c, err)
		return
	}

	response.OK(c, dto.MessageResponse{Message: "Event deleted"})
}

// BulkCreate stores the valid items and reports the rest. 201 when anything
// was created, 400 otherwise.
// POST /api/user-calendar/bulk_create/
func (h *CalendarHandler) BulkCreate(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.BulkCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "events must be a list of 1 to 500 events", err.Error())
		return
	}

	result, err := h.calendarSvc.BulkCreate(c.Request.Context(), userID, req.Events)
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	if result.TotalCreated == 0 {
		response.WithStatus(c, http.StatusBadRequest, 12004, "no events were created", result)
		return
	}
	response.Created(c, result)
}

// Clear deletes every event, or those starting within start_date..end_date
// DELETE /api/user-calendar/clear_calendar/
func (h *CalendarHandler) Clear(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ClearCalendarRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "dates must be YYYY-MM-DD", err.Error())
		return
	}

	result, err := h.calendarSvc.Clear(c.Request.Context(), userID, &req)
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	response.OK(c, result)
}

// Export every event as JSON
// GET /api/user-calendar/export_calendar/
func (h *CalendarHandler) Export(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.calendarSvc.Export(c.Request.Context(), userID)
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	response.OK(c, result)
}

func handleCalendarError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		response.NotFound(c, 12001, err.Error())
	case errors.Is(err, service.ErrInvalidTimeRange),
		errors.Is(err, service.ErrInvalidDateRange),
		errors.Is(err, service.ErrDayRequired),
		errors.Is(err, service.ErrDateRequired),
		errors.Is(err, service.ErrInvalidTheme):
		response.BadRequest(c, 12002, err.Error())
	case errors.Is(err, pkgerrors.ErrVersionConflict):
		response.Conflict(c, 12003, "the event was changed by another request, reload and try again")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 11005, err.Error())
	default:
		response.InternalError(c)
	}
}
