package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oumizumi/Kairo-sub002/internal/dto"
	"github.com/oumizumi/Kairo-sub002/internal/service"
	"github.com/oumizumi/Kairo-sub002/pkg/response"
)

// ShareHandler public schedule links
type ShareHandler struct {
	shareSvc service.ShareService
}

// NewShareHandler creates a ShareHandler
func NewShareHandler(shareSvc service.ShareService) *ShareHandler {
	return &ShareHandler{shareSvc: shareSvc}
}

// Create snapshots the caller's calendar, or the posted events
// POST /api/shared-schedules/
func (h *ShareHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateShareRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "invalid request", err.Error())
			return
		}
	}

	share, err := h.shareSvc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		handleShareError(c, err)
		return
	}

	response.Created(c, share)
}

// Get a shared schedule; no sign-in needed
// GET /api/schedule/:id/
func (h *ShareHandler) Get(c *gin.Context) {
	share, err := h.shareSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleShareError(c, err)
		return
	}

	response.OK(c, share)
}

func handleShareError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrShareNotFound):
		response.NotFound(c, 17001, err.Error())
	case errors.Is(err, service.ErrNothingToShare):
		response.BadRequest(c, 17002, err.Error())
	case errors.Is(err, service.ErrInvalidTimeRange),
		errors.Is(err, service.ErrInvalidDateRange),
		errors.Is(err, service.ErrDayRequired),
		errors.Is(err, service.ErrDateRequired),
		errors.Is(err, service.ErrInvalidTheme):
		response.BadRequest(c, 12002, err.Error())
	default:
		response.InternalError(c)
	}
}
