package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oumizumi/Kairo-sub002/internal/dto"
	"github.com/oumizumi/Kairo-sub002/internal/service"
	"github.com/oumizumi/Kairo-sub002/pkg/llm"
	"github.com/oumizumi/Kairo-sub002/pkg/response"
)

// AIHandler model classification and conversation reset
type AIHandler struct {
	aiSvc       service.AIService
	scheduleSvc service.ScheduleService
}

// NewAIHandler creates an AIHandler
func NewAIHandler(aiSvc service.AIService, scheduleSvc service.ScheduleService) *AIHandler {
	return &AIHandler{aiSvc: aiSvc, scheduleSvc: scheduleSvc}
}

// Classify proxies one classification exchange to the model
// POST /api/ai/classify/
func (h *AIHandler) Classify(c *gin.Context) {
	var req dto.ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "invalid request", err.Error())
		return
	}

	result, err := h.aiSvc.Classify(c.Request.Context(), &req)
	if err != nil {
		handleAIError(c, err)
		return
	}

	response.OK(c, result)
}

// Reset clears the caller's conversation history, learned patterns and
// generation session
// POST /api/ai/reset/
func (h *AIHandler) Reset(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	response.OK(c, h.scheduleSvc.Reset(c.Request.Context(), userID))
}

func handleAIError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPromptRequired), errors.Is(err, service.ErrMessageRequired):
		response.BadRequest(c, 15001, err.Error())
	case errors.Is(err, llm.ErrNotConfigured):
		response.Error(c, http.StatusInternalServerError, 15002, "AI service is not configured")
	case errors.Is(err, llm.ErrUnavailable):
		response.Error(c, http.StatusServiceUnavailable, 15003, "AI service is temporarily unavailable")
	case errors.Is(err, llm.ErrRateLimited):
		response.Error(c, http.StatusTooManyRequests, 15004, "AI service rate limit reached, try again shortly")
	case errors.Is(err, llm.ErrUpstream):
		response.ErrorWithDetails(c, http.StatusBadGateway, 15005, "AI service returned an error", err.Error())
	default:
		response.InternalError(c)
	}
}
