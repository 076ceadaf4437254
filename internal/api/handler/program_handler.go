package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oumizumi/Kairo-sub002/internal/dto"
	"github.com/oumizumi/Kairo-sub002/internal/service"
	"github.com/oumizumi/Kairo-sub002/pkg/response"
)

// ProgramHandler read-only program, curriculum and section data
type ProgramHandler struct {
	programSvc service.ProgramService
}

// NewProgramHandler creates a ProgramHandler
func NewProgramHandler(programSvc service.ProgramService) *ProgramHandler {
	return &ProgramHandler{programSvc: programSvc}
}

// List every known program
// GET /api/programs/
func (h *ProgramHandler) List(c *gin.Context) {
	programs, err := h.programSvc.List(c.Request.Context())
	if err != nil {
		handleProgramError(c, err)
		return
	}

	response.OK(c, programs)
}

// Match resolves free text to the best program
// GET /api/programs/match/?q=
func (h *ProgramHandler) Match(c *gin.Context) {
	var q dto.ProgramMatchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "q is required", err.Error())
		return
	}

	result, err := h.programSvc.Match(c.Request.Context(), q.Q)
	if err != nil {
		handleProgramError(c, err)
		return
	}

	response.OK(c, result)
}

// Curriculum a program's year-by-year sequence
// GET /api/programs/:id/curriculum/
func (h *ProgramHandler) Curriculum(c *gin.Context) {
	result, err := h.programSvc.Curriculum(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleProgramError(c, err)
		return
	}

	response.OK(c, result)
}

// Offering the section groups of one course
// GET /api/offerings/:term/:code/
func (h *ProgramHandler) Offering(c *gin.Context) {
	result, err := h.programSvc.Offering(c.Request.Context(), c.Param("term"), c.Param("code"))
	if err != nil {
		handleProgramError(c, err)
		return
	}

	response.OK(c, result)
}

func handleProgramError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProgramNotFound):
		response.NotFound(c, 14001, err.Error())
	case errors.Is(err, service.ErrProgramNotMatched):
		response.NotFound(c, 14002, err.Error())
	case errors.Is(err, service.ErrTermNotOffered):
		response.NotFound(c, 14003, err.Error())
	case errors.Is(err, service.ErrCourseNotOffered):
		response.NotFound(c, 14004, err.Error())
	case errors.Is(err, service.ErrCurriculumUnavailable):
		response.Error(c, http.StatusServiceUnavailable, 14005, err.Error())
	default:
		response.InternalError(c)
	}
}
