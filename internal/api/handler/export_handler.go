package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/oumizumi/Kairo-sub002/internal/ics"
	"github.com/oumizumi/Kairo-sub002/internal/service"
	"github.com/oumizumi/Kairo-sub002/pkg/response"
)

const (
	icsFilename  = "kairo_schedule.ics"
	xlsxFilename = "kairo_schedule.xlsx"
	xlsxMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportHandler calendar files in and out
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler creates an ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportICS downloads the calendar as iCalendar
// GET /api/calendar/export_ics/
func (h *ExportHandler) ExportICS(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	body, err := h.exportSvc.ExportICS(c.Request.Context(), userID)
	if err != nil {
		handleExportError(c, err)
		return
	}

	attachment(c, icsFilename)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

// ImportICS adds the events of an uploaded .ics file (form field "file")
// POST /api/calendar/import_ics/
func (h *ExportHandler) ImportICS(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "an .ics file is required in the 'file' field")
		return
	}
	if fh.Size > ics.MaxImportSize {
		response.Error(c, http.StatusRequestEntityTooLarge, 16002, "calendar file is too large")
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.InternalError(c)
		return
	}
	defer f.Close()

	result, err := h.exportSvc.ImportICS(c.Request.Context(), userID, f)
	if err != nil {
		handleExportError(c, err)
		return
	}

	if result.TotalCreated == 0 {
		response.WithStatus(c, http.StatusBadRequest, 16003, "no events were imported", result)
		return
	}
	response.Created(c, result)
}

// ExportXLSX downloads the weekly grid as a spreadsheet
// GET /api/calendar/export_xlsx/
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	buf, err := h.exportSvc.ExportXLSX(c.Request.Context(), userID)
	if err != nil {
		handleExportError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	attachment(c, xlsxFilename)
	c.Data(http.StatusOK, xlsxMIME, buf.Bytes())
}

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"; filename*=UTF-8''"+url.QueryEscape(filename))
}

func handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoEvents):
		response.NotFound(c, 16001, err.Error())
	case errors.Is(err, service.ErrImportEmpty):
		response.BadRequest(c, 16003, err.Error())
	case errors.Is(err, ics.ErrInvalidCalendar):
		response.ErrorWithDetails(c, http.StatusBadRequest, 16004, "the file is not a valid calendar", err.Error())
	case errors.Is(err, service.ErrExportGenerateFail):
		response.Error(c, http.StatusInternalServerError, 16005, err.Error())
	default:
		response.InternalError(c)
	}
}
