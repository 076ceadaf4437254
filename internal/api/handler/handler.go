package handler

import (
	"time"

	"github.com/oumizumi/Kairo-sub002/internal/service"
)

// Handler aggregates every handler.
type Handler struct {
	Auth     *AuthHandler
	Calendar *CalendarHandler
	Schedule *ScheduleHandler
	AI       *AIHandler
	Share    *ShareHandler
	Export   *ExportHandler
	Program  *ProgramHandler
}

// NewHandler builds the aggregate. refreshTTL is the lifetime of the refresh
// token cookie.
func NewHandler(svc *service.Service, refreshTTL time.Duration) *Handler {
	return &Handler{
		Auth:     NewAuthHandler(svc.Auth, refreshTTL),
		Calendar: NewCalendarHandler(svc.Calendar),
		Schedule: NewScheduleHandler(svc.Schedule),
		AI:       NewAIHandler(svc.AI, svc.Schedule),
		Share:    NewShareHandler(svc.Share),
		Export:   NewExportHandler(svc.Export),
		Program:  NewProgramHandler(svc.Program),
	}
}
