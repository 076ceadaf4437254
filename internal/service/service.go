package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/oumizumi/Kairo-sub002/config"
	"github.com/oumizumi/Kairo-sub002/internal/curriculum"
	"github.com/oumizumi/Kairo-sub002/internal/planner"
	"github.com/oumizumi/Kairo-sub002/internal/repository"
	"github.com/oumizumi/Kairo-sub002/pkg/jwt"
	"github.com/oumizumi/Kairo-sub002/pkg/llm"
)

// TokenBlacklist revokes tokens by jti. *redis.Client implements it.
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// CurriculumSource is the program data the API exposes.
type CurriculumSource interface {
	planner.Curriculum
	ProgramByID(ctx context.Context, id string) (*curriculum.Program, error)
	LoadCurriculumData(ctx context.Context, file string) (*curriculum.CurriculumSequence, error)
}

// Dependencies are the collaborators the services are built from.
// Blacklist and LLM may be nil.
type Dependencies struct {
	Repo       *repository.Repository
	JWT        *jwt.Manager
	Blacklist  TokenBlacklist
	Curriculum CurriculumSource
	Offerings  planner.Offerings
	Generator  *planner.Generator
	LLM        llm.Client
}

// Service aggregates every service.
type Service struct {
	Auth     AuthService
	Calendar CalendarService
	Schedule ScheduleService
	Share    ShareService
	Export   ExportService
	AI       AIService
	Program  ProgramService
}

// NewService builds the aggregate.
func NewService(cfg *config.Config, deps Dependencies, logger *zap.Logger) *Service {
	calendar := NewCalendarService(deps.Repo, logger)
	return &Service{
		Auth:     NewAuthService(cfg, deps.Repo, deps.JWT, deps.Blacklist, logger),
		Calendar: calendar,
		Schedule: NewScheduleService(cfg, deps.Repo, deps.Generator, deps.Curriculum, deps.LLM, logger),
		Share:    NewShareService(cfg, deps.Repo, logger),
		Export:   NewExportService(deps.Repo, calendar, logger),
		AI:       NewAIService(cfg, deps.LLM, logger),
		Program:  NewProgramService(deps.Curriculum, deps.Offerings, logger),
	}
}
