package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/oumizumi/Kairo-sub002/internal/dto"
	"github.com/oumizumi/Kairo-sub002/internal/model"
	"github.com/oumizumi/Kairo-sub002/internal/planner"
	"github.com/oumizumi/Kairo-sub002/internal/repository"
)

// ── calendar errors ──

var (
	ErrEventNotFound    = errors.New("calendar event not found")
	ErrInvalidTimeRange = errors.New("end_time must be after start_time")
	ErrInvalidDateRange = errors.New("end_date must not be before start_date")
	ErrDayRequired      = errors.New("day_of_week is required for recurring events")
	ErrDateRequired     = errors.New("start_date is required for one-off events")
	ErrInvalidTheme     = errors.New("unknown theme")
)

const (
	clockLayout = "15:04"
	dateLayout  = "2006-01-02"
)

// CalendarService the user's calendar events. Every call is scoped to
// userID: other users' events are reported as not found.
type CalendarService interface {
	List(ctx context.Context, userID string) ([]dto.CalendarEventResponse, error)
	Get(ctx context.Context, userID, id string) (*dto.CalendarEventResponse, error)
	Create(ctx context.Context, userID string, req *dto.CalendarEventRequest) (*dto.CalendarEventResponse, error)
	// Update applies the fields present in req. PUT is treated as PATCH.
	Update(ctx context.Context, userID, id string, req *dto.UpdateCalendarEventRequest) (*dto.CalendarEventResponse, error)
	Delete(ctx context.Context, userID, id string) error
	BulkCreate(ctx context.Context, userID string, items []dto.CalendarEventRequest) (*dto.BulkCreateResponse, error)
	Clear(ctx context.Context, userID string, req *dto.ClearCalendarRequest) (*dto.ClearCalendarResponse, error)
	Export(ctx context.Context, userID string) (*dto.ExportCalendarResponse, error)
}

type calendarService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCalendarService creates a CalendarService
func NewCalendarService(repo *repository.Repository, logger *zap.Logger) CalendarService {
	return &calendarService{repo: repo, logger: logger}
}

func (s *calendarService) List(ctx context.Context, userID string) ([]dto.CalendarEventResponse, error) {
	events, err := s.repo.Calendar.List(ctx, userID)
	if err != nil {
		s.logger.Error("list calendar events failed", zap.Error(err))
		return nil, err
	}
	return toEventResponses(events), nil
}

func (s *calendarService) Get(ctx context.Context, userID, id string) (*dto.CalendarEventResponse, error) {
	event, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	resp := toEventResponse(event)
	return &resp, nil
}

func (s *calendarService) Create(ctx context.Context, userID string, req *dto.CalendarEventRequest) (*dto.CalendarEventResponse, error) {
	event := fromEventRequest(userID, req)
	if err := normalizeEvent(event); err != nil {
		return nil, err
	}
	if err := s.repo.Calendar.Create(ctx, event); err != nil {
		s.logger.Error("create calendar event failed", zap.Error(err))
		return nil, err
	}
	resp := toEventResponse(event)
	return &resp, nil
}

func (s *calendarService) Update(ctx context.Context, userID, id string, req *dto.UpdateCalendarEventRequest) (*dto.CalendarEventResponse, error) {
	// 1. load (ownership)
	event, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	// 2. apply present fields
	if req.Version != nil {
		event.Version = *req.Version
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&event.Title, req.Title)
	set(&event.StartTime, req.StartTime)
	set(&event.EndTime, req.EndTime)
	set(&event.DayOfWeek, req.DayOfWeek)
	set(&event.StartDate, req.StartDate)
	set(&event.EndDate, req.EndDate)
	set(&event.Description, req.Description)
	set(&event.Professor, req.Professor)
	set(&event.Location, req.Location)
	set(&event.RecurrencePattern, req.RecurrencePattern)
	set(&event.ReferenceDate, req.ReferenceDate)
	set(&event.Theme, req.Theme)

	// 3. validate and write under the version lock
	if err := normalizeEvent(event); err != nil {
		return nil, err
	}
	if err := s.repo.Calendar.Update(ctx, event); err != nil {
		return nil, err
	}
	resp := toEventResponse(event)
	return &resp, nil
}

func (s *calendarService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Calendar.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEventNotFound
		}
		s.logger.Error("delete calendar event failed", zap.Error(err))
		return err
	}
	return nil
}

func (s *calendarService) BulkCreate(ctx context.Context, userID string, items []dto.CalendarEventRequest) (*dto.BulkCreateResponse, error) {
	resp := &dto.BulkCreateResponse{
		CreatedEvents: []dto.CalendarEventResponse{},
		Errors:        []dto.BulkItemError{},
	}

	// 1. validate every item; invalid items are reported, the rest are stored
	valid := make([]model.UserCalendar, 0, len(items))
	for i := range items {
		if err := validateItem(&items[i]); err != nil {
			resp.Errors = append(resp.Errors, dto.BulkItemError{Index: i, Title: items[i].Title, Error: err.Error()})
			continue
		}
		event := fromEventRequest(userID, &items[i])
		if err := normalizeEvent(event); err != nil {
			resp.Errors = append(resp.Errors, dto.BulkItemError{Index: i, Title: items[i].Title, Error: err.Error()})
			continue
		}
		valid = append(valid, *event)
	}

	// 2. one batch insert
	if err := s.repo.Calendar.BatchCreate(ctx, valid); err != nil {
		s.logger.Error("bulk create calendar events failed", zap.Int("count", len(valid)), zap.Error(err))
		return nil, err
	}

	resp.CreatedEvents = append(resp.CreatedEvents, toEventResponses(valid)...)
	resp.TotalCreated = len(resp.CreatedEvents)
	resp.TotalErrors = len(resp.Errors)
	return resp, nil
}

func (s *calendarService) Clear(ctx context.Context, userID string, req *dto.ClearCalendarRequest) (*dto.ClearCalendarResponse, error) {
	var (
		n   int64
		err error
		msg string
	)
	if req != nil && req.StartDate != "" {
		end := req.EndDate
		if end == "" {
			end = req.StartDate
		}
		if end < req.StartDate {
			return nil, ErrInvalidDateRange
		}
		n, err = s.repo.Calendar.DeleteRange(ctx, userID, req.StartDate, end)
		msg = fmt.Sprintf("Deleted %d events between %s and %s", n, req.StartDate, end)
	} else {
		n, err = s.repo.Calendar.DeleteAll(ctx, userID)
		msg = fmt.Sprintf("Successfully cleared %d events from your calendar", n)
	}
	if err != nil {
		s.logger.Error("clear calendar failed", zap.Error(err))
		return nil, err
	}
	return &dto.ClearCalendarResponse{Message: msg, DeletedCount: n}, nil
}

func (s *calendarService) Export(ctx context.Context, userID string) (*dto.ExportCalendarResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	events, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.ExportCalendarResponse{
		Events:      events,
		TotalEvents: len(events),
		User:        user.Username,
	}, nil
}

func (s *calendarService) get(ctx context.Context, userID, id string) (*model.UserCalendar, error) {
	event, err := s.repo.Calendar.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		s.logger.Error("get calendar event failed", zap.Error(err))
		return nil, err
	}
	return event, nil
}

// ── validation ──

var (
	itemValidatorOnce sync.Once
	itemValidator     *validator.Validate
)

// validateItem applies the binding rules gin applies to single requests.
func validateItem(req *dto.CalendarEventRequest) error {
	itemValidatorOnce.Do(func() {
		itemValidator = validator.New(validator.WithRequiredStructEnabled())
		itemValidator.SetTagName("binding")
		itemValidator.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			return name
		})
	})
	err := itemValidator.Struct(req)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag()))
		}
		return errors.New(strings.Join(parts, "; "))
	}
	return err
}

// normalizeEvent canonicalizes clock and date strings, fills defaults and
// checks the cross-field rules.
func normalizeEvent(e *model.UserCalendar) error {
	start, err := time.Parse(clockLayout, e.StartTime)
	if err != nil {
		return fmt.Errorf("start_time %q: %w", e.StartTime, ErrInvalidTimeRange)
	}
	end, err := time.Parse(clockLayout, e.EndTime)
	if err != nil {
		return fmt.Errorf("end_time %q: %w", e.EndTime, ErrInvalidTimeRange)
	}
	if !end.After(start) {
		return ErrInvalidTimeRange
	}
	e.StartTime, e.EndTime = start.Format(clockLayout), end.Format(clockLayout)

	if e.RecurrencePattern == "" {
		e.RecurrencePattern = model.RecurrenceWeekly
	}
	if e.StartDate != "" && e.EndDate != "" && e.EndDate < e.StartDate {
		return ErrInvalidDateRange
	}
	switch e.RecurrencePattern {
	case model.RecurrenceNone:
		if e.StartDate == "" {
			return ErrDateRequired
		}
	default:
		if e.DayOfWeek == "" && e.StartDate != "" {
			if d, err := time.Parse(dateLayout, e.StartDate); err == nil {
				e.DayOfWeek = d.Weekday().String()
			}
		}
		if e.DayOfWeek == "" {
			return ErrDayRequired
		}
	}

	if e.Theme == "" {
		e.Theme = model.DefaultTheme
	} else if !planner.IsTheme(e.Theme) {
		return fmt.Errorf("%w: %s", ErrInvalidTheme, e.Theme)
	}
	return nil
}

// ── conversion ──

func fromEventRequest(userID string, req *dto.CalendarEventRequest) *model.UserCalendar {
	return &model.UserCalendar{
		UserID:            userID,
		Title:             strings.TrimSpace(req.Title),
		StartTime:         strings.TrimSpace(req.StartTime),
		EndTime:           strings.TrimSpace(req.EndTime),
		DayOfWeek:         req.DayOfWeek,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		Description:       req.Description,
		Professor:         req.Professor,
		Location:          req.Location,
		RecurrencePattern: req.RecurrencePattern,
		ReferenceDate:     req.ReferenceDate,
		Theme:             req.Theme,
	}
}

func toEventResponse(e *model.UserCalendar) dto.CalendarEventResponse {
	resp := dto.CalendarEventResponse{
		ID:                e.EventID,
		Title:             e.Title,
		StartTime:         e.StartTime,
		EndTime:           e.EndTime,
		DayOfWeek:         e.DayOfWeek,
		StartDate:         e.StartDate,
		EndDate:           e.EndDate,
		Description:       e.Description,
		Professor:         e.Professor,
		Location:          e.Location,
		RecurrencePattern: e.RecurrencePattern,
		ReferenceDate:     e.ReferenceDate,
		Theme:             e.Theme,
		Version:           e.Version,
	}
	if !e.CreatedAt.IsZero() {
		resp.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	if !e.UpdatedAt.IsZero() {
		resp.UpdatedAt = e.UpdatedAt.Format(time.RFC3339)
	}
	return resp
}

func toEventResponses(events []model.UserCalendar) []dto.CalendarEventResponse {
	out := make([]dto.CalendarEventResponse, 0, len(events))
	for i := range events {
		out = append(out, toEventResponse(&events[i]))
	}
	return out
}
