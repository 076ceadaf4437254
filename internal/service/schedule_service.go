package service

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/oumizumi/Kairo-sub002/config"
	"github.com/oumizumi/Kairo-sub002/internal/classifier"
	"github.com/oumizumi/Kairo-sub002/internal/curriculum"
	"github.com/oumizumi/Kairo-sub002/internal/dto"
	"github.com/oumizumi/Kairo-sub002/internal/matcher"
	"github.com/oumizumi/Kairo-sub002/internal/model"
	"github.com/oumizumi/Kairo-sub002/internal/planner"
	"github.com/oumizumi/Kairo-sub002/internal/repository"
	"github.com/oumizumi/Kairo-sub002/pkg/llm"
)

// ErrCurriculumUnavailable the program index or a curriculum file could not be read.
var ErrCurriculumUnavailable = errors.New("program data is temporarily unavailable")

// ScheduleService schedule generation for signed-in users.
//
// Each user owns a generation session and a classifier conversation kept in
// memory for the configured session TTL, so follow-ups like "make it later"
// rework the last schedule instead of starting over.
type ScheduleService interface {
	Generate(ctx context.Context, userID string, req *dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error)
	// Reset forgets the user's conversation history, learned patterns and session.
	Reset(ctx context.Context, userID string) *dto.ResetResponse
}

// userState per-user conversation and generation state
type userState struct {
	session *planner.GenerationSession
	chain   *classifier.Chain

	mu          sync.Mutex
	lastProgram string
	lastYear    int
	lastTerms   []string
}

type scheduleService struct {
	repo      *repository.Repository
	generator *planner.Generator
	primary   classifier.Classifier
	heuristic *classifier.Heuristic
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions *gocache.Cache
}

// NewScheduleService creates a ScheduleService. client may be nil; messages
// are then classified by the keyword heuristic alone.
func NewScheduleService(
	cfg *config.Config,
	repo *repository.Repository,
	generator *planner.Generator,
	programs classifier.ProgramSource,
	client llm.Client,
	logger *zap.Logger,
) ScheduleService {
	ttl := config.DurationOr(cfg.Server.SessionTTL, 2*time.Hour)
	s := &scheduleService{
		repo:      repo,
		generator: generator,
		heuristic: classifier.NewHeuristic(programs),
		logger:    logger,
		now:       time.Now,
		sessions:  gocache.New(ttl, ttl/2),
	}
	if client != nil {
		s.primary = classifier.NewLLM(client, programs)
	}
	return s
}

func (s *scheduleService) Generate(ctx context.Context, userID string, req *dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	st := s.state(userID)
	msg := strings.TrimSpace(req.Message)

	// 1. change request or fresh generation
	regenerate := req.Regenerate
	var change classifier.ChangeKind
	if msg != "" {
		change = classifier.ChangeKindOf(msg)
		if change != classifier.ChangeNone && (change == classifier.ChangeRegeneration || !classifier.IsGenerationRequest(msg)) {
			regenerate = true
		} else {
			change = classifier.ChangeNone
		}
	}

	// 2. classify with the user's conversation
	var cls *classifier.Result
	if msg != "" {
		res, err := st.chain.Classify(ctx, msg)
		if err != nil {
			s.logger.Warn("classify failed", zap.String("user_id", userID), zap.Error(err))
		} else {
			cls = res
		}
	}

	// 3. fill what the message leaves open
	preq := planner.Request{
		Message:        msg,
		Program:        req.Program,
		Year:           req.Year,
		Term:           req.Term,
		Courses:        req.Courses,
		Preferences:    req.TimePreferences,
		Regenerate:     regenerate,
		Classification: cls,
	}
	if regenerate {
		st.mu.Lock()
		if preq.Program == "" && (cls == nil || cls.Program == "") {
			preq.Program = st.lastProgram
		}
		if preq.Year == 0 && (cls == nil || cls.Year == 0) {
			preq.Year = st.lastYear
		}
		if preq.Term == "" && (cls == nil || cls.Term == "") && len(st.lastTerms) == 1 {
			preq.Term = st.lastTerms[0]
		}
		st.mu.Unlock()
	}
	if preq.Year == 0 && (cls == nil || cls.Year == 0) {
		if _, ok := matcher.InferYear(msg); !ok {
			preq.Year = s.inferYear(ctx, userID)
		}
	}

	// 4. generate
	res, err := s.generator.Generate(ctx, st.session, preq)
	resp := &dto.GenerateScheduleResponse{Result: res, ChangeType: string(change)}
	if err != nil {
		var ile *curriculum.IndexLoadError
		var cle *curriculum.CurriculumLoadError
		if errors.As(err, &ile) || errors.As(err, &cle) {
			return resp, ErrCurriculumUnavailable
		}
		s.logger.Info("schedule not generated", zap.String("user_id", userID), zap.Error(err))
		return resp, nil
	}

	st.mu.Lock()
	if res.ProgramName != "" {
		st.lastProgram = res.ProgramName
	}
	st.lastYear = res.Year
	st.lastTerms = append([]string(nil), res.Terms...)
	st.mu.Unlock()

	// 5. persist
	if res.Success && req.ShouldSave() {
		saved, err := s.save(ctx, userID, res)
		if err != nil {
			s.logger.Error("save generated schedule failed", zap.String("user_id", userID), zap.Error(err))
			return resp, err
		}
		resp.SavedEvents = saved
	}
	return resp, nil
}

func (s *scheduleService) Reset(_ context.Context, userID string) *dto.ResetResponse {
	s.mu.Lock()
	v, ok := s.sessions.Get(userID)
	s.sessions.Delete(userID)
	s.mu.Unlock()

	resp := &dto.ResetResponse{Message: "Conversation history and learned patterns cleared"}
	if ok {
		st := v.(*userState)
		resp.HistoryCleared = len(st.chain.History())
		resp.SessionCleared = st.session.Iteration() > 0
		st.chain.Reset()
		st.session.Reset()
	}
	return resp
}

// state returns the user's state, extending its expiry.
func (s *scheduleService) state(userID string) *userState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.sessions.Get(userID); ok {
		st := v.(*userState)
		s.sessions.SetDefault(userID, st)
		return st
	}
	st := &userState{
		session: planner.NewGenerationSession(),
		chain:   classifier.NewChain(s.primary, s.heuristic, s.logger),
	}
	s.sessions.SetDefault(userID, st)
	return st
}

// save replaces the user's events in the generated terms with the new ones.
func (s *scheduleService) save(ctx context.Context, userID string, res *planner.Result) (int, error) {
	now := s.now()
	ranges := make([]repository.DateRange, 0, len(res.Terms))
	for _, term := range res.Terms {
		start, end := planner.TermDates(term, planner.AcademicYear(term, now))
		ranges = append(ranges, repository.DateRange{From: start.Format(dateLayout), To: end.Format(dateLayout)})
	}

	events := make([]model.UserCalendar, 0, len(res.Events))
	for _, ev := range res.Events {
		e := fromScheduleEvent(userID, ev)
		if err := normalizeEvent(e); err != nil {
			s.logger.Warn("skip generated event", zap.String("title", ev.Title), zap.Error(err))
			continue
		}
		events = append(events, *e)
	}

	deleted, err := s.repo.Calendar.ReplaceRanges(ctx, userID, ranges, events)
	if err != nil {
		return 0, err
	}
	s.logger.Info("generated schedule saved",
		zap.String("user_id", userID),
		zap.Int64("replaced", deleted),
		zap.Int("saved", len(events)),
	)
	return len(events), nil
}

var courseLevel = regexp.MustCompile(`[A-Z]{3,4}\s?(\d)\d{3}`)

// inferYear guesses the study year from the course levels on the user's
// calendar. It returns 0 when the calendar has no course events.
func (s *scheduleService) inferYear(ctx context.Context, userID string) int {
	events, err := s.repo.Calendar.List(ctx, userID)
	if err != nil {
		return 0
	}
	for _, e := range events {
		if m := courseLevel.FindStringSubmatch(e.Title); m != nil {
			if y, _ := strconv.Atoi(m[1]); y >= 1 && y <= 5 {
				return y
			}
		}
	}
	return 0
}

func fromScheduleEvent(userID string, ev planner.ScheduleEvent) *model.UserCalendar {
	return &model.UserCalendar{
		UserID:            userID,
		Title:             ev.Title,
		StartTime:         ev.StartTime,
		EndTime:           ev.EndTime,
		DayOfWeek:         ev.DayOfWeek,
		StartDate:         ev.StartDate,
		EndDate:           ev.EndDate,
		Description:       ev.Description,
		Professor:         ev.Professor,
		Location:          ev.Location,
		RecurrencePattern: ev.RecurrencePattern,
		ReferenceDate:     ev.StartDate,
		Theme:             ev.Theme,
	}
}
