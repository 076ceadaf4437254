package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oumizumi/Kairo-sub002/internal/classifier"
	"github.com/oumizumi/Kairo-sub002/internal/curriculum"
	"github.com/oumizumi/Kairo-sub002/internal/matcher"
	"github.com/oumizumi/Kairo-sub002/internal/offering"
)

// ElectiveTool is where students pick electives themselves.
const ElectiveTool = "Kairoll"

const maxSuggestions = 3

// Curriculum is the program data the generator reads.
type Curriculum interface {
	LoadProgramIndex(ctx context.Context) ([]curriculum.Program, error)
	RequiredCourses(ctx context.Context, p curriculum.Program, year int, term string) ([]curriculum.CourseSequenceItem, error)
	TermsForYear(ctx context.Context, p curriculum.Program, year int) ([]string, error)
}

// Offerings returns the sections offered in a term.
type Offerings interface {
	Term(ctx context.Context, term string) (*offering.TermOffering, error)
}

// BackendRequest is what a remote generator receives.
type BackendRequest struct {
	Message     string         `json:"message"`
	Program     string         `json:"program"`
	Year        int            `json:"year"`
	Term        string         `json:"term"`
	Preferences TimePreference `json:"time_preferences"`
}

// Backend is a remote schedule generator tried before local generation.
type Backend interface {
	GenerateSchedule(ctx context.Context, req BackendRequest) (*Result, error)
}

// Request asks for a schedule. A request naming a program or explicit courses
// without a message skips classification.
type Request struct {
	Message     string         `json:"message"`
	Program     string         `json:"program,omitempty"`
	Year        int            `json:"year,omitempty"`
	Term        string         `json:"term,omitempty"`
	Courses     []string       `json:"courses,omitempty"`
	Preferences TimePreference `json:"time_preferences"`
	// Regenerate reworks the previous schedule of the session.
	Regenerate bool `json:"regenerate,omitempty"`
	// Classification, when set, is used instead of classifying Message again.
	Classification *classifier.Result `json:"-"`
}

func (r *Request) structured() bool {
	return strings.TrimSpace(r.Message) == "" && (r.Program != "" || len(r.Courses) > 0)
}

// TermRequest asks for one term. Courses defaults to the program's required
// courses for Year and Term.
type TermRequest struct {
	Program     *curriculum.Program
	Year        int
	Term        string
	Courses     []curriculum.CourseSequenceItem
	Preferences TimePreference
}

// Generator builds conflict-free schedules from curricula and term offerings.
type Generator struct {
	classifier classifier.Classifier
	curriculum Curriculum
	offerings  Offerings
	backend    Backend
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithBackend makes Generate try b before generating locally.
func WithBackend(b Backend) Option {
	return func(g *Generator) { g.backend = b }
}

// WithClock overrides the clock used to pick calendar years.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a Generator. cls may be nil when every request is structured.
func NewGenerator(cls classifier.Classifier, cur Curriculum, off Offerings, logger *zap.Logger, opts ...Option) *Generator {
	g := &Generator{
		classifier: cls,
		curriculum: cur,
		offerings:  off,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate runs one generation. The returned Result is never nil: on failure
// it carries a user-facing message alongside the error.
func (g *Generator) Generate(ctx context.Context, session *GenerationSession, req Request) (*Result, error) {
	session.mu.Lock()
	defer session.mu.Unlock()

	res := newResult()
	res.Iteration = session.begin()
	msg := strings.TrimSpace(req.Message)

	// ── intent ──
	cls := req.Classification
	if !req.structured() && !req.Regenerate {
		if cls == nil {
			cls = g.classify(ctx, msg)
		}
		if !cls.IsGenerate() {
			res.Message = "I can build a schedule for you. Tell me your program, year and term, for example \"software engineering year 2 fall\"."
			return res, &InvalidIntentError{Intent: cls.Intent}
		}
	}
	if cls == nil {
		cls = &classifier.Result{}
	}

	// ── program ──
	var program *curriculum.Program
	if req.Program != "" || len(req.Courses) == 0 {
		programs, err := g.curriculum.LoadProgramIndex(ctx)
		if err != nil {
			g.logger.Error("load program index", zap.Error(err))
			res.Message = "Could not load the program database. Please try again later."
			return res, err
		}
		program = resolveProgram(programs, req.Program, cls.Program, msg)
		if program == nil {
			res.Message = "I couldn't tell which program you're in. Please mention it, for example \"Computer Science\" or \"Software Engineering\"."
			return res, &ProgramUnresolvedError{Query: firstNonEmpty(req.Program, cls.Program, msg)}
		}
		res.ProgramDetected = true
		res.ProgramName = program.Name
	}

	// ── year, terms, preferences ──
	year := req.Year
	if year <= 0 {
		year = cls.Year
	}
	if year <= 0 {
		if y, ok := matcher.InferYear(msg); ok {
			year = y
		} else {
			year = 1
		}
	}
	res.Year = year

	prefs := req.Preferences.Merge(ParsePreferences(msg))
	if err := prefs.Validate(); err != nil {
		res.Message = "Those time preferences don't look right: " + err.Error()
		return res, err
	}

	hinted, hasHint := termHint(req.Term, cls.Term, msg)

	// ── backend ──
	// Runs before the study year's terms are read locally; without a term
	// hint the backend picks the terms.
	if g.backend != nil && program != nil {
		if remote := g.tryBackend(ctx, session, BackendRequest{
			Message:     msg,
			Program:     program.Name,
			Year:        year,
			Term:        hinted,
			Preferences: prefs,
		}); remote != nil {
			remote.Iteration = res.Iteration
			remote.ProgramDetected = true
			remote.ProgramName = program.Name
			remote.Year = year
			if hasHint {
				remote.Terms = []string{hinted}
			}
			return remote, nil
		}
	}

	terms, err := g.resolveTerms(ctx, program, year, len(req.Courses) > 0, hinted, hasHint)
	if err != nil {
		res.Message = loadFailureMessage(err, program, year)
		return res, err
	}
	res.Terms = terms

	// ── local ──
	var explicit []curriculum.CourseSequenceItem
	for _, code := range req.Courses {
		explicit = append(explicit, curriculum.CourseSequenceItem{Code: matcher.NormalizeCourseCode(code)})
	}
	for _, term := range terms {
		tr, err := g.generateTerm(ctx, session, TermRequest{
			Program:     program,
			Year:        year,
			Term:        term,
			Courses:     explicit,
			Preferences: prefs,
		})
		if err != nil {
			var cle *curriculum.CurriculumLoadError
			if errors.As(err, &cle) {
				res.Message = loadFailureMessage(err, program, year)
				return res, err
			}
			g.logger.Warn("term generation failed", zap.String("term", term), zap.Error(err))
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", term, err))
			continue
		}
		res.merge(tr)
	}

	res.Success = len(res.Events) > 0
	res.Message = buildMessage(res, program, year, terms)
	g.logger.Info("schedule generated",
		zap.String("program", res.ProgramName),
		zap.Int("year", year),
		zap.Strings("terms", terms),
		zap.Int("iteration", res.Iteration),
		zap.Int("matched", len(res.MatchedCourses)),
		zap.Int("unmatched", len(res.UnmatchedCourses)),
	)
	return res, nil
}

// GenerateTerm places the courses of one term using the session's current run.
func (g *Generator) GenerateTerm(ctx context.Context, session *GenerationSession, req TermRequest) (*TermResult, error) {
	session.mu.Lock()
	defer session.mu.Unlock()
	return g.generateTerm(ctx, session, req)
}

func (g *Generator) generateTerm(ctx context.Context, session *GenerationSession, req TermRequest) (*TermResult, error) {
	items := req.Courses
	if items == nil {
		if req.Program == nil {
			return nil, errors.New("no program or courses to schedule")
		}
		var err error
		items, err = g.curriculum.RequiredCourses(ctx, *req.Program, req.Year, req.Term)
		if err != nil {
			return nil, err
		}
	}

	tr := &TermResult{
		Term:             req.Term,
		Events:           []ScheduleEvent{},
		MatchedCourses:   []string{},
		UnmatchedCourses: []string{},
		Errors:           []string{},
		Suggestions:      map[string][]string{},
	}

	var required []curriculum.CourseSequenceItem
	for _, it := range items {
		if it.IsElective {
			tr.Electives = append(tr.Electives, firstNonEmpty(it.Title, it.Code))
			continue
		}
		required = append(required, it)
	}
	if len(tr.Electives) > 0 {
		tr.Errors = append(tr.Errors, fmt.Sprintf("%s: %d elective slot(s), select an elective from %s", req.Term, len(tr.Electives), ElectiveTool))
	}

	off, err := g.offerings.Term(ctx, req.Term)
	if err != nil {
		if !errors.Is(err, offering.ErrTermNotFound) {
			return nil, fmt.Errorf("load %s offerings: %w", req.Term, err)
		}
		for _, it := range required {
			tr.UnmatchedCourses = append(tr.UnmatchedCourses, it.Code)
		}
		tr.Errors = append(tr.Errors, fmt.Sprintf("%s: no section data available for this term", req.Term))
		return tr, nil
	}
	tr.Year = off.Year
	if tr.Year == 0 {
		tr.Year = AcademicYear(req.Term, g.now())
	}

	tc := newTermContext(req.Term, tr.Year, req.Preferences)
	var placed []slot
	available := off.Codes()

	for _, it := range required {
		code := matcher.NormalizeCourseCode(it.Code)
		course, ok := off.Course(code)
		if !ok {
			tr.UnmatchedCourses = append(tr.UnmatchedCourses, code)
			tr.Errors = append(tr.Errors, fmt.Sprintf("%s: not offered in %s", code, off.Key))
			if similar := matcher.SimilarCourseCodes(code, available, maxSuggestions); len(similar) > 0 {
				tr.Suggestions[code] = similar
			}
			continue
		}

		sections, combos := session.used(code)
		chosen, err := tc.selectGroup(course, placed, sections, combos)
		if err != nil {
			tr.UnmatchedCourses = append(tr.UnmatchedCourses, code)
			tr.Errors = append(tr.Errors, err.Error())
			tr.Failures = append(tr.Failures, err)
			g.logger.Debug("course not placed", zap.String("course", code), zap.Error(err))
			continue
		}

		title := firstNonEmpty(course.CourseTitle, it.Title)
		tr.Events = append(tr.Events, tc.events(code, title, session.themeFor(code), chosen)...)
		tr.MatchedCourses = append(tr.MatchedCourses, code)
		placed = append(placed, chosen.slots...)
		session.record(code, chosen)
	}
	return tr, nil
}

func (g *Generator) classify(ctx context.Context, msg string) *classifier.Result {
	if g.classifier != nil {
		r, err := g.classifier.Classify(ctx, msg)
		if err == nil && r != nil {
			return r
		}
		g.logger.Warn("classification failed", zap.Error(err))
	}
	if classifier.IsGenerationRequest(msg) {
		return &classifier.Result{Intent: classifier.IntentGenerateSchedule, Confidence: 0.3, Source: classifier.SourceHeuristic}
	}
	return &classifier.Result{Intent: classifier.IntentGeneral, Confidence: 0.3, Source: classifier.SourceHeuristic}
}

// termHint returns the first term named by hints.
func termHint(hints ...string) (string, bool) {
	for _, s := range hints {
		if t, ok := curriculum.CanonicalTerm(s); ok {
			return t, true
		}
		if t, ok := matcher.InferTerm(s); ok {
			return t, true
		}
	}
	return "", false
}

// resolveTerms returns the hinted term, else every term of the study year.
// Explicit course lists without a term use the current term.
func (g *Generator) resolveTerms(ctx context.Context, p *curriculum.Program, year int, explicit bool, hinted string, hasHint bool) ([]string, error) {
	if hasHint {
		return []string{hinted}, nil
	}
	if explicit || p == nil {
		return []string{CurrentTerm(g.now())}, nil
	}
	return g.curriculum.TermsForYear(ctx, *p, year)
}

// tryBackend returns the remote result when it produced events, with themes
// assigned for this run; nil means generate locally.
func (g *Generator) tryBackend(ctx context.Context, session *GenerationSession, req BackendRequest) *Result {
	remote, err := g.backend.GenerateSchedule(ctx, req)
	if err != nil {
		g.logger.Warn("remote generation failed, generating locally", zap.Error(err))
		return nil
	}
	if remote == nil || !remote.Success || len(remote.Events) == 0 {
		g.logger.Info("remote generation returned no events, generating locally")
		return nil
	}
	for i := range remote.Events {
		remote.Events[i].Theme = session.themeFor(CourseKey(remote.Events[i].Title))
		if remote.Events[i].RecurrencePattern == "" {
			remote.Events[i].RecurrencePattern = RecurrenceWeekly
		}
	}
	if remote.MatchedCourses == nil {
		remote.MatchedCourses = []string{}
	}
	if remote.UnmatchedCourses == nil {
		remote.UnmatchedCourses = []string{}
	}
	if remote.Errors == nil {
		remote.Errors = []string{}
	}
	return remote
}

func resolveProgram(programs []curriculum.Program, queries ...string) *curriculum.Program {
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		for i := range programs {
			if programs[i].ID == q {
				return &programs[i]
			}
		}
		if m, ok := matcher.BestProgram(q, programs); ok {
			p := m.Program
			return &p
		}
	}
	return nil
}

func (r *Result) merge(tr *TermResult) {
	r.Events = append(r.Events, tr.Events...)
	r.MatchedCourses = append(r.MatchedCourses, tr.MatchedCourses...)
	r.UnmatchedCourses = append(r.UnmatchedCourses, tr.UnmatchedCourses...)
	r.Errors = append(r.Errors, tr.Errors...)
	r.Electives = append(r.Electives, tr.Electives...)
	for code, s := range tr.Suggestions {
		if r.Suggestions == nil {
			r.Suggestions = map[string][]string{}
		}
		r.Suggestions[code] = s
	}
}

func buildMessage(res *Result, p *curriculum.Program, year int, terms []string) string {
	var b strings.Builder
	if !res.Success {
		b.WriteString("No schedule could be generated")
	} else {
		b.WriteString("Schedule Generated")
	}
	if p != nil {
		fmt.Fprintf(&b, "\nProgram: %s - Year %d %s", p.Name, year, strings.Join(terms, ", "))
	} else {
		fmt.Fprintf(&b, "\nTerm: %s", strings.Join(terms, ", "))
	}

	if len(res.MatchedCourses) > 0 {
		titles := courseTitles(res.Events)
		b.WriteString("\n\nAdded Courses:")
		for _, code := range res.MatchedCourses {
			if t := titles[code]; t != "" {
				fmt.Fprintf(&b, "\n• %s - %s", code, t)
			} else {
				fmt.Fprintf(&b, "\n• %s", code)
			}
		}
	}
	if len(res.UnmatchedCourses) > 0 {
		b.WriteString("\n\nCould not schedule:")
		for _, code := range res.UnmatchedCourses {
			if s := res.Suggestions[code]; len(s) > 0 {
				fmt.Fprintf(&b, "\n• %s (similar: %s)", code, strings.Join(s, ", "))
			} else {
				fmt.Fprintf(&b, "\n• %s", code)
			}
		}
	}
	if len(res.Electives) > 0 {
		fmt.Fprintf(&b, "\n\nElectives: %s\nPlease use %s to browse and add these elective courses manually.",
			strings.Join(res.Electives, ", "), ElectiveTool)
	}
	return b.String()
}

// courseTitles recovers "CODE - Title (LEC)" titles per course code.
func courseTitles(events []ScheduleEvent) map[string]string {
	out := make(map[string]string)
	for _, e := range events {
		if _, ok := out[e.CourseCode]; ok || e.CourseCode == "" {
			continue
		}
		t := strings.TrimPrefix(e.Title, e.CourseCode+" - ")
		if i := strings.LastIndex(t, " ("); i > 0 {
			t = t[:i]
		}
		if t != e.CourseCode {
			out[e.CourseCode] = t
		}
	}
	return out
}

func loadFailureMessage(err error, p *curriculum.Program, year int) string {
	var ile *curriculum.IndexLoadError
	var cle *curriculum.CurriculumLoadError
	switch {
	case errors.As(err, &ile), errors.As(err, &cle):
		return "Could not load the program database. Please try again later."
	case errors.Is(err, curriculum.ErrYearNotFound) && p != nil:
		return fmt.Sprintf("%s has no course sequence for year %d.", p.Name, year)
	}
	return "Could not prepare the schedule: " + err.Error()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
