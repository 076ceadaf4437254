package classifier

import (
	"context"
	"strings"

	"github.com/oumizumi/Kairo-sub002/internal/matcher"
)

// Heuristic classifies with keyword checks. It never fails and reports low confidence.
type Heuristic struct {
	programs ProgramSource
}

// NewHeuristic creates a Heuristic classifier. programs may be nil, in which
// case no program is extracted.
func NewHeuristic(programs ProgramSource) *Heuristic {
	return &Heuristic{programs: programs}
}

func (h *Heuristic) Classify(ctx context.Context, text string) (*Result, error) {
	lower := strings.ToLower(text)
	res := &Result{Source: SourceHeuristic}

	switch {
	case containsAny(lower, "remove", "delete", "drop"):
		res.Intent, res.Confidence = IntentRemoveCourse, 0.4
	case strings.Contains(lower, "when") && strings.Contains(lower, "take"):
		res.Intent, res.Confidence = IntentWhenToTake, 0.4
	case containsAny(lower, "schedule", "generate", "timetable", "build"):
		res.Intent, res.Confidence = IntentGenerateSchedule, 0.4
	case containsAny(lower, "what is", "about", "tell me"):
		res.Intent, res.Confidence = IntentCourseInfo, 0.35
	default:
		res.Intent, res.Confidence = IntentGeneral, 0.3
	}

	h.extract(ctx, text, res)
	return res, nil
}

// extract fills course, program, year and term from the text.
func (h *Heuristic) extract(ctx context.Context, text string, res *Result) {
	if codes := matcher.ExtractCourseCodes(text); len(codes) > 0 {
		res.Course = codes[0]
	}
	if y, ok := matcher.InferYear(text); ok {
		res.Year = y
	}
	if t, ok := matcher.InferTerm(text); ok {
		res.Term = t
	}
	if h.programs == nil {
		return
	}
	programs, err := h.programs.LoadProgramIndex(ctx)
	if err != nil {
		return
	}
	if name, ok := matcher.FindBestProgramMatch(text, programs); ok {
		res.Program = name
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
