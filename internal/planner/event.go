package planner

// Recurrence patterns of calendar events.
const (
	RecurrenceWeekly   = "weekly"
	RecurrenceBiweekly = "biweekly"
	RecurrenceNone     = "none"
)

// ScheduleEvent is one weekly class meeting produced by a generation run.
// It gets an identity only once the calendar stores it.
type ScheduleEvent struct {
	Title             string `json:"title"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	DayOfWeek         string `json:"day_of_week"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date"`
	Description       string `json:"description"`
	Theme             string `json:"theme"`
	CourseCode        string `json:"course_code,omitempty"`
	Section           string `json:"section,omitempty"`
	Component         string `json:"component,omitempty"`
	Location          string `json:"location,omitempty"`
	Professor         string `json:"professor,omitempty"`
	RecurrencePattern string `json:"recurrence_pattern"`
}

// Result is the outcome of a generation request. Partial success is normal:
// matched and unmatched courses and errors are reported together.
type Result struct {
	Success          bool                `json:"success"`
	Message          string              `json:"message"`
	Events           []ScheduleEvent     `json:"events"`
	MatchedCourses   []string            `json:"matched_courses"`
	UnmatchedCourses []string            `json:"unmatched_courses"`
	Errors           []string            `json:"errors"`
	Suggestions      map[string][]string `json:"suggestions,omitempty"`
	Electives        []string            `json:"electives,omitempty"`
	ProgramDetected  bool                `json:"program_detected"`
	ProgramName      string              `json:"program_name,omitempty"`
	Year             int                 `json:"year,omitempty"`
	Terms            []string            `json:"terms,omitempty"`
	Iteration        int                 `json:"iteration,omitempty"`
}

func newResult() *Result {
	return &Result{
		Events:           []ScheduleEvent{},
		MatchedCourses:   []string{},
		UnmatchedCourses: []string{},
		Errors:           []string{},
	}
}

// TermResult is the outcome for one term.
type TermResult struct {
	Term             string
	Year             int
	Events           []ScheduleEvent
	MatchedCourses   []string
	UnmatchedCourses []string
	Errors           []string
	Suggestions      map[string][]string
	Electives        []string
	// Failures holds the typed per-course errors behind Errors.
	Failures []error
}
