// Package classifier extracts {intent, course, program, year, term} from chat messages.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/oumizumi/Kairo-sub002/internal/curriculum"
)

// Intent of a chat message.
type Intent string

const (
	IntentGenerateSchedule Intent = "generate_schedule"
	IntentWhenToTake       Intent = "when_to_take"
	IntentCourseInfo       Intent = "course_info"
	IntentRemoveCourse     Intent = "remove_course"
	IntentGeneral          Intent = "general"
)

// Result sources
const (
	SourceRemote    = "remote"
	SourceLLM       = "llm"
	SourceLearned   = "learned"
	SourceHeuristic = "heuristic"
)

// Result is one classification.
type Result struct {
	Intent     Intent  `json:"intent"`
	Course     string  `json:"course,omitempty"`
	Program    string  `json:"program,omitempty"`
	Year       int     `json:"year,omitempty"`
	Term       string  `json:"term,omitempty"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source,omitempty"`
}

// IsGenerate reports whether the message asks for a schedule.
func (r *Result) IsGenerate() bool {
	return r != nil && r.Intent == IntentGenerateSchedule
}

// Classifier classifies one message.
type Classifier interface {
	Classify(ctx context.Context, text string) (*Result, error)
}

// historyClassifier is implemented by classifiers that use recent messages as context.
type historyClassifier interface {
	ClassifyWithHistory(ctx context.Context, text string, history []string) (*Result, error)
}

// ProgramSource lists the known programs.
type ProgramSource interface {
	LoadProgramIndex(ctx context.Context) ([]curriculum.Program, error)
}

var ErrUnparseable = errors.New("classification is not valid JSON")

// NormalizeIntent maps the labels models tend to produce onto the known intents.
func NormalizeIntent(s string) Intent {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "-", "_"))) {
	case "generate_schedule", "build_schedule", "create_schedule", "make_schedule", "schedule", "generate", "schedule_generation":
		return IntentGenerateSchedule
	case "when_to_take", "when_take", "course_timing":
		return IntentWhenToTake
	case "course_info", "course_information", "course_details", "info":
		return IntentCourseInfo
	case "remove_course", "delete_course", "drop_course", "remove":
		return IntentRemoveCourse
	}
	return IntentGeneral
}

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ParseResult decodes a model answer that is JSON, fenced JSON or JSON
// embedded in prose.
func ParseResult(text string) (*Result, error) {
	body := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(body); m != nil {
		body = strings.TrimSpace(m[1])
	}
	if !strings.HasPrefix(body, "{") {
		start, end := strings.Index(body, "{"), strings.LastIndex(body, "}")
		if start < 0 || end <= start {
			return nil, ErrUnparseable
		}
		body = body[start : end+1]
	}

	var raw struct {
		Intent     string          `json:"intent"`
		Course     json.RawMessage `json:"course"`
		Program    string          `json:"program"`
		Year       json.RawMessage `json:"year"`
		Term       string          `json:"term"`
		Confidence *float64        `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	if raw.Intent == "" {
		return nil, fmt.Errorf("%w: missing intent", ErrUnparseable)
	}

	res := &Result{
		Intent:  NormalizeIntent(raw.Intent),
		Course:  courseField(raw.Course),
		Program: cleanNull(raw.Program),
		Year:    yearField(raw.Year),
	}
	if term, ok := curriculum.CanonicalTerm(raw.Term); ok {
		res.Term = term
	}
	res.Confidence = 0.8
	if raw.Confidence != nil {
		res.Confidence = clamp(*raw.Confidence)
	}
	return res, nil
}

// ParseClassification decodes the classification field of a classify
// response, which may be an object or a string holding JSON.
func ParseClassification(raw json.RawMessage) (*Result, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseResult(s)
	}
	return ParseResult(string(raw))
}

func courseField(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.ToUpper(strings.Join(strings.Fields(cleanNull(s)), ""))
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return strings.ToUpper(strings.Join(strings.Fields(list[0]), ""))
	}
	return ""
}

var digits = regexp.MustCompile(`\d+`)

func yearField(raw json.RawMessage) int {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if m := digits.FindString(s); m != "" {
			y, _ := strconv.Atoi(m)
			return y
		}
	}
	return 0
}

func cleanNull(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "null", "none", "n/a", "unknown":
		return ""
	}
	return s
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// BuildPrompt is the instruction sent with a message to the classify endpoint.
func BuildPrompt(message string, programs []string, history []string) string {
	var b strings.Builder
	b.WriteString("Classify the student's message for a university course-planning assistant.\n")
	b.WriteString("Return only JSON: {\"intent\": one of generate_schedule|when_to_take|course_info|remove_course|general, ")
	b.WriteString("\"course\": course code or null, \"program\": exact program name from the list or null, ")
	b.WriteString("\"year\": study year 1-5 or null, \"term\": Fall|Winter|Summer or null, \"confidence\": 0.0-1.0}.\n")
	if len(programs) > 0 {
		b.WriteString("\nAvailable programs:\n")
		for _, p := range programs {
			b.WriteString("- ")
			b.WriteString(p)
			b.WriteByte('\n')
		}
	}
	if len(history) > 0 {
		b.WriteString("\nRecent messages:\n")
		for _, h := range history {
			b.WriteString("> ")
			b.WriteString(h)
			b.WriteByte('\n')
		}
	}
	b.WriteString("\nMessage: ")
	b.WriteString(message)
	return b.String()
}

// SystemPrompt is the system instruction for model-backed classification.
const SystemPrompt = "You are an intent classifier for a course-planning assistant. Answer with a single JSON object and nothing else."

func programNames(ctx context.Context, src ProgramSource) []string {
	if src == nil {
		return nil
	}
	programs, err := src.LoadProgramIndex(ctx)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(programs))
	for _, p := range programs {
		names = append(names, p.Name)
	}
	return names
}
