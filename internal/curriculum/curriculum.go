// Package curriculum loads the program index and per-program course sequences.
package curriculum

import (
	"errors"
	"fmt"
	"strings"
)

// Program is one entry of curriculums/index.json.
type Program struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Code       string `json:"code,omitempty"`
	Faculty    string `json:"faculty,omitempty"`
	Degree     string `json:"degree,omitempty"`
	File       string `json:"file"`
	HasContent bool   `json:"hasContent"`
}

// CurriculumSequence is the normalized course sequence of one program.
type CurriculumSequence struct {
	ProgramID   string         `json:"programId,omitempty"`
	ProgramName string         `json:"programName,omitempty"`
	Degree      string         `json:"degree,omitempty"`
	Faculty     string         `json:"faculty,omitempty"`
	Years       []YearSequence `json:"years"`
	Notes       []string       `json:"notes,omitempty"`
}

type YearSequence struct {
	Year  int            `json:"year"`
	Terms []TermSequence `json:"terms"`
}

type TermSequence struct {
	Term    string               `json:"term"`
	Courses []CourseSequenceItem `json:"courses"`
}

type CourseSequenceItem struct {
	Code        string `json:"code"`
	Title       string `json:"title,omitempty"`
	IsElective  bool   `json:"isElective"`
	Description string `json:"description,omitempty"`
}

// Term names in calendar order.
const (
	TermFall   = "Fall"
	TermWinter = "Winter"
	TermSummer = "Summer"
)

var termOrder = []string{TermFall, TermWinter, TermSummer}

// Terms returns the canonical term names in calendar order.
func Terms() []string {
	return append([]string(nil), termOrder...)
}

// CanonicalTerm maps season labels used by the curriculum files and users
// ("fall", "Autumn", "Spring/Summer") onto Fall, Winter or Summer.
func CanonicalTerm(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fall", "autumn":
		return TermFall, true
	case "winter":
		return TermWinter, true
	case "summer", "spring", "spring/summer", "spring-summer", "spring summer":
		return TermSummer, true
	}
	return "", false
}

// Year returns the sequence of one study year.
func (c *CurriculumSequence) Year(year int) (*YearSequence, bool) {
	for i := range c.Years {
		if c.Years[i].Year == year {
			return &c.Years[i], true
		}
	}
	return nil, false
}

// Term returns the courses of one term within the year.
func (y *YearSequence) Term(term string) (*TermSequence, bool) {
	name, ok := CanonicalTerm(term)
	if !ok {
		return nil, false
	}
	for i := range y.Terms {
		if y.Terms[i].Term == name {
			return &y.Terms[i], true
		}
	}
	return nil, false
}

// ── errors ──

var (
	ErrYearNotFound = errors.New("year not found in curriculum")
	ErrTermNotFound = errors.New("term not found in curriculum")
)

// IndexLoadError the program index is unreachable or malformed
type IndexLoadError struct {
	Path string
	Err  error
}

func (e *IndexLoadError) Error() string {
	return fmt.Sprintf("load program index %s: %v", e.Path, e.Err)
}

func (e *IndexLoadError) Unwrap() error { return e.Err }

// CurriculumLoadError a curriculum document is unreachable or malformed
type CurriculumLoadError struct {
	File string
	Err  error
}

func (e *CurriculumLoadError) Error() string {
	return fmt.Sprintf("load curriculum %s: %v", e.File, e.Err)
}

func (e *CurriculumLoadError) Unwrap() error { return e.Err }
