// Package offering reads the scraped per-term section data and groups it into
// lecture/lab/tutorial section groups.
package offering

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind is the component type encoded in a section code.
type Kind string

const (
	KindLecture  Kind = "LEC"
	KindLab      Kind = "LAB"
	KindDGD      Kind = "DGD"
	KindTutorial Kind = "TUT"
	KindSeminar  Kind = "SEM"
	KindWorkshop Kind = "WRK"
	KindStudio   Kind = "STU"
)

// Role is the part a section plays inside its group.
type Role string

const (
	RoleLecture  Role = "LEC"
	RoleLab      Role = "LAB"
	RoleTutorial Role = "TUT"
)

const DateLayout = "2006-01-02"

// Meeting is one weekly slot of a section.
type Meeting struct {
	Day       time.Weekday `json:"-"`
	DayName   string       `json:"day"`
	Start     int          `json:"start"` // minutes after midnight
	End       int          `json:"end"`
	StartDate string       `json:"start_date,omitempty"`
	EndDate   string       `json:"end_date,omitempty"`
}

// TimeRange formats the slot as "HH:MM - HH:MM".
func (m Meeting) TimeRange() string {
	return FormatClock(m.Start) + " - " + FormatClock(m.End)
}

// Section is one scheduled component of a course.
type Section struct {
	CourseCode string    `json:"course_code"`
	Section    string    `json:"section"`
	Kind       Kind      `json:"kind"`
	Role       Role      `json:"role"`
	Meetings   []Meeting `json:"meetings"`
	Instructor string    `json:"instructor"`
	Location   string    `json:"location"`
	Status     string    `json:"status"`
	Open       bool      `json:"open"`
}

// Days lists the weekday names the section meets on, without repeats.
func (s *Section) Days() []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range s.Meetings {
		if !seen[m.DayName] {
			seen[m.DayName] = true
			out = append(out, m.DayName)
		}
	}
	return out
}

// EarliestStart is the first start time across meetings, or -1 without meetings.
func (s *Section) EarliestStart() int {
	earliest := -1
	for _, m := range s.Meetings {
		if earliest < 0 || m.Start < earliest {
			earliest = m.Start
		}
	}
	return earliest
}

// SectionGroup is the unit of enrollment: a lecture plus the labs and
// tutorials that share its group letter.
type SectionGroup struct {
	GroupID   string    `json:"groupId"`
	Lecture   *Section  `json:"lecture,omitempty"`
	Labs      []Section `json:"labs"`
	Tutorials []Section `json:"tutorials"`
}

// CourseGrouped is one course of a term with its section groups.
type CourseGrouped struct {
	CourseCode    string                   `json:"courseCode"`
	CourseTitle   string                   `json:"courseTitle"`
	SubjectCode   string                   `json:"subjectCode"`
	Term          string                   `json:"term"`
	SectionGroups map[string]*SectionGroup `json:"sectionGroups"`
}

// GroupIDs returns the group ids in sorted order.
func (c *CourseGrouped) GroupIDs() []string {
	ids := make([]string, 0, len(c.SectionGroups))
	for id := range c.SectionGroups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasLecture reports whether any group of the course carries a lecture.
func (c *CourseGrouped) HasLecture() bool {
	for _, g := range c.SectionGroups {
		if g.Lecture != nil {
			return true
		}
	}
	return false
}

// TermOffering holds every course offered in one term.
type TermOffering struct {
	Key     string                    `json:"key"`
	Term    string                    `json:"term"`
	Year    int                       `json:"year"`
	Courses map[string]*CourseGrouped `json:"courses"`
}

// Course looks a course up by code in any spacing or case.
func (t *TermOffering) Course(code string) (*CourseGrouped, bool) {
	c, ok := t.Courses[strings.ToUpper(strings.Join(strings.Fields(code), ""))]
	return c, ok
}

// Codes returns the offered course codes in sorted order.
func (t *TermOffering) Codes() []string {
	codes := make([]string, 0, len(t.Courses))
	for code := range t.Courses {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// FormatClock renders minutes after midnight as HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
