package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/oumizumi/Kairo-sub002/internal/classifier"
	"github.com/oumizumi/Kairo-sub002/internal/curriculum"
	"github.com/oumizumi/Kairo-sub002/internal/offering"
)

var testPrograms = []curriculum.Program{
	{ID: "csi", Name: "Computer Science", Code: "CSI", Faculty: "Engineering", Degree: "BSc", File: "csi.json"},
	{ID: "ceg", Name: "Computer Engineering", Code: "CEG", Faculty: "Engineering", Degree: "BASc", File: "ceg.json"},
	{ID: "seg", Name: "Software Engineering Co-op", Code: "SEG", Faculty: "Engineering", Degree: "BASc", File: "seg.json"},
	{ID: "mcg", Name: "Mechanical Engineering", Code: "MCG", Faculty: "Engineering", Degree: "BASc", File: "mcg.json"},
}

// ── curriculum ──

type fakeCurriculum struct {
	programs []curriculum.Program
	err      error
	// year → term → courses
	years map[int]map[string][]curriculum.CourseSequenceItem
}

func (f *fakeCurriculum) LoadProgramIndex(ctx context.Context) ([]curriculum.Program, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.programs, nil
}

func (f *fakeCurriculum) RequiredCourses(ctx context.Context, p curriculum.Program, year int, term string) ([]curriculum.CourseSequenceItem, error) {
	terms, ok := f.years[year]
	if !ok {
		return nil, fmt.Errorf("%s year %d: %w", p.Name, year, curriculum.ErrYearNotFound)
	}
	courses, ok := terms[term]
	if !ok {
		return nil, fmt.Errorf("%s year %d %s: %w", p.Name, year, term, curriculum.ErrTermNotFound)
	}
	return courses, nil
}

func (f *fakeCurriculum) TermsForYear(ctx context.Context, p curriculum.Program, year int) ([]string, error) {
	terms, ok := f.years[year]
	if !ok {
		return nil, fmt.Errorf("%s year %d: %w", p.Name, year, curriculum.ErrYearNotFound)
	}
	var out []string
	for _, t := range curriculum.Terms() {
		if _, ok := terms[t]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func items(codes ...string) []curriculum.CourseSequenceItem {
	out := make([]curriculum.CourseSequenceItem, len(codes))
	for i, c := range codes {
		out[i] = curriculum.CourseSequenceItem{Code: c}
	}
	return out
}

// ── offerings ──

type fakeOfferings struct {
	terms map[string]*offering.TermOffering
	err   error
	calls int
}

func (f *fakeOfferings) Term(ctx context.Context, term string) (*offering.TermOffering, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.terms[term]
	if !ok {
		return nil, fmt.Errorf("%s: %w", term, offering.ErrTermNotFound)
	}
	return t, nil
}

func meet(day time.Weekday, start, end string) offering.Meeting {
	s, _ := offering.ParseClock(start)
	e, _ := offering.ParseClock(end)
	return offering.Meeting{Day: day, DayName: day.String(), Start: s, End: e}
}

func lecture(code, id string, ms ...offering.Meeting) *offering.Section {
	return &offering.Section{CourseCode: code, Section: id, Kind: offering.KindLecture, Role: offering.RoleLecture, Meetings: ms, Open: true}
}

func lab(code, id string, ms ...offering.Meeting) offering.Section {
	return offering.Section{CourseCode: code, Section: id, Kind: offering.KindLab, Role: offering.RoleLab, Meetings: ms, Open: true}
}

func tutorial(code, id string, ms ...offering.Meeting) offering.Section {
	return offering.Section{CourseCode: code, Section: id, Kind: offering.KindTutorial, Role: offering.RoleTutorial, Meetings: ms, Open: true}
}

func course(code, title string, groups ...*offering.SectionGroup) *offering.CourseGrouped {
	c := &offering.CourseGrouped{
		CourseCode:    code,
		CourseTitle:   title,
		SubjectCode:   code[:3],
		Term:          curriculum.TermFall,
		SectionGroups: map[string]*offering.SectionGroup{},
	}
	for _, g := range groups {
		c.SectionGroups[g.GroupID] = g
	}
	return c
}

func term(key string, year int, courses ...*offering.CourseGrouped) *offering.TermOffering {
	t := &offering.TermOffering{Key: key, Term: curriculum.TermFall, Year: year, Courses: map[string]*offering.CourseGrouped{}}
	for _, c := range courses {
		t.Courses[c.CourseCode] = c
	}
	return t
}

// fallOffering has three courses whose first-choice groups collide.
func fallOffering() *offering.TermOffering {
	return term("Fall 2025", 2025,
		course("CSI2110", "Data Structures and Algorithms",
			&offering.SectionGroup{GroupID: "A", Lecture: lecture("CSI2110", "A00", meet(time.Monday, "10:00", "11:30"), meet(time.Wednesday, "08:30", "10:00"))},
			&offering.SectionGroup{GroupID: "B", Lecture: lecture("CSI2110", "B00", meet(time.Tuesday, "10:00", "11:30"), meet(time.Thursday, "08:30", "10:00"))},
		),
		course("SEG2105", "Introduction to Software Engineering",
			&offering.SectionGroup{GroupID: "A", Lecture: lecture("SEG2105", "A00", meet(time.Monday, "10:00", "11:30"))},
			&offering.SectionGroup{GroupID: "B", Lecture: lecture("SEG2105", "B00", meet(time.Wednesday, "13:00", "14:30"))},
		),
		course("MAT2377", "Probability and Statistics for Engineers",
			&offering.SectionGroup{
				GroupID: "A",
				Lecture: lecture("MAT2377", "A00", meet(time.Thursday, "13:00", "14:30")),
				Labs: []offering.Section{
					lab("MAT2377", "A01", meet(time.Monday, "10:00", "11:30")),
					lab("MAT2377", "A02", meet(time.Friday, "14:00", "15:30")),
				},
				Tutorials: []offering.Section{
					tutorial("MAT2377", "A03", meet(time.Wednesday, "13:00", "14:00")),
					tutorial("MAT2377", "A04", meet(time.Tuesday, "16:00", "17:00")),
				},
			},
		),
	)
}

// ── classifier / backend ──

type stubClassifier struct {
	result *classifier.Result
	err    error
	calls  int
}

func (s *stubClassifier) Classify(ctx context.Context, text string) (*classifier.Result, error) {
	s.calls++
	return s.result, s.err
}

func generateIntent() *stubClassifier {
	return &stubClassifier{result: &classifier.Result{Intent: classifier.IntentGenerateSchedule, Confidence: 0.9}}
}

type stubBackend struct {
	result *Result
	err    error
	got    BackendRequest
}

func (s *stubBackend) GenerateSchedule(ctx context.Context, req BackendRequest) (*Result, error) {
	s.got = req
	return s.result, s.err
}
