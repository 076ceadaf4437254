package service

import (
	"context"
	"fmt"
	"time"

	"github.com/oumizumi/Kairo-sub002/internal/curriculum"
	"github.com/oumizumi/Kairo-sub002/internal/datasource"
	"github.com/oumizumi/Kairo-sub002/internal/offering"
	"github.com/oumizumi/Kairo-sub002/pkg/llm"
)

var testPrograms = []curriculum.Program{
	{ID: "csi", Name: "Computer Science", Code: "CSI", Faculty: "Engineering", Degree: "BSc", File: "csi.json"},
	{ID: "seg", Name: "Software Engineering", Code: "SEG", Faculty: "Engineering", Degree: "BASc", File: "seg.json"},
}

// ── curriculum ──

type fakeCurriculum struct {
	programs []curriculum.Program
	err      error
	// year → term → courses
	years map[int]map[string][]curriculum.CourseSequenceItem
}

func newFakeCurriculum() *fakeCurriculum {
	return &fakeCurriculum{
		programs: testPrograms,
		years: map[int]map[string][]curriculum.CourseSequenceItem{
			2: {curriculum.TermFall: seqItems("CSI2110", "SEG2105")},
			3: {curriculum.TermFall: seqItems("CSI3105")},
		},
	}
}

func (f *fakeCurriculum) LoadProgramIndex(context.Context) ([]curriculum.Program, error) {
	if f.err != nil {
		return nil, &curriculum.IndexLoadError{Path: "curriculums/index.json", Err: f.err}
	}
	return f.programs, nil
}

func (f *fakeCurriculum) RequiredCourses(_ context.Context, p curriculum.Program, year int, term string) ([]curriculum.CourseSequenceItem, error) {
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

func (f *fakeCurriculum) TermsForYear(_ context.Context, p curriculum.Program, year int) ([]string, error) {
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

func (f *fakeCurriculum) ProgramByID(_ context.Context, id string) (*curriculum.Program, error) {
	for i := range f.programs {
		if f.programs[i].ID == id {
			p := f.programs[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("program %s: %w", id, datasource.ErrNotFound)
}

func (f *fakeCurriculum) LoadCurriculumData(_ context.Context, file string) (*curriculum.CurriculumSequence, error) {
	if f.err != nil {
		return nil, &curriculum.CurriculumLoadError{File: file, Err: f.err}
	}
	seq := &curriculum.CurriculumSequence{ProgramName: file}
	for _, y := range []int{2, 3} {
		ys := curriculum.YearSequence{Year: y}
		for term, courses := range f.years[y] {
			ys.Terms = append(ys.Terms, curriculum.TermSequence{Term: term, Courses: courses})
		}
		seq.Years = append(seq.Years, ys)
	}
	return seq, nil
}

func seqItems(codes ...string) []curriculum.CourseSequenceItem {
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
}

func newFakeOfferings() *fakeOfferings {
	return &fakeOfferings{terms: map[string]*offering.TermOffering{curriculum.TermFall: fallOffering()}}
}

func (f *fakeOfferings) Term(_ context.Context, term string) (*offering.TermOffering, error) {
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

func lectureGroup(code, id string, ms ...offering.Meeting) *offering.SectionGroup {
	return &offering.SectionGroup{
		GroupID: id,
		Lecture: &offering.Section{CourseCode: code, Section: id + "00", Kind: offering.KindLecture, Role: offering.RoleLecture, Meetings: ms, Open: true},
	}
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

func fallOffering() *offering.TermOffering {
	t := &offering.TermOffering{Key: "Fall 2025", Term: curriculum.TermFall, Year: 2025, Courses: map[string]*offering.CourseGrouped{}}
	for _, c := range []*offering.CourseGrouped{
		course("CSI2110", "Data Structures and Algorithms",
			lectureGroup("CSI2110", "A", meet(time.Monday, "10:00", "11:30"), meet(time.Wednesday, "08:30", "10:00")),
			lectureGroup("CSI2110", "B", meet(time.Tuesday, "13:00", "14:30"), meet(time.Thursday, "13:00", "14:30")),
		),
		course("SEG2105", "Introduction to Software Engineering",
			lectureGroup("SEG2105", "A", meet(time.Monday, "10:00", "11:30")),
			lectureGroup("SEG2105", "B", meet(time.Friday, "13:00", "14:30")),
		),
		course("CSI3105", "Design and Analysis of Algorithms I",
			lectureGroup("CSI3105", "A", meet(time.Tuesday, "11:30", "13:00")),
		),
	} {
		t.Courses[c.CourseCode] = c
	}
	return t
}

// ── llm ──

type stubLLM struct {
	text string
	err  error
	last llm.Request
}

func (s *stubLLM) Complete(_ context.Context, req llm.Request) (*llm.Completion, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Completion{Text: s.text, Model: req.Model, Usage: &llm.Usage{PromptTokens: 12, CompletionTokens: 8, TotalTokens: 20}}, nil
}

func (s *stubLLM) DefaultModel() string { return "gemini-2.0-flash" }

var fixedNow = time.Date(2025, time.August, 15, 9, 0, 0, 0, time.UTC)
