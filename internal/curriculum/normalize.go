package curriculum

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var leadingInt = regexp.MustCompile(`\d+`)

// season keys accepted on a year entry, mapped by CanonicalTerm
var seasonKeys = []string{"Fall", "fall", "Autumn", "Winter", "winter", "Spring/Summer", "Spring", "spring", "Summer", "summer"}

// NormalizeCurriculum converts any of the published curriculum shapes into a
// CurriculumSequence:
//
//	{"years":[{"year":1,"terms":[{"term":"Fall","courses":[...]}]}]}
//	{"years":[{"year":1,"Fall":[...],"Winter":[...]}]}
//	{"requirements":[{"year":"1st Year","Fall":[...],"Spring/Summer":[...]}]}
//
// Unknown input yields an empty sequence. Years are sorted, terms follow
// Fall/Winter/Summer order and duplicates are merged, so the result
// normalizes to itself.
func NormalizeCurriculum(raw []byte) CurriculumSequence {
	out := CurriculumSequence{Years: []YearSequence{}}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return out
	}

	out.ProgramID = rawString(doc["programId"])
	out.ProgramName = rawString(doc["programName"])
	out.Degree = rawString(doc["degree"])
	out.Faculty = rawString(doc["faculty"])
	out.Notes = rawStrings(doc["notes"])

	var entries []map[string]json.RawMessage
	if body, ok := doc["years"]; ok {
		_ = json.Unmarshal(body, &entries)
	} else if body, ok := doc["requirements"]; ok {
		_ = json.Unmarshal(body, &entries)
	}

	b := newSequenceBuilder()
	for _, entry := range entries {
		year := parseYear(entry["year"])
		if year <= 0 {
			continue
		}
		b.year(year)

		if body, ok := entry["terms"]; ok {
			var terms []struct {
				Term    string            `json:"term"`
				Courses []json.RawMessage `json:"courses"`
			}
			if err := json.Unmarshal(body, &terms); err != nil {
				continue
			}
			for _, t := range terms {
				name, ok := CanonicalTerm(t.Term)
				if !ok {
					continue
				}
				b.term(year, name, parseCourses(t.Courses))
			}
			continue
		}

		for _, key := range seasonKeys {
			body, ok := entry[key]
			if !ok {
				continue
			}
			var courses []json.RawMessage
			if err := json.Unmarshal(body, &courses); err != nil || len(courses) == 0 {
				continue
			}
			name, _ := CanonicalTerm(key)
			b.term(year, name, parseCourses(courses))
		}
	}

	out.Years = b.build()
	return out
}

// ── builder ──

type sequenceBuilder struct {
	years map[int]map[string][]CourseSequenceItem
}

func newSequenceBuilder() *sequenceBuilder {
	return &sequenceBuilder{years: make(map[int]map[string][]CourseSequenceItem)}
}

func (b *sequenceBuilder) year(year int) {
	if _, ok := b.years[year]; !ok {
		b.years[year] = make(map[string][]CourseSequenceItem)
	}
}

func (b *sequenceBuilder) term(year int, term string, courses []CourseSequenceItem) {
	b.year(year)
	existing, ok := b.years[year][term]
	if !ok {
		existing = []CourseSequenceItem{}
	}
	for _, c := range courses {
		if !containsCourse(existing, c) {
			existing = append(existing, c)
		}
	}
	b.years[year][term] = existing
}

func (b *sequenceBuilder) build() []YearSequence {
	years := make([]int, 0, len(b.years))
	for y := range b.years {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]YearSequence, 0, len(years))
	for _, y := range years {
		ys := YearSequence{Year: y, Terms: []TermSequence{}}
		for _, name := range termOrder {
			if courses, ok := b.years[y][name]; ok {
				ys.Terms = append(ys.Terms, TermSequence{Term: name, Courses: courses})
			}
		}
		out = append(out, ys)
	}
	return out
}

func containsCourse(list []CourseSequenceItem, c CourseSequenceItem) bool {
	for _, x := range list {
		if x.Code == c.Code && x.Title == c.Title {
			return true
		}
	}
	return false
}

// ── field parsing ──

func parseYear(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	m := leadingInt.FindString(s)
	if m == "" {
		return 0
	}
	n2, _ := strconv.Atoi(m)
	return n2
}

func parseCourses(raws []json.RawMessage) []CourseSequenceItem {
	out := make([]CourseSequenceItem, 0, len(raws))
	for _, raw := range raws {
		if item, ok := parseCourse(raw); ok {
			out = append(out, item)
		}
	}
	return out
}

// parseCourse accepts "CSI2110 | Data Structures", "CSI 2110" or an object.
func parseCourse(raw json.RawMessage) (CourseSequenceItem, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		code, title, _ := strings.Cut(s, "|")
		item := CourseSequenceItem{
			Code:  normalizeCode(code),
			Title: strings.TrimSpace(title),
		}
		return finishCourse(item)
	}

	var obj struct {
		Code        string `json:"code"`
		Title       string `json:"title"`
		Name        string `json:"name"`
		IsElective  bool   `json:"isElective"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return CourseSequenceItem{}, false
	}
	title := obj.Title
	if title == "" {
		title = obj.Name
	}
	return finishCourse(CourseSequenceItem{
		Code:        normalizeCode(obj.Code),
		Title:       strings.TrimSpace(title),
		IsElective:  obj.IsElective,
		Description: strings.TrimSpace(obj.Description),
	})
}

func finishCourse(item CourseSequenceItem) (CourseSequenceItem, bool) {
	if item.Code == "" && item.Title == "" {
		return item, false
	}
	if strings.Contains(strings.ToLower(item.Code), "elective") ||
		strings.Contains(strings.ToLower(item.Title), "elective") {
		item.IsElective = true
	}
	return item, true
}

func normalizeCode(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

func rawString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func rawStrings(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return nil
		}
		return list
	}
	if s := rawString(raw); s != "" {
		return []string{s}
	}
	return nil
}
