package offering

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	timePattern      = regexp.MustCompile(`(\d{1,2})[:h](\d{2})\s*-\s*(\d{1,2})[:h](\d{2})`)
	dateRangePattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s*-\s*(\d{4}-\d{2}-\d{2})`)
	groupPattern     = regexp.MustCompile(`\b([A-Z]{1,2})\d{2}`)
	yearPattern      = regexp.MustCompile(`20\d{2}`)
	compactDays      = regexp.MustCompile(`^[MTWRFSU]+$`)
)

var dayNames = map[string]time.Weekday{
	"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday, "sunday": time.Sunday,
	"mo": time.Monday, "tu": time.Tuesday, "we": time.Wednesday, "th": time.Thursday,
	"fr": time.Friday, "sa": time.Saturday, "su": time.Sunday,
	"mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday, "thu": time.Thursday,
	"fri": time.Friday, "sat": time.Saturday, "sun": time.Sunday,
}

var dayLetters = map[rune]time.Weekday{
	'M': time.Monday, 'T': time.Tuesday, 'W': time.Wednesday, 'R': time.Thursday,
	'F': time.Friday, 'S': time.Saturday, 'U': time.Sunday,
}

// ParseClockRange parses "08:30 - 10:00" or "8h30-10h00" into minutes after midnight.
func ParseClockRange(s string) (start, end int, ok bool) {
	m := timePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	n := make([]int, 4)
	for i := range n {
		n[i], _ = strconv.Atoi(m[i+1])
	}
	if n[0] > 23 || n[2] > 24 || n[1] > 59 || n[3] > 59 {
		return 0, 0, false
	}
	start, end = n[0]*60+n[1], n[2]*60+n[3]
	if end <= start {
		return 0, 0, false
	}
	return start, end, true
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (int, bool) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, false
	}
	hh, err1 := strconv.Atoi(h)
	mm, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hh < 0 || hh > 24 || mm < 0 || mm > 59 {
		return 0, false
	}
	return hh*60 + mm, true
}

// ParseDays accepts "MWF", "TR", "Mo We", "Monday, Wednesday" or a JSON list of those.
func ParseDays(v any) []time.Weekday {
	var tokens []string
	switch d := v.(type) {
	case string:
		tokens = strings.FieldsFunc(d, func(r rune) bool {
			return r == ',' || r == '/' || r == ' ' || r == '\t' || r == ';'
		})
	case []any:
		for _, item := range d {
			if s, ok := item.(string); ok {
				tokens = append(tokens, s)
			}
		}
	case []string:
		tokens = d
	}

	var out []time.Weekday
	seen := make(map[time.Weekday]bool)
	add := func(w time.Weekday) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	for _, tok := range tokens {
		if w, ok := dayNames[strings.ToLower(strings.TrimSpace(tok))]; ok {
			add(w)
			continue
		}
		if up := strings.ToUpper(strings.TrimSpace(tok)); compactDays.MatchString(up) {
			for _, r := range up {
				add(dayLetters[r])
			}
		}
	}
	return out
}

// KindOf derives the component type from a section code ("A01-LAB" → LAB).
func KindOf(section string) Kind {
	s := strings.ToUpper(section)
	switch {
	case strings.Contains(s, "LAB"):
		return KindLab
	case strings.Contains(s, "DGD"):
		return KindDGD
	case strings.Contains(s, "TUT"):
		return KindTutorial
	case strings.Contains(s, "SEM"):
		return KindSeminar
	case strings.Contains(s, "LEC"):
		return KindLecture
	case strings.Contains(s, "WRK"), strings.Contains(s, "WORKSHOP"):
		return KindWorkshop
	case strings.Contains(s, "STU"), strings.Contains(s, "STUDIO"):
		return KindStudio
	}
	return KindLecture
}

// GroupOf returns the group letters of a section code ("A01-LAB" → "A").
func GroupOf(section string) string {
	s := strings.ToUpper(strings.TrimSpace(section))
	if m := groupPattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	if s == "" {
		return "A"
	}
	return s
}

func parseStatus(v any) (string, bool) {
	switch s := v.(type) {
	case bool:
		if s {
			return "Open", true
		}
		return "Closed", false
	case string:
		lower := strings.ToLower(strings.TrimSpace(s))
		open := false
		for _, tok := range []string{"open", "available", "spaces", "spots"} {
			if strings.Contains(lower, tok) {
				open = true
			}
		}
		for _, tok := range []string{"closed", "full", "waitlist"} {
			if strings.Contains(lower, tok) {
				open = false
			}
		}
		return strings.TrimSpace(s), open
	case nil:
		return "", false
	}
	return fmt.Sprint(v), false
}

// ── rows ──

type row map[string]any

func (r row) str(keys ...string) string {
	for _, k := range keys {
		switch v := r[k].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func (r row) first(keys ...string) any {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil && v != "" {
			return v
		}
	}
	return nil
}

// meetings extracts the weekly slots of a row from its schedule blob, which
// is either {"days": ..., "time": ...} or free text such as "Mo We 08:30 - 10:00".
func (r row) meetings() []Meeting {
	var daysVal any
	var timeText, dateText string

	switch blob := r["schedule"].(type) {
	case map[string]any:
		daysVal = firstOf(blob, "days", "day")
		timeText = stringOf(firstOf(blob, "time", "hours"))
		dateText = stringOf(firstOf(blob, "dates", "meetingDates"))
	case string:
		daysVal = blob
		timeText = blob
		dateText = blob
	}
	if daysVal == nil {
		daysVal = r.first("days", "day")
	}
	if timeText == "" {
		timeText = stringOf(r.first("time", "hours"))
	}
	if md := r.str("meetingDates", "meeting_dates", "dates"); md != "" {
		dateText = md
	}

	start, end, ok := ParseClockRange(timeText)
	if !ok {
		return nil
	}
	var from, to string
	if m := dateRangePattern.FindStringSubmatch(dateText); m != nil {
		from, to = m[1], m[2]
	}

	var out []Meeting
	for _, d := range ParseDays(daysVal) {
		out = append(out, Meeting{Day: d, DayName: d.String(), Start: start, End: end, StartDate: from, EndDate: to})
	}
	return out
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil && v != "" {
			return v
		}
	}
	return nil
}

func stringOf(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []any:
		if len(s) > 0 {
			return fmt.Sprint(s[0])
		}
	}
	return ""
}

// ── grouping ──

// BuildTerm groups the raw rows of one term key into courses and section groups.
func BuildTerm(key, term string, raw json.RawMessage) (*TermOffering, error) {
	var rows []row
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode term %q: %w", key, err)
	}

	off := &TermOffering{Key: key, Term: term, Courses: make(map[string]*CourseGrouped)}
	if y := yearPattern.FindString(key); y != "" {
		off.Year, _ = strconv.Atoi(y)
	}

	type sectionKey struct{ code, section string }
	sections := make(map[sectionKey]*Section)
	var order []sectionKey

	for _, r := range rows {
		code := strings.ToUpper(strings.Join(strings.Fields(r.str("courseCode", "code", "course_code")), ""))
		if code == "" {
			continue
		}
		c, ok := off.Courses[code]
		if !ok {
			c = &CourseGrouped{
				CourseCode:    code,
				CourseTitle:   r.str("courseTitle", "title", "name"),
				SubjectCode:   subjectOf(code),
				Term:          term,
				SectionGroups: make(map[string]*SectionGroup),
			}
			off.Courses[code] = c
		}
		if c.CourseTitle == "" {
			c.CourseTitle = r.str("courseTitle", "title", "name")
		}

		secCode := r.str("section")
		k := sectionKey{code, secCode}
		s, ok := sections[k]
		if !ok {
			status, open := parseStatus(r.first("status", "availability", "openStatus", "open"))
			s = &Section{
				CourseCode: code,
				Section:    secCode,
				Kind:       KindOf(secCode),
				Instructor: r.str("instructor", "professor"),
				Location:   r.str("location", "room"),
				Status:     status,
				Open:       open,
			}
			sections[k] = s
			order = append(order, k)
		}
		// repeated rows of one section add meetings
		for _, m := range r.meetings() {
			if !hasMeeting(s.Meetings, m) {
				s.Meetings = append(s.Meetings, m)
			}
		}
	}

	byCourse := make(map[string][]*Section)
	for _, k := range order {
		byCourse[k.code] = append(byCourse[k.code], sections[k])
	}
	for code, list := range byCourse {
		assignGroups(off.Courses[code], list)
	}
	return off, nil
}

func hasMeeting(list []Meeting, m Meeting) bool {
	for _, x := range list {
		if x == m {
			return true
		}
	}
	return false
}

func subjectOf(code string) string {
	i := 0
	for i < len(code) && code[i] >= 'A' && code[i] <= 'Z' {
		i++
	}
	return code[:i]
}

// assignGroups places sections into groups by group letters. The first SEM,
// WRK or STU section stands in for the lecture when the group has none; the
// rest act as tutorials. A second LEC in one group forms its own group.
func assignGroups(c *CourseGrouped, list []*Section) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Section < list[j].Section })

	byGroup := make(map[string][]*Section)
	var ids []string
	for _, s := range list {
		id := GroupOf(s.Section)
		if _, ok := byGroup[id]; !ok {
			ids = append(ids, id)
		}
		byGroup[id] = append(byGroup[id], s)
	}

	for _, id := range ids {
		members := byGroup[id]
		hasLec := false
		for _, s := range members {
			if s.Kind == KindLecture {
				hasLec = true
			}
		}

		g := &SectionGroup{GroupID: id, Labs: []Section{}, Tutorials: []Section{}}
		for _, s := range members {
			role := roleOf(s.Kind, hasLec || g.Lecture != nil)
			s.Role = role
			switch role {
			case RoleLecture:
				if g.Lecture == nil {
					sec := *s
					g.Lecture = &sec
					continue
				}
				extraID := strings.ToUpper(s.Section)
				sec := *s
				c.SectionGroups[extraID] = &SectionGroup{GroupID: extraID, Lecture: &sec, Labs: []Section{}, Tutorials: []Section{}}
			case RoleLab:
				g.Labs = append(g.Labs, *s)
			default:
				g.Tutorials = append(g.Tutorials, *s)
			}
		}
		c.SectionGroups[id] = g
	}
}

func roleOf(k Kind, groupHasLecture bool) Role {
	switch k {
	case KindLecture:
		return RoleLecture
	case KindLab:
		return RoleLab
	case KindDGD, KindTutorial:
		return RoleTutorial
	}
	if groupHasLecture {
		return RoleTutorial
	}
	return RoleLecture
}

// PickTermKey chooses the data key for term: an exact match when term names a
// year ("Fall 2025"), otherwise the key mentioning the season with the latest year.
func PickTermKey(keys []string, term string) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(term))
	for _, k := range keys {
		if strings.ToLower(k) == want {
			return k, true
		}
	}

	season := want
	if f := strings.Fields(want); len(f) > 0 {
		season = f[0]
	}
	var matches []string
	for _, k := range keys {
		lk := strings.ToLower(k)
		if strings.Contains(lk, season) || (season == "summer" && strings.Contains(lk, "spring")) {
			matches = append(matches, k)
		}
	}
	if len(matches) == 0 {
		return "", false
	}
	sort.SliceStable(matches, func(i, j int) bool {
		yi, _ := strconv.Atoi(yearPattern.FindString(matches[i]))
		yj, _ := strconv.Atoi(yearPattern.FindString(matches[j]))
		if yi != yj {
			return yi > yj
		}
		return matches[i] < matches[j]
	})
	return matches[0], true
}
