package planner

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/oumizumi/Kairo-sub002/internal/offering"
)

const (
	baseFitness       = 100.0
	overlapPenalty    = 1000.0
	timePenalty       = 50.0
	avoidDayPenalty   = 30.0
	preferDayBonus    = 20.0
	instructorBonus   = 10.0
	lectureBonus      = 5.0
	gapPenalty        = 20.0
	compactPerHour    = 2.0
	completenessBonus = 10.0
)

// termContext is what scoring needs to know about the term being planned.
type termContext struct {
	term       string
	year       int
	start, end time.Time
	prefs      TimePreference
	avoid      []window
	avoidDays  map[time.Weekday]bool
	preferDays map[time.Weekday]bool
}

type window struct {
	start, end int
	days       map[time.Weekday]bool // empty means every day
}

func newTermContext(term string, year int, prefs TimePreference) *termContext {
	start, end := TermDates(term, year)
	tc := &termContext{
		term:       term,
		year:       year,
		start:      start,
		end:        end,
		prefs:      prefs,
		avoidDays:  daySet(prefs.AvoidDays),
		preferDays: daySet(prefs.PreferredDays),
	}
	for _, w := range prefs.AvoidTimes {
		s, ok1 := offering.ParseClock(w.Start)
		e, ok2 := offering.ParseClock(w.End)
		if !ok1 || !ok2 || e <= s {
			continue
		}
		tc.avoid = append(tc.avoid, window{start: s, end: e, days: daySet(w.Days)})
	}
	return tc
}

func daySet(days []string) map[time.Weekday]bool {
	set := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		if wd, ok := weekdayOf(d); ok {
			set[wd] = true
		}
	}
	return set
}

// slot is one placed weekly meeting over a date range.
type slot struct {
	course     string
	day        time.Weekday
	start, end int
	dates      dateRange
}

func (s slot) overlaps(o slot) bool {
	return s.day == o.day && s.start < o.end && o.start < s.end && s.dates.overlaps(o.dates)
}

// gapTo is the idle time between two same-day slots, or -1 when they are
// on different days or touch.
func (s slot) gapTo(o slot) int {
	if s.day != o.day || !s.dates.overlaps(o.dates) {
		return -1
	}
	switch {
	case o.start >= s.end:
		return o.start - s.end
	case s.start >= o.end:
		return s.start - o.end
	}
	return -1
}

func (tc *termContext) slotsOf(sec *offering.Section) []slot {
	out := make([]slot, 0, len(sec.Meetings))
	for _, m := range sec.Meetings {
		out = append(out, slot{
			course: sec.CourseCode,
			day:    m.Day,
			start:  m.Start,
			end:    m.End,
			dates:  effectiveRange(m.StartDate, m.EndDate, tc.start, tc.end),
		})
	}
	return out
}

// fitness scores one component against the events already placed. Every
// rule counts once per component, however many weekly meetings it has.
func (tc *termContext) fitness(sec *offering.Section, placed []slot) float64 {
	p := tc.prefs
	var (
		overlap, early, late, avoided, avoidDay, preferDay bool
		widest                                             int
	)
	for _, s := range tc.slotsOf(sec) {
		nearest := -1
		for _, o := range placed {
			if s.overlaps(o) {
				overlap = true
			}
			if g := s.gapTo(o); g > 0 && (nearest < 0 || g < nearest) {
				nearest = g
			}
		}
		if nearest > widest {
			widest = nearest
		}
		early = early || s.start < earlyCutoff
		late = late || s.end > lateCutoff
		for _, w := range tc.avoid {
			if (len(w.days) == 0 || w.days[s.day]) && s.start < w.end && w.start < s.end {
				avoided = true
			}
		}
		avoidDay = avoidDay || tc.avoidDays[s.day]
		preferDay = preferDay || tc.preferDays[s.day]
	}

	score := baseFitness
	if overlap {
		score -= overlapPenalty
	}
	if p.NoEarlyClasses && early {
		score -= timePenalty
	}
	if p.NoLateClasses && late {
		score -= timePenalty
	}
	if avoided {
		score -= timePenalty
	}
	if avoidDay {
		score -= avoidDayPenalty
	}
	if preferDay {
		score += preferDayBonus
	}
	if widest > 0 {
		hours := float64(widest) / 60
		if p.MaxGapHours > 0 && hours > p.MaxGapHours {
			score -= gapPenalty
		}
		if p.PreferCompact {
			score -= compactPerHour * hours
		}
	}
	if namedInstructor(sec.Instructor) {
		score += instructorBonus
	}
	if sec.Role == offering.RoleLecture {
		score += lectureBonus
	}
	return score
}

func namedInstructor(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	return n != "" && n != "tba" && n != "staff" && !strings.HasPrefix(n, "staff ")
}

// candidate is one enrollable selection inside a section group: the lecture
// plus one of each lab and tutorial type the group offers.
type candidate struct {
	groupID    string
	components []offering.Section
	slots      []slot
	score      float64
}

func (c *candidate) key() string {
	ids := make([]string, len(c.components))
	for i, sec := range c.components {
		ids[i] = sec.Section
	}
	return comboKey(ids)
}

func (c *candidate) open() int {
	n := 0
	for _, sec := range c.components {
		if sec.Open {
			n++
		}
	}
	return n
}

func (c *candidate) earliest() int {
	e := math.MaxInt
	for _, s := range c.slots {
		if s.start < e {
			e = s.start
		}
	}
	return e
}

func (c *candidate) selfConflict() bool {
	for i := range c.slots {
		for j := i + 1; j < len(c.slots); j++ {
			if c.slots[i].overlaps(c.slots[j]) {
				return true
			}
		}
	}
	return false
}

func (c *candidate) conflictsWith(placed []slot) bool {
	for _, s := range c.slots {
		for _, o := range placed {
			if s.overlaps(o) {
				return true
			}
		}
	}
	return false
}

func (c *candidate) usesAny(ids map[string]struct{}) bool {
	for _, sec := range c.components {
		if _, ok := ids[sec.Section]; ok {
			return true
		}
	}
	return false
}

// candidates enumerates the selections of a course. Groups without a lecture
// only count when no group of the course has one.
func candidates(course *offering.CourseGrouped) []*candidate {
	needLecture := course.HasLecture()
	var out []*candidate
	for _, id := range course.GroupIDs() {
		g := course.SectionGroups[id]
		if needLecture && g.Lecture == nil {
			continue
		}
		labs := optional(g.Labs)
		tuts := optional(g.Tutorials)
		for _, lab := range labs {
			for _, tut := range tuts {
				c := &candidate{groupID: id}
				if g.Lecture != nil {
					c.components = append(c.components, *g.Lecture)
				}
				if lab != nil {
					c.components = append(c.components, *lab)
				}
				if tut != nil {
					c.components = append(c.components, *tut)
				}
				if len(c.components) > 0 {
					out = append(out, c)
				}
			}
		}
	}
	return out
}

// optional returns one pointer per section, or a single nil when there are none.
func optional(list []offering.Section) []*offering.Section {
	if len(list) == 0 {
		return []*offering.Section{nil}
	}
	out := make([]*offering.Section, len(list))
	for i := range list {
		out[i] = &list[i]
	}
	return out
}

// vary drops selections proposed in earlier runs: first any reuse of a
// section, then only exact repeats. A filter that empties the set is skipped.
func vary(list []*candidate, sections, combos map[string]struct{}) []*candidate {
	if len(sections) == 0 {
		return list
	}
	var fresh, unseen []*candidate
	for _, c := range list {
		if !c.usesAny(sections) {
			fresh = append(fresh, c)
		}
		if _, seen := combos[c.key()]; !seen {
			unseen = append(unseen, c)
		}
	}
	switch {
	case len(fresh) > 0:
		return fresh
	case len(unseen) > 0:
		return unseen
	}
	return list
}

// selectGroup picks the best non-conflicting selection for course.
func (tc *termContext) selectGroup(course *offering.CourseGrouped, placed []slot, sections, combos map[string]struct{}) (*candidate, error) {
	all := candidates(course)
	if len(all) == 0 {
		return nil, &NoSuitableSectionError{Course: course.CourseCode, Term: tc.term, Reason: "no sections listed"}
	}

	var viable []*candidate
	for _, c := range vary(all, sections, combos) {
		for i := range c.components {
			c.slots = append(c.slots, tc.slotsOf(&c.components[i])...)
		}
		if c.selfConflict() || c.conflictsWith(placed) {
			continue
		}
		total := 0.0
		for i := range c.components {
			total += tc.fitness(&c.components[i], placed)
		}
		c.score = total/float64(len(c.components)) + completenessBonus*float64(len(c.components))
		viable = append(viable, c)
	}
	if len(viable) == 0 {
		return nil, &NoSuitableSectionError{
			Course: course.CourseCode,
			Term:   tc.term,
			Reason: "every section group conflicts with courses already placed",
		}
	}

	sort.SliceStable(viable, func(i, j int) bool {
		a, b := viable[i], viable[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.open() != b.open() {
			return a.open() > b.open()
		}
		if a.earliest() != b.earliest() {
			return a.earliest() < b.earliest()
		}
		if a.groupID != b.groupID {
			return a.groupID < b.groupID
		}
		return a.key() < b.key()
	})
	return viable[0], nil
}

// events turns the chosen selection into one event per component meeting.
func (tc *termContext) events(code, title, theme string, c *candidate) []ScheduleEvent {
	if title == "" {
		title = code
	}
	var out []ScheduleEvent
	for _, sec := range c.components {
		role := sec.Role
		if role == "" {
			role = offering.RoleLecture
		}
		for _, m := range sec.Meetings {
			r := effectiveRange(m.StartDate, m.EndDate, tc.start, tc.end)
			out = append(out, ScheduleEvent{
				Title:             code + " - " + title + " (" + string(role) + ")",
				StartTime:         offering.FormatClock(m.Start),
				EndTime:           offering.FormatClock(m.End),
				DayOfWeek:         m.DayName,
				StartDate:         r.start.Format(dateLayout),
				EndDate:           r.end.Format(dateLayout),
				Description:       "Section: " + sec.Section + "\nInstructor: " + orTBA(sec.Instructor) + "\nLocation: " + orTBA(sec.Location),
				Theme:             theme,
				CourseCode:        code,
				Section:           sec.Section,
				Component:         string(sec.Kind),
				Location:          sec.Location,
				Professor:         sec.Instructor,
				RecurrencePattern: RecurrenceWeekly,
			})
		}
	}
	return out
}

func orTBA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "TBA"
	}
	return s
}
