package planner

import (
	"time"

	"github.com/oumizumi/Kairo-sub002/internal/curriculum"
)

// TermDates returns the first and last day of classes of a term.
func TermDates(term string, year int) (start, end time.Time) {
	switch term {
	case curriculum.TermWinter:
		return date(year, time.January, 12), date(year, time.April, 15)
	case curriculum.TermSummer:
		return date(year, time.May, 5), date(year, time.July, 29)
	}
	return date(year, time.September, 3), date(year, time.December, 2)
}

// ReadingWeek returns the Sunday-to-Saturday study break of a term: the week
// of Thanksgiving (second Monday of October) in Fall and of Family Day (third
// Monday of February) in Winter. Summer has none.
func ReadingWeek(term string, year int) (start, end time.Time, ok bool) {
	var monday time.Time
	switch term {
	case curriculum.TermFall:
		monday = nthWeekday(year, time.October, time.Monday, 2)
	case curriculum.TermWinter:
		monday = nthWeekday(year, time.February, time.Monday, 3)
	default:
		return time.Time{}, time.Time{}, false
	}
	start = monday.AddDate(0, 0, -1)
	return start, start.AddDate(0, 0, 6), true
}

// AcademicYear guesses the calendar year of the next occurrence of term.
func AcademicYear(term string, now time.Time) int {
	y := now.Year()
	switch term {
	case curriculum.TermWinter:
		if now.Month() >= time.September {
			return y + 1
		}
	case curriculum.TermSummer:
		if now.Month() >= time.August {
			return y + 1
		}
	}
	return y
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func nthWeekday(year int, month time.Month, wd time.Weekday, n int) time.Time {
	first := date(year, month, 1)
	offset := (int(wd) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+7*(n-1))
}

// dateRange is an inclusive span of class days.
type dateRange struct {
	start, end time.Time
}

func (r dateRange) overlaps(o dateRange) bool {
	return !r.start.After(o.end) && !o.start.After(r.end)
}

const (
	minPlausibleSpan = 60 * 24 * time.Hour
	nominalWeeks     = 14
)

// effectiveRange parses a meeting's dates, falling back to the term dates,
// and stretches spans shorter than 60 days to a nominal 14 weeks.
func effectiveRange(startDate, endDate string, termStart, termEnd time.Time) dateRange {
	r := dateRange{start: termStart, end: termEnd}
	if s, err := time.Parse(dateLayout, startDate); err == nil {
		r.start = s
	}
	if e, err := time.Parse(dateLayout, endDate); err == nil {
		r.end = e
	}
	if r.end.Before(r.start) {
		r.end = r.start
	}
	if r.end.Sub(r.start) < minPlausibleSpan {
		r.end = r.start.AddDate(0, 0, 7*nominalWeeks-1)
	}
	return r
}

const dateLayout = "2006-01-02"

// CurrentTerm is the term in session on now, with summer starting in May.
func CurrentTerm(now time.Time) string {
	switch m := now.Month(); {
	case m <= time.April:
		return curriculum.TermWinter
	case m <= time.August:
		return curriculum.TermSummer
	}
	return curriculum.TermFall
}
