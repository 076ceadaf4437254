package ics

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oumizumi/Kairo-sub002/internal/offering"
	"github.com/oumizumi/Kairo-sub002/internal/planner"
)

const (
	prodID   = "-//Kairo//Kairo Schedule//EN"
	maxOctet = 75
)

// ExportOptions controls calendar-level output.
type ExportOptions struct {
	CalendarName string
	// Now stamps DTSTAMP; zero means time.Now.
	Now time.Time
	// SkipReadingWeek adds EXDATEs for the study break of the term an event starts in.
	SkipReadingWeek bool
}

// vtimezone pins America/Toronto to the current North American DST rules.
var vtimezone = []string{
	"BEGIN:VTIMEZONE",
	"TZID:" + TimeZone,
	"X-LIC-LOCATION:" + TimeZone,
	"BEGIN:DAYLIGHT",
	"TZOFFSETFROM:-0500",
	"TZOFFSETTO:-0400",
	"TZNAME:EDT",
	"DTSTART:19700308T020000",
	"RRULE:FREQ=YEARLY;BYMONTH=3;BYDAY=2SU",
	"END:DAYLIGHT",
	"BEGIN:STANDARD",
	"TZOFFSETFROM:-0400",
	"TZOFFSETTO:-0500",
	"TZNAME:EST",
	"DTSTART:19701101T020000",
	"RRULE:FREQ=YEARLY;BYMONTH=11;BYDAY=1SU",
	"END:STANDARD",
	"END:VTIMEZONE",
}

// Export renders events as a VCALENDAR. Events whose times or dates cannot
// be read are left out.
func Export(events []Event, opts ExportOptions) string {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	name := opts.CalendarName
	if name == "" {
		name = "Kairo Schedule"
	}

	var w writer
	w.line("BEGIN:VCALENDAR")
	w.line("VERSION:2.0")
	w.line("PRODID:" + prodID)
	w.line("CALSCALE:GREGORIAN")
	w.line("METHOD:PUBLISH")
	w.line("X-WR-CALNAME:" + Escape(name))
	w.line("X-WR-TIMEZONE:" + TimeZone)
	for _, l := range vtimezone {
		w.line(l)
	}
	stamp := now.UTC().Format(utcLayout)
	for _, e := range events {
		writeEvent(&w, e, stamp, opts)
	}
	w.line("END:VCALENDAR")
	return w.String()
}

func writeEvent(w *writer, e Event, stamp string, opts ExportOptions) {
	startMin, ok1 := offering.ParseClock(e.StartTime)
	endMin, ok2 := offering.ParseClock(e.EndTime)
	first, err := time.ParseInLocation(dateLayout, e.StartDate, toronto)
	if !ok1 || !ok2 || err != nil || endMin <= startMin {
		return
	}
	last := first
	if e.EndDate != "" {
		if t, err := time.ParseInLocation(dateLayout, e.EndDate, toronto); err == nil && !t.Before(first) {
			last = t
		}
	}

	recurrence := e.Recurrence
	day, hasDay := weekdayOf(e.DayOfWeek)
	if recurrence == "" {
		recurrence = RecurrenceWeekly
	}
	if !hasDay {
		recurrence = RecurrenceNone
	}
	if recurrence != RecurrenceNone {
		// the first occurrence is the first matching weekday on or after StartDate
		first = first.AddDate(0, 0, (int(day)-int(first.Weekday())+7)%7)
		if first.After(last) {
			return
		}
	}

	start := at(first, startMin)
	end := at(first, endMin)

	w.line("BEGIN:VEVENT")
	w.line("UID:" + uidOf(e) + "@kairo")
	w.line("DTSTAMP:" + stamp)
	w.line("DTSTART;TZID=" + TimeZone + ":" + start.Format(localLayout))
	w.line("DTEND;TZID=" + TimeZone + ":" + end.Format(localLayout))
	if recurrence != RecurrenceNone {
		until := time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 59, 0, toronto).UTC()
		rule := "RRULE:FREQ=WEEKLY"
		if recurrence == RecurrenceBiweekly {
			rule += ";INTERVAL=2"
		}
		w.line(rule + ";BYDAY=" + weekdayCodes[day] + ";UNTIL=" + until.Format(utcLayout))
		if opts.SkipReadingWeek {
			for _, ex := range readingWeekDates(first, last, day, recurrence) {
				w.line("EXDATE;TZID=" + TimeZone + ":" + at(ex, startMin).Format(localLayout))
			}
		}
	}
	w.line("SUMMARY:" + Escape(e.Title))
	if desc := describe(e); desc != "" {
		w.line("DESCRIPTION:" + Escape(desc))
	}
	if e.Location != "" {
		w.line("LOCATION:" + Escape(e.Location))
	}
	if e.Theme != "" {
		w.line("X-KAIRO-THEME:" + Escape(e.Theme))
	}
	w.line("END:VEVENT")
}

func describe(e Event) string {
	desc := e.Description
	if e.Professor != "" && !strings.Contains(desc, e.Professor) {
		if desc != "" {
			desc += "\n"
		}
		desc += "Professor: " + e.Professor
	}
	return desc
}

// readingWeekDates lists the occurrences that fall in the study break.
func readingWeekDates(first, last time.Time, day time.Weekday, recurrence string) []time.Time {
	term := planner.CurrentTerm(first)
	from, to, ok := planner.ReadingWeek(term, first.Year())
	if !ok {
		return nil
	}
	step := 7
	if recurrence == RecurrenceBiweekly {
		step = 14
	}
	var out []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, step) {
		ymd := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		if !ymd.Before(from) && !ymd.After(to) && d.Weekday() == day {
			out = append(out, d)
		}
	}
	return out
}

func at(day time.Time, minutes int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, toronto)
}

func uidOf(e Event) string {
	if e.UID != "" {
		return e.UID
	}
	key := strings.Join([]string{e.Title, e.DayOfWeek, e.StartTime, e.EndTime, e.StartDate, e.EndDate}, "|")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

func weekdayOf(name string) (time.Weekday, bool) {
	days := offering.ParseDays(name)
	if len(days) != 1 {
		return 0, false
	}
	return days[0], true
}

// Escape escapes a TEXT value.
func Escape(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		";", `\;`,
		",", `\,`,
		"\r\n", `\n`,
		"\n", `\n`,
		"\r", `\n`,
	)
	return r.Replace(s)
}

// Unescape reverses Escape.
func Unescape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// writer emits CRLF-terminated content lines folded at 75 octets.
type writer struct {
	b strings.Builder
}

func (w *writer) line(s string) {
	limit := maxOctet
	for len(s) > limit {
		cut := limit
		// never split a UTF-8 sequence
		for cut > 0 && s[cut]&0xC0 == 0x80 {
			cut--
		}
		w.b.WriteString(s[:cut])
		w.b.WriteString("\r\n ")
		s = s[cut:]
		// continuation lines carry a leading space
		limit = maxOctet - 1
	}
	w.b.WriteString(s)
	w.b.WriteString("\r\n")
}

func (w *writer) String() string {
	return w.b.String()
}
