package ics

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// MaxImportSize bounds uploaded calendars.
const MaxImportSize = 5 << 20

var ErrInvalidCalendar = errors.New("invalid iCalendar data")

// ImportOptions controls how foreign calendars are read.
type ImportOptions struct {
	// Location is used for floating times; nil means America/Toronto.
	Location *time.Location
	// DefaultEnd bounds open-ended weekly rules; zero means 16 weeks after the start.
	DefaultEnd time.Time
}

// ── Import ──────────────────────────────────────────────────
//
// DTSTART/DTEND give weekday and wall-clock times, RRULE gives the
// recurrence and end date, events without RRULE stay one-off. One-off
// events with the same title, weekday and times that repeat every week
// (or every other week) are folded into a single recurring event.
// ─────────────────────────────────────────────────────────────

// Import parses an uploaded calendar into events.
func Import(r io.Reader, opts ImportOptions) ([]Event, error) {
	loc := opts.Location
	if loc == nil {
		loc = toronto
	}
	cal, err := ical.ParseCalendar(io.LimitReader(r, MaxImportSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCalendar, err)
	}

	var recurring, single []Event
	for _, comp := range cal.Events() {
		e, ok := parseVEvent(comp, loc, opts.DefaultEnd)
		if !ok {
			continue
		}
		if e.Recurrence == RecurrenceNone {
			single = append(single, e)
		} else {
			recurring = append(recurring, e)
		}
	}
	return append(recurring, foldSingles(single)...), nil
}

func parseVEvent(evt *ical.VEvent, loc *time.Location, defaultEnd time.Time) (Event, bool) {
	summary := evt.GetProperty(ical.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return Event{}, false
	}
	start, err := propertyTime(evt, ical.ComponentPropertyDtStart, loc)
	if err != nil {
		return Event{}, false
	}
	end, err := propertyTime(evt, ical.ComponentPropertyDtEnd, loc)
	if err != nil {
		d, ok := duration(evt)
		if !ok {
			return Event{}, false
		}
		end = start.Add(d)
	}
	if !end.After(start) {
		return Event{}, false
	}

	e := Event{
		Title:      Unescape(strings.TrimSpace(summary.Value)),
		DayOfWeek:  start.Weekday().String(),
		StartTime:  start.Format(clockLayout),
		EndTime:    end.Format(clockLayout),
		StartDate:  start.Format(dateLayout),
		EndDate:    start.Format(dateLayout),
		Recurrence: RecurrenceNone,
	}
	if p := evt.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		e.UID = strings.TrimSuffix(p.Value, "@kairo")
	}
	if p := evt.GetProperty(ical.ComponentPropertyDescription); p != nil {
		e.Description = Unescape(p.Value)
	}
	if p := evt.GetProperty(ical.ComponentPropertyLocation); p != nil {
		e.Location = Unescape(p.Value)
	}
	if p := evt.GetProperty(ical.ComponentProperty("X-KAIRO-THEME")); p != nil {
		e.Theme = Unescape(p.Value)
	}

	if p := evt.GetProperty(ical.ComponentPropertyRrule); p != nil {
		rule := parseRRule(p.Value)
		if rule.freq == "WEEKLY" {
			e.Recurrence = RecurrenceWeekly
			if rule.interval == 2 {
				e.Recurrence = RecurrenceBiweekly
			}
			step := 7 * rule.interval
			var last time.Time
			switch {
			case !rule.until.IsZero():
				last = rule.until.In(loc)
			case rule.count > 0:
				last = start.AddDate(0, 0, step*(rule.count-1))
			case !defaultEnd.IsZero():
				last = defaultEnd
			default:
				last = start.AddDate(0, 0, 7*16-1)
			}
			e.EndDate = last.Format(dateLayout)
		}
	}
	return e, true
}

// rrule holds the RRULE parts that matter for weekly classes.
type rrule struct {
	freq     string
	interval int
	count    int
	until    time.Time
}

func parseRRule(value string) rrule {
	r := rrule{interval: 1}
	for _, part := range strings.Split(value, ";") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch strings.ToUpper(k) {
		case "FREQ":
			r.freq = strings.ToUpper(v)
		case "INTERVAL":
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				r.interval = n
			}
		case "COUNT":
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				r.count = n
			}
		case "UNTIL":
			for _, layout := range []string{utcLayout, localLayout, "20060102"} {
				if t, err := time.Parse(layout, v); err == nil {
					r.until = t
					break
				}
			}
		}
	}
	return r
}

func propertyTime(evt *ical.VEvent, name ical.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(name)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing %s", name)
	}
	zone := loc
	for k, v := range prop.ICalParameters {
		if strings.EqualFold(k, "TZID") && len(v) > 0 {
			if l, err := time.LoadLocation(v[0]); err == nil {
				zone = l
			}
		}
	}
	val := strings.TrimSpace(prop.Value)
	if t, err := time.Parse(utcLayout, val); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range []string{localLayout, "20060102"} {
		if t, err := time.ParseInLocation(layout, val, zone); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unreadable %s %q", name, val)
}

// duration reads simple DURATION values such as PT1H30M.
func duration(evt *ical.VEvent) (time.Duration, bool) {
	prop := evt.GetProperty(ical.ComponentProperty(ical.PropertyDuration))
	if prop == nil {
		return 0, false
	}
	v := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(prop.Value)), "PT")
	d, err := time.ParseDuration(strings.ToLower(v))
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

// foldSingles merges one-off occurrences of the same class into recurring events.
func foldSingles(events []Event) []Event {
	type key struct{ title, day, start, end string }
	groups := make(map[key][]Event)
	var order []key
	for _, e := range events {
		k := key{e.Title, e.DayOfWeek, e.StartTime, e.EndTime}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], e)
	}

	var out []Event
	for _, k := range order {
		list := groups[k]
		sort.SliceStable(list, func(i, j int) bool { return list[i].StartDate < list[j].StartDate })
		if len(list) < 2 {
			out = append(out, list...)
			continue
		}
		step, ok := regularStep(list)
		if !ok {
			out = append(out, list...)
			continue
		}
		merged := list[0]
		merged.EndDate = list[len(list)-1].StartDate
		merged.Recurrence = RecurrenceWeekly
		if step == 14 {
			merged.Recurrence = RecurrenceBiweekly
		}
		out = append(out, merged)
	}
	return out
}

// regularStep reports the day spacing when every occurrence is 7 or 14 days
// after the previous one.
func regularStep(list []Event) (int, bool) {
	step := 0
	for i := 1; i < len(list); i++ {
		a, err1 := time.Parse(dateLayout, list[i-1].StartDate)
		b, err2 := time.Parse(dateLayout, list[i].StartDate)
		if err1 != nil || err2 != nil {
			return 0, false
		}
		d := int(b.Sub(a).Hours() / 24)
		if d != 7 && d != 14 {
			return 0, false
		}
		if step != 0 && d != step {
			return 0, false
		}
		step = d
	}
	return step, true
}
