package planner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/oumizumi/Kairo-sub002/internal/offering"
)

const (
	earlyCutoff = 9 * 60
	lateCutoff  = 18 * 60
)

// TimeWindow is a daily span to keep free, optionally limited to some days.
type TimeWindow struct {
	Start string   `json:"start" validate:"required,clock"`
	End   string   `json:"end" validate:"required,clock"`
	Days  []string `json:"days,omitempty" validate:"omitempty,dive,weekday"`
}

// TimePreference is the user's constraint set for one generation.
type TimePreference struct {
	NoEarlyClasses bool         `json:"no_early_classes,omitempty"`
	NoLateClasses  bool         `json:"no_late_classes,omitempty"`
	AvoidTimes     []TimeWindow `json:"avoid_times,omitempty" validate:"omitempty,dive"`
	PreferredDays  []string     `json:"preferred_days,omitempty" validate:"omitempty,dive,weekday"`
	AvoidDays      []string     `json:"avoid_days,omitempty" validate:"omitempty,dive,weekday"`
	MaxGapHours    float64      `json:"max_gap_hours,omitempty" validate:"gte=0,lte=14"`
	PreferCompact  bool         `json:"prefer_compact,omitempty"`
}

// IsZero reports whether no preference is set.
func (p *TimePreference) IsZero() bool {
	return p == nil || (!p.NoEarlyClasses && !p.NoLateClasses && len(p.AvoidTimes) == 0 &&
		len(p.PreferredDays) == 0 && len(p.AvoidDays) == 0 && p.MaxGapHours == 0 && !p.PreferCompact)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func prefValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
			_, ok := offering.ParseClock(fl.Field().String())
			return ok
		})
		_ = validate.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
			_, ok := weekdayOf(fl.Field().String())
			return ok
		})
	})
	return validate
}

// Validate checks clock formats, day names and ranges.
func (p *TimePreference) Validate() error {
	if p == nil {
		return nil
	}
	if err := prefValidator().Struct(p); err != nil {
		return fmt.Errorf("invalid time preferences: %w", err)
	}
	for _, w := range p.AvoidTimes {
		s, _ := offering.ParseClock(w.Start)
		e, _ := offering.ParseClock(w.End)
		if e <= s {
			return fmt.Errorf("invalid time preferences: window %s-%s ends before it starts", w.Start, w.End)
		}
	}
	return nil
}

// Merge fills unset fields of p from o.
func (p TimePreference) Merge(o TimePreference) TimePreference {
	p.NoEarlyClasses = p.NoEarlyClasses || o.NoEarlyClasses
	p.NoLateClasses = p.NoLateClasses || o.NoLateClasses
	p.PreferCompact = p.PreferCompact || o.PreferCompact
	if p.MaxGapHours == 0 {
		p.MaxGapHours = o.MaxGapHours
	}
	p.AvoidTimes = append(append([]TimeWindow(nil), p.AvoidTimes...), o.AvoidTimes...)
	p.PreferredDays = mergeDays(p.PreferredDays, o.PreferredDays)
	p.AvoidDays = mergeDays(p.AvoidDays, o.AvoidDays)
	return p
}

func mergeDays(a, b []string) []string {
	out := append([]string(nil), a...)
	for _, d := range b {
		dup := false
		for _, x := range out {
			if strings.EqualFold(x, d) {
				dup = true
			}
		}
		if !dup {
			out = append(out, d)
		}
	}
	return out
}

var (
	dayWord       = `(monday|tuesday|wednesday|thursday|friday|saturday|sunday)s?`
	avoidDayRe    = regexp.MustCompile(`\b(?:no|avoid|without|free|off on|not on|no classes on)\s+(?:classes\s+on\s+)?` + dayWord + `|` + dayWord + `\s+off`)
	preferDayRe   = regexp.MustCompile(`\b(?:prefer|preferably|ideally|only on|want)\s+(?:classes\s+on\s+)?` + dayWord)
	beforeRe      = regexp.MustCompile(`\b(?:no|avoid|nothing)\s+(?:classes\s+)?(?:before|until)\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?`)
	afterRe       = regexp.MustCompile(`\b(?:no|avoid|nothing)\s+(?:classes\s+)?after\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?`)
	noHourRe      = regexp.MustCompile(`\bno\s+(\d{1,2})\s*(am|pm)\b`)
	maxGapRe      = regexp.MustCompile(`(?:gaps?|breaks?)\s+(?:of\s+)?(?:more than|longer than|over|above|max(?:imum)?|at most)\s+(\d+(?:\.\d+)?)\s*(?:h|hours?)`)
	maxGapAltRe   = regexp.MustCompile(`(?:max(?:imum)?|at most)\s+(\d+(?:\.\d+)?)\s*(?:h|hours?)\s+(?:gaps?|breaks?)`)
	noEarlyPhrase = []string{"no early", "no morning", "not early", "nothing early", "sleep in", "late start", "start late", "start later", "afternoon classes", "prefer afternoon", "prefer afternoons"}
	noLatePhrase  = []string{"no late", "no evening", "no night", "not late", "finish early", "end early", "done early", "morning classes", "prefer morning", "prefer mornings"}
	compactPhrase = []string{"compact", "back to back", "back-to-back", "minimize gaps", "minimise gaps", "no gaps", "fewer gaps", "condensed"}
)

// ParsePreferences reads constraints such as "no 8am", "no classes on friday",
// "prefer mondays" or "compact schedule" from a chat message.
func ParsePreferences(text string) TimePreference {
	lower := strings.ToLower(text)
	var p TimePreference

	for _, ph := range noEarlyPhrase {
		if strings.Contains(lower, ph) {
			p.NoEarlyClasses = true
		}
	}
	for _, ph := range noLatePhrase {
		if strings.Contains(lower, ph) {
			p.NoLateClasses = true
		}
	}
	for _, ph := range compactPhrase {
		if strings.Contains(lower, ph) {
			p.PreferCompact = true
		}
	}

	for _, m := range beforeRe.FindAllStringSubmatch(lower, -1) {
		if h, ok := hourOf(m[1], m[2], m[3]); ok {
			p.AvoidTimes = append(p.AvoidTimes, TimeWindow{Start: "00:00", End: h})
		}
	}
	for _, m := range afterRe.FindAllStringSubmatch(lower, -1) {
		if h, ok := hourOf(m[1], m[2], m[3]); ok {
			p.AvoidTimes = append(p.AvoidTimes, TimeWindow{Start: h, End: "23:59"})
		}
	}
	for _, m := range noHourRe.FindAllStringSubmatch(lower, -1) {
		if h, ok := hourOf(m[1], "", m[2]); ok {
			start, _ := offering.ParseClock(h)
			p.AvoidTimes = append(p.AvoidTimes, TimeWindow{Start: h, End: offering.FormatClock(start + 60)})
		}
	}

	for _, m := range avoidDayRe.FindAllStringSubmatch(lower, -1) {
		day := m[1]
		if day == "" {
			day = m[2]
		}
		p.AvoidDays = mergeDays(p.AvoidDays, []string{titleDay(day)})
	}
	for _, m := range preferDayRe.FindAllStringSubmatch(lower, -1) {
		p.PreferredDays = mergeDays(p.PreferredDays, []string{titleDay(m[1])})
	}

	if m := maxGapRe.FindStringSubmatch(lower); m != nil {
		p.MaxGapHours, _ = strconv.ParseFloat(m[1], 64)
	} else if m := maxGapAltRe.FindStringSubmatch(lower); m != nil {
		p.MaxGapHours, _ = strconv.ParseFloat(m[1], 64)
	}
	return p
}

// hourOf turns "8", "30", "am" into "08:30". Without a meridiem, hours
// below 7 are read as afternoon.
func hourOf(hour, minute, meridiem string) (string, bool) {
	h, err := strconv.Atoi(hour)
	if err != nil || h > 23 {
		return "", false
	}
	m := 0
	if minute != "" {
		m, _ = strconv.Atoi(minute)
	}
	switch meridiem {
	case "pm":
		if h < 12 {
			h += 12
		}
	case "am":
		if h == 12 {
			h = 0
		}
	default:
		if h < 7 {
			h += 12
		}
	}
	if h > 23 || m > 59 {
		return "", false
	}
	return offering.FormatClock(h*60 + m), true
}

func titleDay(d string) string {
	d = strings.TrimSuffix(strings.ToLower(d), "s")
	if d == "" {
		return d
	}
	return strings.ToUpper(d[:1]) + d[1:]
}

// weekdayOf parses a single day name or abbreviation.
func weekdayOf(s string) (time.Weekday, bool) {
	days := offering.ParseDays(s)
	if len(days) != 1 {
		return 0, false
	}
	return days[0], true
}
