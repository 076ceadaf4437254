package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oumizumi/Kairo-sub002/internal/planner"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func validFormat(f string) bool {
	switch f {
	case formatText, formatJSON, formatYAML:
		return true
	}
	return false
}

// encode writes v as JSON or YAML. YAML goes through the JSON form so both
// formats share the json field names.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("format %q has no encoder", format)
	}
}

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// writeSchedule renders a generation result as a per-day listing.
func writeSchedule(w io.Writer, res *planner.Result) {
	fmt.Fprintln(w, res.Message)

	if len(res.Events) > 0 {
		byDay := make(map[string][]planner.ScheduleEvent)
		for _, e := range res.Events {
			byDay[e.DayOfWeek] = append(byDay[e.DayOfWeek], e)
		}
		for _, day := range weekdays {
			events := byDay[day]
			if len(events) == 0 {
				continue
			}
			sort.SliceStable(events, func(i, j int) bool { return events[i].StartTime < events[j].StartTime })
			fmt.Fprintf(w, "\n%s\n", day)
			for _, e := range events {
				fmt.Fprintf(w, "  %s-%s  %-10s %-8s %s", e.StartTime, e.EndTime, e.CourseCode, e.Component, e.Section)
				if e.Location != "" {
					fmt.Fprintf(w, "  @ %s", e.Location)
				}
				fmt.Fprintln(w)
			}
		}
	}

	if len(res.UnmatchedCourses) > 0 {
		fmt.Fprintf(w, "\nNot scheduled: %s\n", strings.Join(res.UnmatchedCourses, ", "))
	}
	codes := make([]string, 0, len(res.Suggestions))
	for code := range res.Suggestions {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %s: did you mean %s?\n", code, strings.Join(res.Suggestions[code], ", "))
	}
	if len(res.Electives) > 0 {
		fmt.Fprintf(w, "\nElectives to pick in %s: %s\n", planner.ElectiveTool, strings.Join(res.Electives, ", "))
	}
}
