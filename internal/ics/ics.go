// Package ics converts calendar events to and from iCalendar (RFC 5545).
package ics

import (
	"time"
	_ "time/tzdata"
)

// Recurrence patterns understood by Export and produced by Import.
const (
	RecurrenceWeekly   = "weekly"
	RecurrenceBiweekly = "biweekly"
	RecurrenceNone     = "none"
)

const (
	// TimeZone is the zone every Kairo calendar is written in.
	TimeZone = "America/Toronto"

	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
	localLayout = "20060102T150405"
	utcLayout   = "20060102T150405Z"
)

// Event is one calendar entry. Times are wall-clock HH:MM in TimeZone,
// dates are YYYY-MM-DD.
type Event struct {
	UID         string
	Title       string
	Description string
	Location    string
	Professor   string
	DayOfWeek   string
	StartTime   string
	EndTime     string
	StartDate   string
	EndDate     string
	Recurrence  string
	Theme       string
}

var toronto = mustLocation(TimeZone)

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

var weekdayCodes = map[time.Weekday]string{
	time.Sunday: "SU", time.Monday: "MO", time.Tuesday: "TU", time.Wednesday: "WE",
	time.Thursday: "TH", time.Friday: "FR", time.Saturday: "SA",
}
