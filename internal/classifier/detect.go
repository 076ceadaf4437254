package classifier

import (
	"regexp"
	"strings"
)

var clockWords = regexp.MustCompile(`\b\d{0,2}\s*(am|pm)\b`)

var (
	generationVerbs = []string{"generate", "build", "create", "make", "plan", "show"}
	scheduleWords   = []string{"schedule", "timetable"}
	changeVerbs     = []string{"change", "modify", "different", "another", "update", "switch", "replace", "regenerate", "again"}
)

// ChangeKind is the sort of change a regenerate request asks for.
type ChangeKind string

const (
	ChangeNone           ChangeKind = ""
	ChangeRegeneration   ChangeKind = "complete_regeneration"
	ChangeTimePreference ChangeKind = "time_preference"
	ChangeOther          ChangeKind = "other"
)

// IsGenerationRequest reports whether text asks for a fresh schedule.
func IsGenerationRequest(text string) bool {
	lower := strings.ToLower(text)
	if !containsAny(lower, scheduleWords...) {
		return false
	}
	if containsAny(lower, generationVerbs...) {
		return true
	}
	// "year 2 fall schedule"
	if strings.Contains(lower, "year") && containsAny(lower, "fall", "winter", "summer", "term") {
		return true
	}
	return !containsAny(lower, changeVerbs...)
}

// IsChangeRequest reports whether text asks to rework the last generated schedule.
func IsChangeRequest(text string) bool {
	return ChangeKindOf(text) != ChangeNone
}

// ChangeKindOf classifies a change request.
func ChangeKindOf(text string) ChangeKind {
	lower := strings.ToLower(text)
	if containsAny(lower, "new schedule", "different schedule", "another schedule", "generate again", "regenerate", "try again") {
		return ChangeRegeneration
	}
	if !containsAny(lower, changeVerbs...) && !containsAny(lower, "no ", "avoid", "prefer", "instead", "later", "earlier") {
		return ChangeNone
	}
	if clockWords.MatchString(lower) ||
		containsAny(lower, "morning", "afternoon", "evening", "early", "late", "monday", "tuesday", "wednesday", "thursday", "friday", "compact", "gap") {
		return ChangeTimePreference
	}
	if containsAny(lower, changeVerbs...) && containsAny(lower, scheduleWords...) {
		return ChangeRegeneration
	}
	if containsAny(lower, changeVerbs...) {
		return ChangeOther
	}
	return ChangeNone
}
