package dto

import "github.com/oumizumi/Kairo-sub002/internal/planner"

// ── schedule generation ──

// GenerateScheduleRequest body of POST /api/schedule/generate/.
// Save defaults to true: generated events replace the user's events in the
// generated terms.
type GenerateScheduleRequest struct {
	Message         string                 `json:"message"          binding:"omitempty,max=2000"`
	Program         string                 `json:"program"          binding:"omitempty,max=200"`
	Year            int                    `json:"year"             binding:"omitempty,min=1,max=6"`
	Term            string                 `json:"term"             binding:"omitempty,max=20"`
	Courses         []string               `json:"courses"          binding:"omitempty,max=12,dive,max=12"`
	TimePreferences planner.TimePreference `json:"time_preferences"`
	Regenerate      bool                   `json:"regenerate"`
	Save            *bool                  `json:"save"`
}

// ShouldSave reports whether generated events are written to the calendar.
func (r *GenerateScheduleRequest) ShouldSave() bool {
	return r.Save == nil || *r.Save
}

// GenerateScheduleResponse the generation result plus persistence outcome.
type GenerateScheduleResponse struct {
	*planner.Result
	ChangeType  string `json:"change_type,omitempty"`
	SavedEvents int    `json:"saved_events"`
}
