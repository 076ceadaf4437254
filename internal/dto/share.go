package dto

import "encoding/json"

// ── shared schedules ──

// CreateShareRequest snapshots the caller's calendar (or the given events)
// behind a public link.
type CreateShareRequest struct {
	Title  string                 `json:"title"  binding:"omitempty,max=200"`
	Term   string                 `json:"term"   binding:"omitempty,max=40"`
	Events []CalendarEventRequest `json:"events" binding:"omitempty,max=500,dive"`
}

// ShareResponse a stored share
type ShareResponse struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Term         string          `json:"term"`
	ScheduleData json.RawMessage `json:"schedule_data"`
	ViewCount    int             `json:"view_count"`
	ShareURL     string          `json:"share_url"`
	CreatedAt    string          `json:"created_at"`
}
