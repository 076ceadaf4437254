package dto

// ── calendar ──

// CalendarEventRequest creates one event. One-off events leave DayOfWeek
// empty and set RecurrencePattern to "none".
type CalendarEventRequest struct {
	Title             string `json:"title"              binding:"required,max=200"`
	StartTime         string `json:"start_time"         binding:"required,datetime=15:04"`
	EndTime           string `json:"end_time"           binding:"required,datetime=15:04"`
	DayOfWeek         string `json:"day_of_week"        binding:"omitempty,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	StartDate         string `json:"start_date"         binding:"omitempty,datetime=2006-01-02"`
	EndDate           string `json:"end_date"           binding:"omitempty,datetime=2006-01-02"`
	Description       string `json:"description"        binding:"omitempty,max=2000"`
	Professor         string `json:"professor"          binding:"omitempty,max=200"`
	Location          string `json:"location"           binding:"omitempty,max=200"`
	RecurrencePattern string `json:"recurrence_pattern" binding:"omitempty,oneof=weekly biweekly none"`
	ReferenceDate     string `json:"reference_date"     binding:"omitempty,datetime=2006-01-02"`
	Theme             string `json:"theme"              binding:"omitempty,max=40"`
}

// UpdateCalendarEventRequest partial update; PUT and PATCH both use it.
// Version, when given, must match the stored row.
type UpdateCalendarEventRequest struct {
	Title             *string `json:"title"              binding:"omitempty,min=1,max=200"`
	StartTime         *string `json:"start_time"         binding:"omitempty,datetime=15:04"`
	EndTime           *string `json:"end_time"           binding:"omitempty,datetime=15:04"`
	DayOfWeek         *string `json:"day_of_week"        binding:"omitempty,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	StartDate         *string `json:"start_date"         binding:"omitempty,datetime=2006-01-02"`
	EndDate           *string `json:"end_date"           binding:"omitempty,datetime=2006-01-02"`
	Description       *string `json:"description"        binding:"omitempty,max=2000"`
	Professor         *string `json:"professor"          binding:"omitempty,max=200"`
	Location          *string `json:"location"           binding:"omitempty,max=200"`
	RecurrencePattern *string `json:"recurrence_pattern" binding:"omitempty,oneof=weekly biweekly none"`
	ReferenceDate     *string `json:"reference_date"     binding:"omitempty,datetime=2006-01-02"`
	Theme             *string `json:"theme"              binding:"omitempty,max=40"`
	Version           *int    `json:"version"            binding:"omitempty,min=1"`
}

// BulkCreateRequest creates many events; invalid items are reported, not fatal.
type BulkCreateRequest struct {
	Events []CalendarEventRequest `json:"events" binding:"required,min=1,max=500"`
}

// ClearCalendarRequest limits a clear to events starting within [StartDate, EndDate].
type ClearCalendarRequest struct {
	StartDate string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"end_date"   binding:"omitempty,datetime=2006-01-02"`
}

// ── responses ──

// CalendarEventResponse one stored event
type CalendarEventResponse struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	DayOfWeek         string `json:"day_of_week"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date"`
	Description       string `json:"description"`
	Professor         string `json:"professor"`
	Location          string `json:"location"`
	RecurrencePattern string `json:"recurrence_pattern"`
	ReferenceDate     string `json:"reference_date"`
	Theme             string `json:"theme"`
	Version           int    `json:"version"`
	CreatedAt         string `json:"created_at,omitempty"`
	UpdatedAt         string `json:"updated_at,omitempty"`
}

// BulkItemError why one bulk item was rejected
type BulkItemError struct {
	Index int    `json:"index"`
	Title string `json:"title,omitempty"`
	Error string `json:"error"`
}

// BulkCreateResponse outcome of a bulk create
type BulkCreateResponse struct {
	CreatedEvents []CalendarEventResponse `json:"created_events"`
	Errors        []BulkItemError         `json:"errors"`
	TotalCreated  int                     `json:"total_created"`
	TotalErrors   int                     `json:"total_errors"`
}

// ClearCalendarResponse outcome of a clear
type ClearCalendarResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deleted_count"`
}

// ExportCalendarResponse JSON export of every event
type ExportCalendarResponse struct {
	Events      []CalendarEventResponse `json:"events"`
	TotalEvents int                     `json:"total_events"`
	User        string                  `json:"user"`
}
