package model

import "gorm.io/gorm"

// Recurrence patterns stored in user_calendars.recurrence_pattern.
const (
	RecurrenceWeekly   = "weekly"
	RecurrenceBiweekly = "biweekly"
	RecurrenceNone     = "none"
)

// DefaultTheme colour used when an event carries none.
const DefaultTheme = "blue-gradient"

// UserCalendar one calendar event owned by a user — user_calendars
//
// Times are "HH:MM"; dates are "YYYY-MM-DD". DayOfWeek is the English
// weekday name and is empty for one-off events, which use StartDate.
type UserCalendar struct {
	EventID           string `gorm:"type:uuid;primaryKey"                        json:"id"`
	UserID            string `gorm:"type:uuid;not null;index"                    json:"-"`
	Title             string `gorm:"type:varchar(200);not null"                  json:"title"`
	StartTime         string `gorm:"type:varchar(5);not null"                    json:"start_time"`
	EndTime           string `gorm:"type:varchar(5);not null"                    json:"end_time"`
	DayOfWeek         string `gorm:"type:varchar(10);not null;default:''"        json:"day_of_week"`
	StartDate         string `gorm:"type:varchar(10);not null;default:''"        json:"start_date"`
	EndDate           string `gorm:"type:varchar(10);not null;default:''"        json:"end_date"`
	Description       string `gorm:"type:text;not null;default:''"               json:"description"`
	Professor         string `gorm:"type:varchar(200);not null;default:''"       json:"professor"`
	Location          string `gorm:"type:varchar(200);not null;default:''"       json:"location"`
	RecurrencePattern string `gorm:"type:varchar(10);not null;default:'weekly'"  json:"recurrence_pattern"`
	ReferenceDate     string `gorm:"type:varchar(10);not null;default:''"        json:"reference_date"`
	Theme             string `gorm:"type:varchar(40);not null;default:'blue-gradient'" json:"theme"`
	VersionedModel
}

// TableName table name
func (UserCalendar) TableName() string { return "user_calendars" }

// BeforeCreate assigns the uuid and fills the column defaults gorm would
// otherwise write as empty strings.
func (e *UserCalendar) BeforeCreate(*gorm.DB) error {
	newID(&e.EventID)
	if e.RecurrencePattern == "" {
		e.RecurrencePattern = RecurrenceWeekly
	}
	if e.Theme == "" {
		e.Theme = DefaultTheme
	}
	if e.Version == 0 {
		e.Version = 1
	}
	return nil
}
