package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SharedSchedule a read-only snapshot of a user's events behind a public link — shared_schedules
type SharedSchedule struct {
	ShareID      string         `gorm:"type:uuid;primaryKey"                            json:"id"`
	UserID       string         `gorm:"type:uuid;not null"                              json:"-"`
	Title        string         `gorm:"type:varchar(200);not null;default:'My Schedule'" json:"title"`
	Term         string         `gorm:"type:varchar(40);not null;default:''"            json:"term"`
	ScheduleData datatypes.JSON `gorm:"not null"                                        json:"schedule_data"`
	ViewCount    int            `gorm:"not null;default:0"                              json:"view_count"`
	BaseModel

	// relations
	Owner *User `gorm:"foreignKey:UserID;references:UserID" json:"-"`
}

// TableName table name
func (SharedSchedule) TableName() string { return "shared_schedules" }

// BeforeCreate assigns the uuid.
func (s *SharedSchedule) BeforeCreate(*gorm.DB) error {
	newID(&s.ShareID)
	if len(s.ScheduleData) == 0 {
		s.ScheduleData = datatypes.JSON("[]")
	}
	return nil
}
