package model

import "gorm.io/gorm"

// User account — users
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey"                json:"user_id"`
	Username     string `gorm:"type:varchar(150);not null;unique" json:"username"`
	Email        string `gorm:"type:varchar(255);not null"        json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"        json:"-"`
	IsGuest      bool   `gorm:"not null;default:false"            json:"is_guest"`
	BaseModel
}

// TableName table name
func (User) TableName() string { return "users" }

// BeforeCreate assigns the uuid.
func (u *User) BeforeCreate(*gorm.DB) error {
	newID(&u.UserID)
	return nil
}
