package model

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel audit timestamps embedded by every table.
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// VersionedModel rows updated under an optimistic lock.
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// newID fills an empty primary key; sqlite has no gen_random_uuid().
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
