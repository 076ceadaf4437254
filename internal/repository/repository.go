package repository

import "gorm.io/gorm"

// Repository aggregates every repository.
type Repository struct {
	User     UserRepository
	Calendar CalendarRepository
	Share    ShareRepository
}

// NewRepository builds the aggregate over one gorm handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:     NewUserRepo(db),
		Calendar: NewCalendarRepo(db),
		Share:    NewShareRepo(db),
	}
}
