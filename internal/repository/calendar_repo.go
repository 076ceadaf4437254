package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oumizumi/Kairo-sub002/internal/model"
	pkgerrors "github.com/oumizumi/Kairo-sub002/pkg/errors"
)

// CalendarRepository calendar event storage. Every query is scoped to one user.
type CalendarRepository interface {
	List(ctx context.Context, userID string) ([]model.UserCalendar, error)
	GetByID(ctx context.Context, userID, id string) (*model.UserCalendar, error)
	Create(ctx context.Context, event *model.UserCalendar) error
	BatchCreate(ctx context.Context, events []model.UserCalendar) error
	Update(ctx context.Context, event *model.UserCalendar) error
	Delete(ctx context.Context, userID, id string) error
	DeleteAll(ctx context.Context, userID string) (int64, error)
	// DeleteRange removes events whose start_date falls in [from, to].
	DeleteRange(ctx context.Context, userID, from, to string) (int64, error)
	// ReplaceRanges deletes the events starting in each range and inserts
	// events, in one transaction.
	ReplaceRanges(ctx context.Context, userID string, ranges []DateRange, events []model.UserCalendar) (int64, error)
}

// DateRange inclusive "YYYY-MM-DD" bounds
type DateRange struct {
	From string
	To   string
}

type calendarRepo struct {
	db *gorm.DB
}

// NewCalendarRepo creates a CalendarRepository
func NewCalendarRepo(db *gorm.DB) CalendarRepository {
	return &calendarRepo{db: db}
}

func (r *calendarRepo) List(ctx context.Context, userID string) ([]model.UserCalendar, error) {
	var events []model.UserCalendar
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_date ASC, day_of_week ASC, start_time ASC").
		Find(&events).Error
	return events, err
}

func (r *calendarRepo) GetByID(ctx context.Context, userID, id string) (*model.UserCalendar, error) {
	var event model.UserCalendar
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", id, userID).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *calendarRepo) Create(ctx context.Context, event *model.UserCalendar) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *calendarRepo) BatchCreate(ctx context.Context, events []model.UserCalendar) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(events, 100).Error
}

// Update writes every editable column under the version lock.
func (r *calendarRepo) Update(ctx context.Context, event *model.UserCalendar) error {
	oldVersion := event.Version
	result := r.db.WithContext(ctx).
		Model(&model.UserCalendar{}).
		Where("event_id = ? AND user_id = ? AND version = ?", event.EventID, event.UserID, oldVersion).
		Updates(map[string]interface{}{
			"title":              event.Title,
			"start_time":         event.StartTime,
			"end_time":           event.EndTime,
			"day_of_week":        event.DayOfWeek,
			"start_date":         event.StartDate,
			"end_date":           event.EndDate,
			"description":        event.Description,
			"professor":          event.Professor,
			"location":           event.Location,
			"recurrence_pattern": event.RecurrencePattern,
			"reference_date":     event.ReferenceDate,
			"theme":              event.Theme,
			"version":            oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrVersionConflict
	}
	event.Version = oldVersion + 1
	return nil
}

func (r *calendarRepo) Delete(ctx context.Context, userID, id string) error {
	result := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", id, userID).
		Delete(&model.UserCalendar{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *calendarRepo) DeleteAll(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.UserCalendar{})
	return result.RowsAffected, result.Error
}

func (r *calendarRepo) DeleteRange(ctx context.Context, userID, from, to string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND start_date >= ? AND start_date <= ?", userID, from, to).
		Delete(&model.UserCalendar{})
	return result.RowsAffected, result.Error
}

func (r *calendarRepo) ReplaceRanges(ctx context.Context, userID string, ranges []DateRange, events []model.UserCalendar) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rg := range ranges {
			result := tx.Where("user_id = ? AND start_date >= ? AND start_date <= ?", userID, rg.From, rg.To).
				Delete(&model.UserCalendar{})
			if result.Error != nil {
				return result.Error
			}
			deleted += result.RowsAffected
		}
		if len(events) > 0 {
			if err := tx.CreateInBatches(events, 100).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
