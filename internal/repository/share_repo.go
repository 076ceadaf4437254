package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oumizumi/Kairo-sub002/internal/model"
)

// ShareRepository shared schedule snapshots
type ShareRepository interface {
	Create(ctx context.Context, share *model.SharedSchedule) error
	GetByID(ctx context.Context, id string) (*model.SharedSchedule, error)
	IncrementViews(ctx context.Context, id string) error
}

type shareRepo struct {
	db *gorm.DB
}

// NewShareRepo creates a ShareRepository
func NewShareRepo(db *gorm.DB) ShareRepository {
	return &shareRepo{db: db}
}

func (r *shareRepo) Create(ctx context.Context, share *model.SharedSchedule) error {
	return r.db.WithContext(ctx).Create(share).Error
}

func (r *shareRepo) GetByID(ctx context.Context, id string) (*model.SharedSchedule, error) {
	var share model.SharedSchedule
	err := r.db.WithContext(ctx).
		Where("share_id = ?", id).
		First(&share).Error
	if err != nil {
		return nil, err
	}
	return &share, nil
}

func (r *shareRepo) IncrementViews(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.SharedSchedule{}).
		Where("share_id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
}
