package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/deferlink/deferlink-go/internal/backend/model"
)

// ResolutionEventRepository defines the data access contract for resolution events.
type ResolutionEventRepository interface {
	Create(ctx context.Context, event *model.ResolutionEvent) error
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

type resolutionEventRepository struct {
	db *gorm.DB
}

// NewResolutionEventRepository returns a GORM-backed ResolutionEventRepository.
func NewResolutionEventRepository(db *gorm.DB) ResolutionEventRepository {
	return &resolutionEventRepository{db: db}
}

func (r *resolutionEventRepository) Create(ctx context.Context, event *model.ResolutionEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *resolutionEventRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("timestamp < ?", before).
		Delete(&model.ResolutionEvent{})
	return result.RowsAffected, result.Error
}
