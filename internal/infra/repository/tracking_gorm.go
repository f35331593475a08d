package repository

import (
	"context"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"

	"gorm.io/gorm"
)

type TrackingGormRepository struct {
	db *gorm.DB
}

func NewTrackingGormRepository(db *gorm.DB) *TrackingGormRepository {
	return &TrackingGormRepository{db: db}
}

// 追記のみ
func (r *TrackingGormRepository) Append(ctx context.Context, s *model.DeliveryTrackingSample) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *TrackingGormRepository) Latest(ctx context.Context, orderID int64) (model.DeliveryTrackingSample, error) {
	var s model.DeliveryTrackingSample
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("recorded_at desc").
		Order("id desc").
		First(&s).Error
	if err != nil {
		return model.DeliveryTrackingSample{}, translate(err)
	}
	return s, nil
}
