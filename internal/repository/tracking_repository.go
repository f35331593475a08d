package repository

import (
	"context"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
)

type TrackingRepository interface {
	Append(ctx context.Context, sample *model.DeliveryTrackingSample) error
	// RecordedAtが最新の1件
	Latest(ctx context.Context, orderID int64) (model.DeliveryTrackingSample, error)
}
