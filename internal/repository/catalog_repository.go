package repository

import (
	"context"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
)

// 商品の参照だけ（カタログCRUDは別サービス）
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)
}

type DeliveryZoneRepository interface {
	FindByID(ctx context.Context, id int64) (model.DeliveryZone, error)
}
