package repository

import (
	"context"
	"time"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
)

// 注文一覧の絞り込み。nilの条件は使わない
type OrderListFilter struct {
	Page     int
	Limit    int
	Status   string
	BuyerID  *int64
	SellerID *int64
	RiderID  *int64
	From     *time.Time
	To       *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	// 同じ注文への遷移を直列化するため行ロックを取る
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)
	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)
	// IDなどが埋まる
	Create(ctx context.Context, order *model.Order) error
	Update(ctx context.Context, orderID int64, patch model.OrderPatch) (model.Order, error)
}
