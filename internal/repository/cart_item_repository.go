package repository

import (
	"context"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
	"github.com/shopspring/decimal"
)

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	// 同一商品はプラス
	UpsertByCartAndProduct(ctx context.Context, cartID int64, productID int64, addQty int64, unitPriceSnapshot decimal.Decimal) error
	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error
	DeleteByID(ctx context.Context, cartItemID int64) error
	// チェックアウトした明細だけ消す
	DeleteByIDs(ctx context.Context, cartItemIDs []int64) error
	FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error)
}
