package repository

import (
	"context"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
)

type CouponRepository interface {
	// codeは正規化済みで渡す
	FindByCode(ctx context.Context, code string) (model.Coupon, error)
	// 上限に達していなければ used_count を+1（falseなら上限）
	IncrementUsageIfAvailable(ctx context.Context, couponID int64) (bool, error)
}
