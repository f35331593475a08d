package repository

import (
	"context"
	"strings"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"

	"gorm.io/gorm"
)

type CouponGormRepository struct {
	db *gorm.DB
}

func NewCouponGormRepository(db *gorm.DB) *CouponGormRepository {
	return &CouponGormRepository{db: db}
}

// 大文字小文字を区別しない（古い行が小文字混じりでも引ける）
func (r *CouponGormRepository) FindByCode(ctx context.Context, code string) (model.Coupon, error) {
	var c model.Coupon
	if err := r.db.WithContext(ctx).Where("UPPER(code) = UPPER(?)", strings.TrimSpace(code)).First(&c).Error; err != nil {
		return model.Coupon{}, translate(err)
	}
	return c, nil
}

// 上限チェックと加算を1文で行う
func (r *CouponGormRepository) IncrementUsageIfAvailable(ctx context.Context, couponID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Coupon{}).
		Where("id = ? AND (usage_limit IS NULL OR used_count < usage_limit)", couponID).
		Update("used_count", gorm.Expr("used_count + 1"))

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
