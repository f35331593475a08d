package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
	"github.com/shopspring/decimal"
)

// クーポン不適用の理由
const (
	ReasonInvalidCode     = "invalid code"
	ReasonInactive        = "inactive"
	ReasonWrongSeller     = "not valid for this seller"
	ReasonExpired         = "expired"
	ReasonUsageLimit      = "usage limit reached"
	reasonMinimumTemplate = "minimum purchase of %s required"
)

type CouponResult struct {
	Valid    bool
	Reason   string
	Discount decimal.Decimal
}

// 大文字・前後空白なしに揃える
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// EvaluateCoupon はクーポンを上から順にチェックし、最初に失敗した理由を返す。
// c == nil はコードが見つからなかった扱い。subtotalは割引前の小計。
func EvaluateCoupon(c *model.Coupon, sellerID int64, subtotal decimal.Decimal, now time.Time) CouponResult {
	if c == nil {
		return CouponResult{Reason: ReasonInvalidCode}
	}
	if !c.IsActive {
		return CouponResult{Reason: ReasonInactive}
	}
	// 販売者をまたいでは使えない
	if c.SellerID != sellerID {
		return CouponResult{Reason: ReasonWrongSeller}
	}
	if c.ExpiresAt != nil && c.ExpiresAt.Before(now) {
		return CouponResult{Reason: ReasonExpired}
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return CouponResult{Reason: ReasonUsageLimit}
	}
	if subtotal.LessThan(c.MinimumPurchase) {
		return CouponResult{Reason: minimumPurchaseReason(c.MinimumPurchase)}
	}

	return CouponResult{Valid: true, Discount: couponDiscount(c, subtotal)}
}

func couponDiscount(c *model.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.DiscountType {
	case model.DiscountTypePercentage:
		d = subtotal.Mul(c.DiscountValue).Div(hundred).Round(2)
	default:
		d = c.DiscountValue.Round(2)
	}

	// 小計を超えない（合計がマイナスにならない）
	if d.GreaterThan(subtotal) {
		d = subtotal
	}
	if d.IsNegative() {
		d = decimal.Zero
	}
	return d
}

func minimumPurchaseReason(minimum decimal.Decimal) string {
	return fmt.Sprintf(reasonMinimumTemplate, minimum.StringFixed(2))
}
