package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// 販売者ごとのクーポン。codeは大文字に正規化して保存
type Coupon struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID        int64           `gorm:"not null;index" json:"seller_id"`
	Code            string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"code"`
	DiscountType    DiscountType    `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount_value"`
	MinimumPurchase decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"minimum_purchase"`
	UsageLimit      *int64          `json:"usage_limit"`
	// 注文ごとに+1。減らさない
	UsedCount int64      `gorm:"not null;default:0" json:"used_count"`
	ExpiresAt *time.Time `json:"expires_at"`
	IsActive  bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// どの経路で保存しても大文字で入るようにする
func (c *Coupon) BeforeSave(tx *gorm.DB) error {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	return nil
}
