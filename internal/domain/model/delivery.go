package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 配送ゾーン（bus / rider配送の料金）
type DeliveryZone struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string          `gorm:"type:varchar(100);not null" json:"name"`
	Fee       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"fee"`
	IsActive  bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// ライダーのGPS 1件。追記のみ、現在地はRecordedAtが最新のもの
type DeliveryTrackingSample struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID    int64     `gorm:"not null;index:idx_tracking_order_recorded,priority:1" json:"order_id"`
	RiderID    int64     `gorm:"not null;index" json:"rider_id"`
	Latitude   float64   `gorm:"not null" json:"latitude"`
	Longitude  float64   `gorm:"not null" json:"longitude"`
	Accuracy   *float64  `json:"accuracy"`
	Speed      *float64  `json:"speed"`
	Heading    *float64  `json:"heading"`
	RecordedAt time.Time `gorm:"not null;index:idx_tracking_order_recorded,priority:2" json:"recorded_at"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
