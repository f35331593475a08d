package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

type DeliveryMethod string

const (
	DeliveryMethodPickup DeliveryMethod = "pickup"
	DeliveryMethodBus    DeliveryMethod = "bus-delivery"
	DeliveryMethodRider  DeliveryMethod = "rider-delivery"
)

// ゾーン（配送料）が必要な配送方法か
func (m DeliveryMethod) RequiresZone() bool {
	return m == DeliveryMethodBus || m == DeliveryMethodRider
}

func (m DeliveryMethod) Valid() bool {
	switch m {
	case DeliveryMethodPickup, DeliveryMethodBus, DeliveryMethodRider:
		return true
	}
	return false
}

// 1購入者 × 1販売者の注文。物理削除はしない（監査用に残す）
type Order struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber string `gorm:"type:varchar(40);not null;uniqueIndex" json:"order_number"`

	BuyerID  int64  `gorm:"not null;index" json:"buyer_id"`
	SellerID int64  `gorm:"not null;index" json:"seller_id"`
	RiderID  *int64 `gorm:"index" json:"rider_id"`

	Subtotal       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	CouponCode     *string         `gorm:"type:varchar(64)" json:"coupon_code"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount_amount"`
	DeliveryFee    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"delivery_fee"`
	ProcessingFee  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"processing_fee"`
	Total          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	Currency       string          `gorm:"type:varchar(3);not null" json:"currency"`

	DeliveryMethod    DeliveryMethod `gorm:"type:varchar(20);not null" json:"delivery_method"`
	DeliveryZoneID    *int64         `json:"delivery_zone_id"`
	DeliveryAddress   string         `gorm:"type:varchar(500)" json:"delivery_address"`
	DeliveryPhone     string         `gorm:"type:varchar(30)" json:"delivery_phone"`
	DeliveryLatitude  *float64       `json:"delivery_latitude"`
	DeliveryLongitude *float64       `json:"delivery_longitude"`

	// 受け取り時に照合するQRの中身（order_number + buyer_id）
	QRCode string `gorm:"type:text;not null" json:"qr_code"`

	Status           OrderStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentStatus    PaymentStatus `gorm:"type:varchar(20);not null;index" json:"payment_status"`
	PaymentReference *string       `gorm:"type:varchar(100);uniqueIndex" json:"payment_reference"`

	// 注文数ぶんの在庫を押さえているか（作成時true、キャンセル・配達完了でfalse）
	StockHeld bool `gorm:"not null;default:true" json:"-"`

	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
}

// 注文の部分更新。nilの項目は触らない
type OrderPatch struct {
	Status           *OrderStatus
	PaymentStatus    *PaymentStatus
	PaymentReference *string
	RiderID          *int64
	DeliveredAt      *time.Time
	StockHeld        *bool
	UpdatedAt        time.Time
}

// パッチを注文に当てる（メモリ実装とテストで使う）
func (o *Order) Apply(p OrderPatch) {
	if p.Status != nil {
		o.Status = *p.Status
	}
	if p.PaymentStatus != nil {
		o.PaymentStatus = *p.PaymentStatus
	}
	if p.PaymentReference != nil {
		ref := *p.PaymentReference
		o.PaymentReference = &ref
	}
	if p.RiderID != nil {
		id := *p.RiderID
		o.RiderID = &id
	}
	if p.DeliveredAt != nil {
		t := *p.DeliveredAt
		o.DeliveredAt = &t
	}
	if p.StockHeld != nil {
		o.StockHeld = *p.StockHeld
	}
	if !p.UpdatedAt.IsZero() {
		o.UpdatedAt = p.UpdatedAt
	}
}

// 注文の当事者か（購入者・販売者・担当ライダー）
func (o Order) IsParty(userID int64) bool {
	if userID <= 0 {
		return false
	}
	if o.BuyerID == userID || o.SellerID == userID {
		return true
	}
	return o.RiderID != nil && *o.RiderID == userID
}
