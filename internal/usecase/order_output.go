package usecase

import (
	"time"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
)

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
	LineTotal string `json:"line_total"`
}

// 金額は小数2桁の文字列で返す
type OrderOutput struct {
	ID               int64             `json:"id"`
	OrderNumber      string            `json:"order_number"`
	BuyerID          int64             `json:"buyer_id"`
	SellerID         int64             `json:"seller_id"`
	RiderID          *int64            `json:"rider_id"`
	Status           string            `json:"status"`
	PaymentStatus    string            `json:"payment_status"`
	PaymentReference *string           `json:"payment_reference"`
	Subtotal         string            `json:"subtotal"`
	CouponCode       *string           `json:"coupon_code"`
	DiscountAmount   string            `json:"discount_amount"`
	DeliveryFee      string            `json:"delivery_fee"`
	ProcessingFee    string            `json:"processing_fee"`
	Total            string            `json:"total"`
	Currency         string            `json:"currency"`
	DeliveryMethod   string            `json:"delivery_method"`
	DeliveryZoneID   *int64            `json:"delivery_zone_id"`
	DeliveryAddress  string            `json:"delivery_address"`
	DeliveryPhone    string            `json:"delivery_phone"`
	Latitude         *float64          `json:"delivery_latitude"`
	Longitude        *float64          `json:"delivery_longitude"`
	QRCode           string            `json:"qr_code"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	DeliveredAt      *time.Time        `json:"delivered_at"`
	Items            []OrderItemOutput `json:"items"`
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			UnitPrice: it.UnitPrice.StringFixed(2),
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal.StringFixed(2),
		})
	}

	return OrderOutput{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		BuyerID:          o.BuyerID,
		SellerID:         o.SellerID,
		RiderID:          o.RiderID,
		Status:           string(o.Status),
		PaymentStatus:    string(o.PaymentStatus),
		PaymentReference: o.PaymentReference,
		Subtotal:         o.Subtotal.StringFixed(2),
		CouponCode:       o.CouponCode,
		DiscountAmount:   o.DiscountAmount.StringFixed(2),
		DeliveryFee:      o.DeliveryFee.StringFixed(2),
		ProcessingFee:    o.ProcessingFee.StringFixed(2),
		Total:            o.Total.StringFixed(2),
		Currency:         o.Currency,
		DeliveryMethod:   string(o.DeliveryMethod),
		DeliveryZoneID:   o.DeliveryZoneID,
		DeliveryAddress:  o.DeliveryAddress,
		DeliveryPhone:    o.DeliveryPhone,
		Latitude:         o.DeliveryLatitude,
		Longitude:        o.DeliveryLongitude,
		QRCode:           o.QRCode,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		DeliveredAt:      o.DeliveredAt,
		Items:            outItems,
	}
}
