package usecase

import (
	"time"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
)

const (
	EventOrderStatusUpdated   = "order_status_updated"
	EventPaymentCompleted     = "payment_completed"
	EventPaymentFailed        = "payment_failed"
	EventRiderLocationUpdated = "rider_location_updated"
)

type OrderStatusUpdatedEvent struct {
	OrderID     int64     `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	Status      string    `json:"status"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type PaymentCompletedEvent struct {
	OrderID       int64  `json:"orderId"`
	OrderNumber   string `json:"orderNumber"`
	Amount        string `json:"amount"`
	PaymentMethod string `json:"paymentMethod"`
}

type PaymentFailedEvent struct {
	OrderID     int64  `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	Reason      string `json:"reason"`
}

type RiderLocationUpdatedEvent struct {
	OrderID     int64     `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Timestamp   time.Time `json:"timestamp"`
}

// commit後にまとめて送るための1件
type pendingEvent struct {
	userID  int64
	name    string
	payload any
}

func emitAll(n Notifier, events []pendingEvent) {
	for _, e := range events {
		n.Emit(e.userID, e.name, e.payload)
	}
}

func statusEvent(o model.Order) pendingEvent {
	return pendingEvent{
		userID: o.BuyerID,
		name:   EventOrderStatusUpdated,
		payload: OrderStatusUpdatedEvent{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			Status:      string(o.Status),
			UpdatedAt:   o.UpdatedAt,
		},
	}
}
