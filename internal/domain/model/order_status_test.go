package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusDelivering, false},
		{OrderStatusProcessing, OrderStatusDelivering, true},
		{OrderStatusProcessing, OrderStatusCancelled, true},
		{OrderStatusDelivering, OrderStatusDelivered, true},
		{OrderStatusDelivering, OrderStatusCancelled, false},
		{OrderStatusDelivering, OrderStatusDisputed, true},
		{OrderStatusDelivered, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusProcessing, false},
		{OrderStatusDisputed, OrderStatusDelivered, false},
		{OrderStatus("bogus"), OrderStatusPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestStockChange(t *testing.T) {
	tests := []struct {
		held      bool
		to        OrderStatus
		wantDelta int
		wantHeld  bool
	}{
		{true, OrderStatusCancelled, 1, false},
		{false, OrderStatusCancelled, 0, false},
		{true, OrderStatusDelivered, 0, false},
		{false, OrderStatusDelivered, 0, false},
		{false, OrderStatusPending, -1, true},
		{false, OrderStatusProcessing, -1, true},
		{false, OrderStatusDelivering, -1, true},
		{true, OrderStatusProcessing, 0, true},
		{true, OrderStatusDisputed, 0, true},
		{false, OrderStatusDisputed, 0, false},
	}
	for _, tt := range tests {
		delta, held := StockChange(tt.held, tt.to)
		assert.Equal(t, tt.wantDelta, delta, "held=%v -> %s", tt.held, tt.to)
		assert.Equal(t, tt.wantHeld, held, "held=%v -> %s", tt.held, tt.to)
	}

	// delivered -> disputed -> pending -> cancelled でも差し引きゼロ
	held, total := true, 0
	for _, to := range []OrderStatus{OrderStatusDelivered, OrderStatusDisputed, OrderStatusPending, OrderStatusCancelled} {
		var d int
		d, held = StockChange(held, to)
		total += d
	}
	assert.Equal(t, 0, total)
	assert.False(t, held)
}

func TestOrderApply(t *testing.T) {
	o := Order{Status: OrderStatusPending, PaymentStatus: PaymentStatusPending}
	now := time.Now()
	st := OrderStatusDelivered
	rider := int64(5)

	held := false
	o.Apply(OrderPatch{Status: &st, RiderID: &rider, DeliveredAt: &now, StockHeld: &held, UpdatedAt: now})

	assert.Equal(t, OrderStatusDelivered, o.Status)
	assert.Equal(t, PaymentStatusPending, o.PaymentStatus)
	assert.Equal(t, int64(5), *o.RiderID)
	assert.Equal(t, now, *o.DeliveredAt)
	assert.Equal(t, now, o.UpdatedAt)
	assert.False(t, o.StockHeld)

	// パッチ側のポインタを書き換えても注文には影響しない
	rider = 9
	assert.Equal(t, int64(5), *o.RiderID)
}
