package model

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusDelivering OrderStatus = "delivering"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusDisputed   OrderStatus = "disputed"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusDelivering,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusDisputed:
		return true
	}
	return false
}

// 終端（delivered / cancelled / disputed）
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusDisputed
}

// 正規の遷移表。disputedは非終端からならどこからでも入れる
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusDelivering, OrderStatusCancelled},
	OrderStatusDelivering: {OrderStatusDelivered},
}

// from -> to が遷移表どおりか
func CanTransition(from, to OrderStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from.Terminal() {
		return false
	}
	if to == OrderStatusDisputed {
		return true
	}
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// 手渡し前の状態。ここへ移るときは在庫を押さえている必要がある
func (s OrderStatus) holdsStock() bool {
	return s == OrderStatusPending || s == OrderStatusProcessing || s == OrderStatusDelivering
}

// StockChange は to へ移るときの在庫の増減（+1: 戻す / -1: 押さえ直す）と、
// 移動後に在庫を押さえているかを返す。
// 配達済みの品は戻さない。disputedは押さえ状態を変えない
func StockChange(held bool, to OrderStatus) (delta int, heldAfter bool) {
	switch {
	case to == OrderStatusCancelled:
		if held {
			return 1, false
		}
		return 0, false
	case to == OrderStatusDelivered:
		return 0, false
	case !held && to.holdsStock():
		return -1, true
	}
	return 0, held
}
