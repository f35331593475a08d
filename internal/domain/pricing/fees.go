package pricing

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// 注文明細1行分（カートから作る）
type Line struct {
	Quantity  int64
	UnitPrice decimal.Decimal
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity)).Round(2)
}

// 注文金額の内訳。すべて小数2桁
type Breakdown struct {
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	DeliveryFee   decimal.Decimal
	ProcessingFee decimal.Decimal
	Total         decimal.Decimal
}

// Subtotal は明細の合計。
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Total())
	}
	return sum.Round(2)
}

// ProcessingFee は (小計 - 割引 + 配送料) × percent / 100 を2桁に丸めたもの（0.5は切り上げ側）。
func ProcessingFee(subtotal, discount, deliveryFee, percent decimal.Decimal) decimal.Decimal {
	base := subtotal.Sub(discount).Add(deliveryFee)
	if base.IsNegative() {
		return decimal.Zero
	}
	return base.Mul(percent).Div(hundred).Round(2)
}

// Compute はサーバー側で合計を組み立てる。クライアントの合計は使わない
func Compute(lines []Line, discount, deliveryFee, feePercent decimal.Decimal) Breakdown {
	subtotal := Subtotal(lines)
	discount = discount.Round(2)
	deliveryFee = deliveryFee.Round(2)
	fee := ProcessingFee(subtotal, discount, deliveryFee, feePercent)

	return Breakdown{
		Subtotal:      subtotal,
		Discount:      discount,
		DeliveryFee:   deliveryFee,
		ProcessingFee: fee,
		Total:         subtotal.Sub(discount).Add(deliveryFee).Add(fee).Round(2),
	}
}

// ToMinorUnits は決済ゲートウェイ向けの整数（セント等）に変換する。
// 2桁に丸めてからシフトするので、元帳の値と必ず一致する
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}

// FromMinorUnits はゲートウェイの整数額を元帳の10進に戻す
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
