package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
	"github.com/Smart3990/Kiyumart-sub000/internal/domain/policy"
	"github.com/Smart3990/Kiyumart-sub000/internal/domain/pricing"
	repo "github.com/Smart3990/Kiyumart-sub000/internal/repository"

	"github.com/shopspring/decimal"
)

type OrderSettings struct {
	Currency             string
	ProcessingFeePercent decimal.Decimal
}

type OrderUsecase struct {
	tx       repo.TransactionManager
	numbers  OrderNumberGenerator
	clock    Clock
	settings OrderSettings
}

func NewOrderUsecase(tx repo.TransactionManager, numbers OrderNumberGenerator, clock Clock, settings OrderSettings) *OrderUsecase {
	return &OrderUsecase{tx: tx, numbers: numbers, clock: clockOrDefault(clock), settings: settings}
}

type PlaceOrderInput struct {
	SellerID        int64
	DeliveryMethod  string
	DeliveryZoneID  *int64
	DeliveryAddress string
	DeliveryPhone   string
	Latitude        *float64
	Longitude       *float64
	CouponCode      string
}

// 受け取り時に読むQRの中身
type qrPayload struct {
	OrderNumber string `json:"orderNumber"`
	BuyerID     int64  `json:"buyerId"`
}

// カートのうちsellerIDの商品だけで注文を作る。
// 注文・明細・クーポン使用回数・在庫・カート削除は1トランザクション
func (u *OrderUsecase) PlaceOrder(ctx context.Context, buyerID int64, in PlaceOrderInput) (OrderOutput, error) {
	if buyerID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.SellerID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid seller_id")
	}
	method := model.DeliveryMethod(strings.TrimSpace(in.DeliveryMethod))
	if !method.Valid() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid delivery_method")
	}
	if method.RequiresZone() && (in.DeliveryZoneID == nil || *in.DeliveryZoneID <= 0) {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "delivery zone required")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//ACTIVEカート取得
		cart, err := r.Carts().FindActiveByUserID(ctx, buyerID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusBadRequest, "cart empty")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//この販売者の明細だけ拾う。販売者の商品が非公開なら中止
		var (
			lines     []pricing.Line
			items     []model.OrderItem
			consumed  []int64
			stockPlan []model.CartItem
		)
		for _, ci := range cartItems {
			p, err := r.Products().FindByID(ctx, ci.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				//削除済みの商品はどの販売者の注文にも入らない（カートには残す）
				continue
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if p.SellerID != in.SellerID {
				continue
			}
			if !p.IsActive {
				return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("product %d is no longer available", ci.ProductID))
			}

			line := pricing.Line{Quantity: ci.Quantity, UnitPrice: ci.UnitPriceSnapshot}
			lines = append(lines, line)
			items = append(items, model.OrderItem{
				ProductID:           ci.ProductID,
				ProductNameSnapshot: p.Name,
				Quantity:            ci.Quantity,
				UnitPrice:           ci.UnitPriceSnapshot.Round(2),
				LineTotal:           line.Total(),
			})
			consumed = append(consumed, ci.ID)
			stockPlan = append(stockPlan, ci)
		}
		if len(lines) == 0 {
			return NewHTTPError(http.StatusBadRequest, "cart has no items for this seller")
		}

		subtotal := pricing.Subtotal(lines)
		now := u.clock.Now()

		//クーポン（失敗したら何も書かない）
		discount := decimal.Zero
		var coupon *model.Coupon
		var couponCode *string
		if code := pricing.NormalizeCouponCode(in.CouponCode); code != "" {
			c, err := r.Coupons().FindByCode(ctx, code)
			if err != nil && !errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if err == nil {
				coupon = &c
			}
			res := pricing.EvaluateCoupon(coupon, in.SellerID, subtotal, now)
			if !res.Valid {
				return NewHTTPError(http.StatusBadRequest, res.Reason)
			}
			discount = res.Discount
			couponCode = &code
		}

		//配送料
		deliveryFee := decimal.Zero
		var zoneID *int64
		if method.RequiresZone() {
			z, err := r.DeliveryZones().FindByID(ctx, *in.DeliveryZoneID)
			if errors.Is(err, repo.ErrNotFound) || (err == nil && !z.IsActive) {
				return NewHTTPError(http.StatusBadRequest, "invalid delivery zone")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			deliveryFee = z.Fee
			id := z.ID
			zoneID = &id
		}

		b := pricing.Compute(lines, discount, deliveryFee, u.settings.ProcessingFeePercent)

		//ここから書き込み
		for _, ci := range stockPlan {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, ci.ProductID, ci.Quantity)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusBadRequest, "out of stock")
			}
		}

		number := u.numbers.NewOrderNumber(now)
		qr, err := json.Marshal(qrPayload{OrderNumber: number, BuyerID: buyerID})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "internal error")
		}

		order := model.Order{
			OrderNumber:       number,
			BuyerID:           buyerID,
			SellerID:          in.SellerID,
			Subtotal:          b.Subtotal,
			CouponCode:        couponCode,
			DiscountAmount:    b.Discount,
			DeliveryFee:       b.DeliveryFee,
			ProcessingFee:     b.ProcessingFee,
			Total:             b.Total,
			Currency:          u.settings.Currency,
			DeliveryMethod:    method,
			DeliveryZoneID:    zoneID,
			DeliveryAddress:   strings.TrimSpace(in.DeliveryAddress),
			DeliveryPhone:     strings.TrimSpace(in.DeliveryPhone),
			DeliveryLatitude:  in.Latitude,
			DeliveryLongitude: in.Longitude,
			QRCode:            string(qr),
			Status:            model.OrderStatusPending,
			PaymentStatus:     model.PaymentStatusPending,
			StockHeld:         true,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := r.Orders().Create(ctx, &order); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return NewHTTPError(http.StatusConflict, "order number conflict, retry")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		for i := range items {
			items[i].CreatedAt = now
		}
		if err := r.OrderItems().CreateBulk(ctx, order.ID, items); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//使用回数は注文と同じトランザクションで+1
		if coupon != nil {
			ok, err := r.Coupons().IncrementUsageIfAvailable(ctx, coupon.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusBadRequest, pricing.ReasonUsageLimit)
			}
		}

		//注文にした明細だけカートから消す
		if err := r.CartItems().DeleteByIDs(ctx, consumed); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(order, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// ロールごとに自分の注文を返す（購入者は購入、販売者は販売、ライダーは担当）
func (u *OrderUsecase) ListMyOrders(ctx context.Context, actor policy.Actor, page int, limit int) (OrderListOutput, error) {
	if actor.UserID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	f := repo.OrderListFilter{Page: page, Limit: limit}
	id := actor.UserID
	switch actor.Role {
	case model.RoleSeller:
		f.SellerID = &id
	case model.RoleRider:
		f.RiderID = &id
	default:
		f.BuyerID = &id
	}
	return u.list(ctx, f)
}

// 管理者向け一覧
func (u *OrderUsecase) ListAdmin(ctx context.Context, actor policy.Actor, f repo.OrderListFilter) (OrderListOutput, error) {
	if !policy.Can(actor.Role, policy.CapViewAllOrders) {
		return OrderListOutput{}, NewHTTPError(http.StatusForbidden, "admin only")
	}
	if f.Status != "" && !model.OrderStatus(f.Status).Valid() {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	return u.list(ctx, f)
}

func (u *OrderUsecase) list(ctx context.Context, f repo.OrderListFilter) (OrderListOutput, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	out := OrderListOutput{Items: []OrderOutput{}, Page: f.Page, Limit: f.Limit}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().List(ctx, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out.Total = total

		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			out.Items = append(out.Items, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) GetOrderDetail(ctx context.Context, actor policy.Actor, orderID int64) (OrderOutput, error) {
	if actor.UserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !policy.CanViewOrder(actor, o) {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}
