package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
	"github.com/Smart3990/Kiyumart-sub000/internal/domain/policy"
	repo "github.com/Smart3990/Kiyumart-sub000/internal/repository"
)

// OrderStatusUsecase は注文ステータスの遷移をまとめる。
// strict=false のときは呼び出し側の指定をそのまま保存する
type OrderStatusUsecase struct {
	tx       repo.TransactionManager
	audit    repo.AuditLogRepository
	notifier Notifier
	clock    Clock
	strict   bool
}

func NewOrderStatusUsecase(tx repo.TransactionManager, audit repo.AuditLogRepository, notifier Notifier, clock Clock, strict bool) *OrderStatusUsecase {
	return &OrderStatusUsecase{
		tx:       tx,
		audit:    audit,
		notifier: notifierOrDefault(notifier),
		clock:    clockOrDefault(clock),
		strict:   strict,
	}
}

type UpdateOrderStatusInput struct {
	Status string
}

// 1回の遷移の中身
type transition struct {
	action model.AuditAction
	patch  model.OrderPatch
}

// ステータス更新（販売者は自分の注文、管理者は全部）
func (u *OrderStatusUsecase) UpdateStatus(ctx context.Context, actor policy.Actor, orderID int64, in UpdateOrderStatusInput) (OrderOutput, error) {
	to := model.OrderStatus(strings.TrimSpace(in.Status))
	if !to.Valid() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	return u.apply(ctx, actor, orderID, policy.CapUpdateOrderStatus, func(o model.Order) (*transition, error) {
		// すでに同じなら何もしない
		if o.Status == to {
			return nil, nil
		}
		if err := u.checkTransition(o.Status, to); err != nil {
			return nil, err
		}

		t := &transition{
			action: model.AuditActionUpdateOrderStatus,
			patch:  model.OrderPatch{Status: &to},
		}
		if to == model.OrderStatusDelivered {
			now := u.clock.Now()
			t.patch.DeliveredAt = &now
		}
		return t, nil
	})
}

type AssignRiderInput struct {
	RiderID int64
}

// ライダー割り当て。pendingならprocessingに進める
func (u *OrderStatusUsecase) AssignRider(ctx context.Context, actor policy.Actor, orderID int64, in AssignRiderInput) (OrderOutput, error) {
	if in.RiderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid rider_id")
	}

	return u.apply(ctx, actor, orderID, policy.CapAssignRider, func(o model.Order) (*transition, error) {
		if o.Status.Terminal() {
			return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("cannot assign rider to %s order", o.Status))
		}

		riderID := in.RiderID
		t := &transition{
			action: model.AuditActionAssignRider,
			patch:  model.OrderPatch{RiderID: &riderID},
		}
		if o.Status == model.OrderStatusPending {
			st := model.OrderStatusProcessing
			t.patch.Status = &st
		}
		return t, nil
	}, u.requireRider(in.RiderID))
}

// 配達完了。deliveredAtを刻む
func (u *OrderStatusUsecase) ConfirmDelivery(ctx context.Context, actor policy.Actor, orderID int64) (OrderOutput, error) {
	return u.apply(ctx, actor, orderID, policy.CapConfirmDelivery, func(o model.Order) (*transition, error) {
		if o.Status.Terminal() {
			return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("cannot confirm delivery of %s order", o.Status))
		}
		if err := u.checkTransition(o.Status, model.OrderStatusDelivered); err != nil {
			return nil, err
		}

		st := model.OrderStatusDelivered
		now := u.clock.Now()
		return &transition{
			action: model.AuditActionConfirmDelivery,
			patch:  model.OrderPatch{Status: &st, DeliveredAt: &now},
		}, nil
	})
}

// キャンセル。購入者はpendingだけ、販売者・管理者はprocessingまで
func (u *OrderStatusUsecase) Cancel(ctx context.Context, actor policy.Actor, orderID int64) (OrderOutput, error) {
	return u.apply(ctx, actor, orderID, policy.CapCancelOrder, func(o model.Order) (*transition, error) {
		allowed := o.Status == model.OrderStatusPending
		if actor.Role != model.RoleBuyer {
			allowed = allowed || o.Status == model.OrderStatusProcessing
		}
		if !allowed {
			return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("cannot cancel %s order", o.Status))
		}

		st := model.OrderStatusCancelled
		return &transition{
			action: model.AuditActionCancelOrder,
			patch:  model.OrderPatch{Status: &st},
		}, nil
	})
}

func (u *OrderStatusUsecase) checkTransition(from, to model.OrderStatus) error {
	if u.strict && !model.CanTransition(from, to) {
		return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("illegal transition from %s to %s", from, to))
	}
	return nil
}

// 割り当て先がライダーか
func (u *OrderStatusUsecase) requireRider(riderID int64) func(r repo.TxRepos, ctx context.Context) error {
	return func(r repo.TxRepos, ctx context.Context) error {
		rider, err := r.Users().FindByID(ctx, riderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusBadRequest, "invalid rider_id")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if rider.Role != model.RoleRider || !rider.IsActive {
			return NewHTTPError(http.StatusBadRequest, "invalid rider_id")
		}
		return nil
	}
}

// 行ロック→権限→遷移→在庫→更新→監査までを1トランザクションで行い、
// commit後に購入者へ通知する
func (u *OrderStatusUsecase) apply(
	ctx context.Context,
	actor policy.Actor,
	orderID int64,
	capability policy.Capability,
	decide func(o model.Order) (*transition, error),
	prechecks ...func(r repo.TxRepos, ctx context.Context) error,
) (OrderOutput, error) {
	if actor.UserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var (
		out     OrderOutput
		updated model.Order
		changed bool
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		changed = false

		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !policy.CanViewOrder(actor, o) && !policy.CanActOnOrder(actor, capability, o) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if !policy.CanActOnOrder(actor, capability, o) {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}

		for _, check := range prechecks {
			if err := check(r, ctx); err != nil {
				return err
			}
		}

		t, err := decide(o)
		if err != nil {
			return err
		}

		updated = o
		if t != nil {
			if t.patch.Status != nil && *t.patch.Status != o.Status {
				delta, held := model.StockChange(o.StockHeld, *t.patch.Status)
				if err := moveStock(ctx, r, orderID, delta); err != nil {
					return err
				}
				if held != o.StockHeld {
					t.patch.StockHeld = &held
				}
			}

			t.patch.UpdatedAt = u.clock.Now()
			updated, err = r.Orders().Update(ctx, orderID, t.patch)
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			//監査ログが書けなければ遷移もしない
			if audit := auditWithin(r, u.audit); audit != nil {
				if err := audit.Create(ctx, model.AuditLog{
					ActorUserID:  actor.UserID,
					Action:       t.action,
					ResourceType: model.AuditResourceOrder,
					ResourceID:   orderID,
					BeforeJSON:   auditJSON(orderState(o)),
					AfterJSON:    auditJSON(orderState(updated)),
					CreatedAt:    t.patch.UpdatedAt,
				}); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}
			changed = true
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = toOrderOutput(updated, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	if changed {
		emitAll(u.notifier, []pendingEvent{statusEvent(updated)})
	}
	return out, nil
}

// +1で注文数を戻し、-1で押さえ直す
func moveStock(ctx context.Context, r repo.TxRepos, orderID int64, movement int) error {
	if movement == 0 {
		return nil
	}
	items, err := r.OrderItems().ListByOrderID(ctx, orderID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	for _, it := range items {
		if movement > 0 {
			if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil && !errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			continue
		}
		ok, err := r.Inventory().DecreaseStockIfEnough(ctx, it.ProductID, it.Quantity)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !ok {
			return NewHTTPError(http.StatusConflict, "out of stock")
		}
	}
	return nil
}

// 監査ログに残す項目
type auditOrderState struct {
	Status        model.OrderStatus   `json:"status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	RiderID       *int64              `json:"rider_id"`
}

func orderState(o model.Order) auditOrderState {
	return auditOrderState{Status: o.Status, PaymentStatus: o.PaymentStatus, RiderID: o.RiderID}
}
