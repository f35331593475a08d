package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
	"github.com/Smart3990/Kiyumart-sub000/internal/domain/pricing"
	repo "github.com/Smart3990/Kiyumart-sub000/internal/repository"

	"go.uber.org/zap"
)

const providerPaystack = "paystack"

// verifyの結果。Transactionだけから作るので、同じreferenceなら何度でも同じになる
type PaymentVerdict struct {
	Reference string `json:"reference"`
	Verified  bool   `json:"verified"`
	Status    string `json:"status"`
	OrderID   int64  `json:"order_id"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

func verdictOf(t model.Transaction) PaymentVerdict {
	return PaymentVerdict{
		Reference: t.PaymentReference,
		Verified:  t.Verified(),
		Status:    string(t.Status),
		OrderID:   t.OrderID,
		Amount:    t.Amount.StringFixed(2),
		Currency:  t.Currency,
	}
}

// 挿入でunique違反 = 他のリクエストが先に処理した
var errAlreadyProcessed = errors.New("payment reference already processed")

// 拒否理由（監査・ログ用）
type rejection struct {
	orderID int64
	reason  string
}

// PaymentReconciler は決済referenceを1回だけ処理する。
// 二重処理の防止はtransactions.payment_referenceのunique制約に任せる
type PaymentReconciler struct {
	tx       repo.TransactionManager
	gateway  PaymentGateway
	notifier Notifier
	audit    repo.AuditLogRepository
	clock    Clock
	logger   *zap.Logger
}

func NewPaymentReconciler(
	tx repo.TransactionManager,
	gateway PaymentGateway,
	notifier Notifier,
	audit repo.AuditLogRepository,
	clock Clock,
	logger *zap.Logger,
) *PaymentReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentReconciler{
		tx:       tx,
		gateway:  gateway,
		notifier: notifierOrDefault(notifier),
		audit:    audit,
		clock:    clockOrDefault(clock),
		logger:   logger.Named("reconciler"),
	}
}

func (p *PaymentReconciler) Verify(ctx context.Context, userID int64, reference string) (PaymentVerdict, error) {
	if userID <= 0 {
		return PaymentVerdict{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	reference = strings.TrimSpace(reference)
	if reference == "" || len(reference) > 100 {
		return PaymentVerdict{}, NewHTTPError(http.StatusBadRequest, "invalid reference")
	}

	//1. 処理済みならゲートウェイを呼ばずに同じ結果を返す
	if v, found, err := p.cachedVerdict(ctx, userID, reference); err != nil || found {
		return v, err
	}

	//2. ゲートウェイに確認（失敗はリトライ可能なエラー）
	gv, err := p.gateway.Verify(ctx, reference)
	if err != nil {
		p.logger.Warn("gateway verify failed",
			zap.String("reference", reference),
			zap.Int64("user_id", userID),
			zap.Error(err))
		return PaymentVerdict{}, NewHTTPError(http.StatusBadGateway, "payment gateway unavailable, retry later")
	}

	var (
		verdict  PaymentVerdict
		events   []pendingEvent
		rejected *rejection
	)

	err = p.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		events = nil
		rejected = nil

		//3. メタデータの注文を引く（同じ注文への処理は行ロックで直列化）
		order, err := r.Orders().FindByIDForUpdate(ctx, gv.Metadata.OrderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//4. ゲートウェイの申告ではなく保存済みの注文で照合する
		if order.BuyerID != userID {
			rejected = &rejection{orderID: order.ID, reason: "order does not belong to user"}
			return NewHTTPError(http.StatusForbidden, rejected.reason)
		}
		if order.PaymentReference == nil || *order.PaymentReference != reference ||
			(gv.Reference != "" && gv.Reference != reference) {
			rejected = &rejection{orderID: order.ID, reason: "payment reference does not match order"}
			return NewHTTPError(http.StatusForbidden, rejected.reason)
		}
		//結果待ちは保存しない（後で同じreferenceを確かめ直せる）
		if !gatewaySettled(gv) {
			return NewHTTPError(http.StatusConflict, "payment not completed yet, retry later")
		}
		amount := pricing.FromMinorUnits(gv.AmountMinor)
		if !amount.Equal(order.Total) {
			rejected = &rejection{orderID: order.ID, reason: "amount mismatch"}
			return NewHTTPError(http.StatusConflict, rejected.reason)
		}
		if gv.Currency != order.Currency {
			rejected = &rejection{orderID: order.ID, reason: "currency mismatch"}
			return NewHTTPError(http.StatusConflict, rejected.reason)
		}

		//5. referenceごとに1行だけ
		now := p.clock.Now()
		status := model.TransactionStatusFailed
		if gv.Success {
			status = model.TransactionStatusCompleted
		}
		t := model.Transaction{
			OrderID:          order.ID,
			UserID:           userID,
			Amount:           amount,
			Currency:         gv.Currency,
			Provider:         providerPaystack,
			PaymentReference: reference,
			Status:           status,
			Metadata:         string(gv.Raw),
			CreatedAt:        now,
		}
		if err := r.Transactions().Create(ctx, &t); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return errAlreadyProcessed
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//6. 注文を進める
		patch := model.OrderPatch{UpdatedAt: now}
		statusChanged := false
		if t.Verified() {
			ps := model.PaymentStatusCompleted
			patch.PaymentStatus = &ps
			if order.Status == model.OrderStatusPending {
				st := model.OrderStatusProcessing
				patch.Status = &st
				statusChanged = true
			}
		} else {
			ps := model.PaymentStatusFailed
			patch.PaymentStatus = &ps
		}

		updated, err := r.Orders().Update(ctx, order.ID, patch)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if t.Verified() {
			events = append(events, pendingEvent{
				userID: updated.BuyerID,
				name:   EventPaymentCompleted,
				payload: PaymentCompletedEvent{
					OrderID:       updated.ID,
					OrderNumber:   updated.OrderNumber,
					Amount:        t.Amount.StringFixed(2),
					PaymentMethod: paymentMethod(gv),
				},
			})
			if statusChanged {
				events = append(events, statusEvent(updated))
			}
		} else {
			events = append(events, pendingEvent{
				userID: updated.BuyerID,
				name:   EventPaymentFailed,
				payload: PaymentFailedEvent{
					OrderID:     updated.ID,
					OrderNumber: updated.OrderNumber,
					Reason:      failureReason(gv),
				},
			})
		}

		verdict = verdictOf(t)
		return nil
	})

	switch {
	case err == nil:
		//commit後にだけ送る
		emitAll(p.notifier, events)
		p.logger.Info("payment reconciled",
			zap.String("reference", reference),
			zap.Int64("order_id", verdict.OrderID),
			zap.String("status", verdict.Status))
		return verdict, nil

	case errors.Is(err, errAlreadyProcessed):
		//競合に負けた側は勝った側の結果を読み直す
		v, found, rerr := p.cachedVerdict(ctx, userID, reference)
		if rerr != nil {
			return PaymentVerdict{}, rerr
		}
		if !found {
			return PaymentVerdict{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return v, nil

	case rejected != nil:
		p.reject(ctx, userID, reference, *rejected)
		return PaymentVerdict{}, err
	}
	return PaymentVerdict{}, err
}

// 処理済みのTransactionがあれば、その結果を返す
func (p *PaymentReconciler) cachedVerdict(ctx context.Context, userID int64, reference string) (PaymentVerdict, bool, error) {
	var (
		t     model.Transaction
		found bool
	)
	err := p.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		existing, err := r.Transactions().FindByReference(ctx, reference)
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		t, found = existing, true
		return nil
	})
	if err != nil || !found {
		return PaymentVerdict{}, false, err
	}

	//他人の結果は見せない
	if t.UserID != userID {
		p.reject(ctx, userID, reference, rejection{orderID: t.OrderID, reason: "order does not belong to user"})
		return PaymentVerdict{}, false, NewHTTPError(http.StatusForbidden, "order does not belong to user")
	}
	return verdictOf(t), true, nil
}

// 照合に失敗した検証はWarnで残し、監査にも書く（書けなくても応答は変えない）
func (p *PaymentReconciler) reject(ctx context.Context, userID int64, reference string, rj rejection) {
	p.logger.Warn("payment verification rejected",
		zap.Int64("order_id", rj.orderID),
		zap.Int64("user_id", userID),
		zap.String("reference", reference),
		zap.String("reason", rj.reason))

	if p.audit == nil {
		return
	}
	err := p.audit.Create(ctx, model.AuditLog{
		ActorUserID:  userID,
		Action:       model.AuditActionRejectPayment,
		ResourceType: model.AuditResourcePayment,
		ResourceID:   rj.orderID,
		AfterJSON:    auditJSON(map[string]string{"reference": reference, "reason": rj.reason}),
		CreatedAt:    p.clock.Now(),
	})
	if err != nil {
		p.logger.Error("audit log write failed", zap.String("reference", reference), zap.Error(err))
	}
}

func paymentMethod(gv GatewayVerification) string {
	if gv.Channel != "" {
		return gv.Channel
	}
	return providerPaystack
}

// Paystackでまだ決着していない状態
var pendingGatewayStatuses = map[string]bool{
	"abandoned":  true,
	"ongoing":    true,
	"pending":    true,
	"processing": true,
	"queued":     true,
}

func gatewaySettled(gv GatewayVerification) bool {
	if gv.Success {
		return true
	}
	return !pendingGatewayStatuses[strings.ToLower(strings.TrimSpace(gv.Status))]
}

func failureReason(gv GatewayVerification) string {
	if gv.GatewayResponse != "" {
		return gv.GatewayResponse
	}
	if gv.Status != "" {
		return "payment " + gv.Status
	}
	return "payment failed"
}
