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

type PaymentUsecase struct {
	tx         repo.TransactionManager
	gateway    PaymentGateway
	reconciler *PaymentReconciler
	clock      Clock
	logger     *zap.Logger
}

func NewPaymentUsecase(tx repo.TransactionManager, gateway PaymentGateway, reconciler *PaymentReconciler, clock Clock, logger *zap.Logger) *PaymentUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentUsecase{
		tx:         tx,
		gateway:    gateway,
		reconciler: reconciler,
		clock:      clockOrDefault(clock),
		logger:     logger.Named("payment"),
	}
}

type PaymentInitOutput struct {
	OrderID          int64  `json:"order_id"`
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code,omitempty"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
}

// Initialize はゲートウェイで決済を開始し、referenceを注文に保存する
func (u *PaymentUsecase) Initialize(ctx context.Context, userID int64, orderID int64) (PaymentInitOutput, error) {
	if userID <= 0 {
		return PaymentInitOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return PaymentInitOutput{}, NewHTTPError(http.StatusBadRequest, "invalid order_id")
	}
	if u.gateway == nil || !u.gateway.Configured() {
		return PaymentInitOutput{}, NewHTTPError(http.StatusBadRequest, "payment gateway not configured")
	}

	var (
		order model.Order
		buyer model.User
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := checkPayable(o, userID); err != nil {
			return err
		}

		b, err := r.Users().FindByID(ctx, o.BuyerID)
		if errors.Is(err, repo.ErrNotFound) || (err == nil && strings.TrimSpace(b.Email) == "") {
			return NewHTTPError(http.StatusBadRequest, "buyer email required for payment")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		order, buyer = o, b
		return nil
	})
	if err != nil {
		return PaymentInitOutput{}, err
	}

	//外部呼び出しはトランザクションの外
	res, err := u.gateway.Initialize(ctx, PaymentInitRequest{
		Email:       buyer.Email,
		AmountMinor: pricing.ToMinorUnits(order.Total),
		Currency:    order.Currency,
		Metadata: PaymentMetadata{
			OrderID:     order.ID,
			UserID:      userID,
			OrderNumber: order.OrderNumber,
		},
	})
	if err != nil {
		u.logger.Warn("gateway initialize failed",
			zap.Int64("order_id", order.ID),
			zap.Int64("user_id", userID),
			zap.Error(err))
		return PaymentInitOutput{}, NewHTTPError(http.StatusBadGateway, "payment gateway unavailable, retry later")
	}
	if strings.TrimSpace(res.Reference) == "" {
		return PaymentInitOutput{}, NewHTTPError(http.StatusBadGateway, "payment gateway returned no reference")
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//待っている間に支払い済みになっていないか
		o, err := r.Orders().FindByIDForUpdate(ctx, order.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := checkPayable(o, userID); err != nil {
			return err
		}

		ps := model.PaymentStatusProcessing
		ref := res.Reference
		if _, err := r.Orders().Update(ctx, o.ID, model.OrderPatch{
			PaymentStatus:    &ps,
			PaymentReference: &ref,
			UpdatedAt:        u.clock.Now(),
		}); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return NewHTTPError(http.StatusBadGateway, "payment reference already in use")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return PaymentInitOutput{}, err
	}

	u.logger.Info("payment initialized",
		zap.Int64("order_id", order.ID),
		zap.String("reference", res.Reference))

	return PaymentInitOutput{
		OrderID:          order.ID,
		Reference:        res.Reference,
		AuthorizationURL: res.AuthorizationURL,
		AccessCode:       res.AccessCode,
		Amount:           order.Total.StringFixed(2),
		Currency:         order.Currency,
	}, nil
}

// Verify は照合エンジンに任せる
func (u *PaymentUsecase) Verify(ctx context.Context, userID int64, reference string) (PaymentVerdict, error) {
	return u.reconciler.Verify(ctx, userID, reference)
}

func checkPayable(o model.Order, userID int64) error {
	if o.BuyerID != userID {
		return NewHTTPError(http.StatusForbidden, "order does not belong to user")
	}
	if o.PaymentStatus == model.PaymentStatusCompleted {
		return NewHTTPError(http.StatusBadRequest, "order already paid")
	}
	if o.Status == model.OrderStatusCancelled {
		return NewHTTPError(http.StatusBadRequest, "order is cancelled")
	}
	return nil
}
