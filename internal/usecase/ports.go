package usecase

import (
	"context"
	"time"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
)

type Clock interface {
	Now() time.Time
}

// 注文番号の採番
type OrderNumberGenerator interface {
	NewOrderNumber(now time.Time) string
}

// ユーザー単位のチャネルへ送る（ブロードキャストはしない）
type Notifier interface {
	Emit(userID int64, event string, payload any)
}

// 現在地キャッシュ。nilなら使わない
type LocationCache interface {
	Latest(ctx context.Context, orderID int64) (model.DeliveryTrackingSample, bool, error)
	// RecordedAtが新しいときだけ上書き
	Offer(ctx context.Context, sample model.DeliveryTrackingSample) error
}

// 決済プロバイダ。金額は最小単位の整数
type PaymentGateway interface {
	Configured() bool
	Initialize(ctx context.Context, req PaymentInitRequest) (PaymentInitResult, error)
	Verify(ctx context.Context, reference string) (GatewayVerification, error)
}

// 決済メタデータ。verifyで返ってきたものは信用せず、注文と照合する
type PaymentMetadata struct {
	OrderID     int64
	UserID      int64
	OrderNumber string
}

type PaymentInitRequest struct {
	Email       string
	AmountMinor int64
	Currency    string
	Metadata    PaymentMetadata
}

type PaymentInitResult struct {
	Reference        string
	AuthorizationURL string
	AccessCode       string
}

type GatewayVerification struct {
	Reference       string
	Success         bool
	Status          string
	AmountMinor     int64
	Currency        string
	Channel         string
	GatewayResponse string
	Metadata        PaymentMetadata
	// プロバイダの生レスポンス
	Raw []byte
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// nilを渡されたときの既定
func clockOrDefault(c Clock) Clock {
	if c == nil {
		return realClock{}
	}
	return c
}

type noopNotifier struct{}

func (noopNotifier) Emit(int64, string, any) {}

func notifierOrDefault(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
