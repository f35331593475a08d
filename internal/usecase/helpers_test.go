package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
	"github.com/Smart3990/Kiyumart-sub000/internal/domain/policy"
	"github.com/Smart3990/Kiyumart-sub000/internal/infra/memory"
	repo "github.com/Smart3990/Kiyumart-sub000/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// 時計・採番・通知
// =====================

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type seqNumbers struct {
	mu sync.Mutex
	n  int
}

func (g *seqNumbers) NewOrderNumber(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("KM-TEST-%04d", g.n)
}

type sentEvent struct {
	UserID  int64
	Name    string
	Payload any
}

// 送ったイベントを記録するだけ
type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (n *recordingNotifier) Emit(userID int64, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{UserID: userID, Name: event, Payload: payload})
}

func (n *recordingNotifier) named(name string) []sentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentEvent
	for _, e := range n.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

// =====================
// PaymentGateway mock
// =====================

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) Configured() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *GatewayMock) Initialize(ctx context.Context, req PaymentInitRequest) (PaymentInitResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(PaymentInitResult)
	return res, args.Error(1)
}

func (m *GatewayMock) Verify(ctx context.Context, reference string) (GatewayVerification, error) {
	args := m.Called(ctx, reference)
	res, _ := args.Get(0).(GatewayVerification)
	return res, args.Error(1)
}

// =====================
// fixture
// =====================

type fixture struct {
	store    *memory.Store
	notifier *recordingNotifier
	clock    fixedClock

	buyer  model.User
	other  model.User
	seller model.User
	rider  model.User
	admin  model.User

	// sellerの商品（50.00, 在庫10）
	product model.Product
	zone    model.DeliveryZone

	orders  *OrderUsecase
	carts   *CartUsecase
	status  *OrderStatusUsecase
	payment *PaymentUsecase
	gateway *GatewayMock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s := memory.NewStore()
	f := &fixture{
		store:    s,
		notifier: &recordingNotifier{},
		clock:    fixedClock{t: testNow},
		gateway:  &GatewayMock{},
	}

	f.buyer = s.SeedUser(model.User{Email: "buyer@example.com", Role: model.RoleBuyer, IsActive: true})
	f.other = s.SeedUser(model.User{Email: "other@example.com", Role: model.RoleBuyer, IsActive: true})
	f.seller = s.SeedUser(model.User{Email: "seller@example.com", Role: model.RoleSeller, IsActive: true})
	f.rider = s.SeedUser(model.User{Email: "rider@example.com", Role: model.RoleRider, IsActive: true})
	f.admin = s.SeedUser(model.User{Email: "admin@example.com", Role: model.RoleAdmin, IsActive: true})

	f.product = s.SeedProduct(model.Product{
		SellerID: f.seller.ID,
		Name:     "Kente scarf",
		Price:    decimal.RequireFromString("50.00"),
		Stock:    10,
		IsActive: true,
	})
	f.zone = s.SeedZone(model.DeliveryZone{Name: "Accra Central", Fee: decimal.RequireFromString("10.00"), IsActive: true})

	f.orders = NewOrderUsecase(s, &seqNumbers{}, f.clock, OrderSettings{
		Currency:             "GHS",
		ProcessingFeePercent: decimal.RequireFromString("1.95"),
	})
	f.carts = NewCartUsecase(s)
	f.status = NewOrderStatusUsecase(s, s.AuditLogs(), f.notifier, f.clock, false)

	reconciler := NewPaymentReconciler(s, f.gateway, f.notifier, s.AuditLogs(), f.clock, nil)
	f.payment = NewPaymentUsecase(s, f.gateway, reconciler, f.clock, nil)
	return f
}

func (f *fixture) actor(u model.User) policy.Actor {
	return policy.Actor{UserID: u.ID, Role: u.Role}
}

func (f *fixture) addToCart(t *testing.T, userID, productID, qty int64) {
	t.Helper()
	_, err := f.carts.AddToCart(context.Background(), userID, AddCartInput{ProductID: productID, Quantity: qty})
	require.NoError(t, err)
}

// 50.00 × 1 の受け取り注文を作る
func (f *fixture) placePickupOrder(t *testing.T) OrderOutput {
	t.Helper()
	f.addToCart(t, f.buyer.ID, f.product.ID, 1)
	out, err := f.orders.PlaceOrder(context.Background(), f.buyer.ID, PlaceOrderInput{
		SellerID:       f.seller.ID,
		DeliveryMethod: string(model.DeliveryMethodPickup),
	})
	require.NoError(t, err)
	return out
}

// ストアから注文を直接読む
func (f *fixture) loadOrder(t *testing.T, id int64) model.Order {
	t.Helper()
	var o model.Order
	require.NoError(t, f.store.WithinTx(context.Background(), func(r repo.TxRepos) error {
		var err error
		o, err = r.Orders().FindByID(context.Background(), id)
		return err
	}))
	return o
}

func (f *fixture) loadProduct(t *testing.T, id int64) model.Product {
	t.Helper()
	var p model.Product
	require.NoError(t, f.store.WithinTx(context.Background(), func(r repo.TxRepos) error {
		var err error
		p, err = r.Products().FindByID(context.Background(), id)
		return err
	}))
	return p
}

func (f *fixture) loadCoupon(t *testing.T, code string) model.Coupon {
	t.Helper()
	var c model.Coupon
	require.NoError(t, f.store.WithinTx(context.Background(), func(r repo.TxRepos) error {
		var err error
		c, err = r.Coupons().FindByCode(context.Background(), code)
		return err
	}))
	return c
}

func (f *fixture) countOrders(t *testing.T) int64 {
	t.Helper()
	var total int64
	require.NoError(t, f.store.WithinTx(context.Background(), func(r repo.TxRepos) error {
		var err error
		_, total, err = r.Orders().List(context.Background(), repo.OrderListFilter{})
		return err
	}))
	return total
}

// referenceを注文に結び付けた状態にする
func (f *fixture) initializePayment(t *testing.T, orderID int64, reference string) {
	t.Helper()
	f.gateway.On("Configured").Return(true)
	f.gateway.On("Initialize", mock.Anything, mock.Anything).
		Return(PaymentInitResult{Reference: reference, AuthorizationURL: "https://checkout.example/" + reference}, nil).Once()
	_, err := f.payment.Initialize(context.Background(), f.buyer.ID, orderID)
	require.NoError(t, err)
}

func successVerification(reference string, o OrderOutput, total string) GatewayVerification {
	minor := decimal.RequireFromString(total).Shift(2).IntPart()
	return GatewayVerification{
		Reference:       reference,
		Success:         true,
		Status:          "success",
		AmountMinor:     minor,
		Currency:        "GHS",
		Channel:         "mobile_money",
		GatewayResponse: "Approved",
		Metadata:        PaymentMetadata{OrderID: o.ID, UserID: o.BuyerID, OrderNumber: o.OrderNumber},
		Raw:             []byte(`{"status":"success"}`),
	}
}

func requireHTTPStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	he, ok := AsHTTPError(err)
	require.True(t, ok, "want HTTPError, got %v", err)
	require.Equal(t, status, he.Status, he.Message)
}
