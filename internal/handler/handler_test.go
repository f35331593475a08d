package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/Smart3990/Kiyumart-sub000/internal/config"
	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
	"github.com/Smart3990/Kiyumart-sub000/internal/domain/pricing"
	"github.com/Smart3990/Kiyumart-sub000/internal/infra/memory"
	"github.com/Smart3990/Kiyumart-sub000/internal/usecase"
	"github.com/Smart3990/Kiyumart-sub000/internal/validator"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-secret"

// 初期化したreferenceをそのまま成功として返すゲートウェイ
type stubGateway struct {
	initialized map[string]usecase.PaymentInitRequest
}

func (g *stubGateway) Configured() bool { return true }

func (g *stubGateway) Initialize(ctx context.Context, req usecase.PaymentInitRequest) (usecase.PaymentInitResult, error) {
	ref := "ref-" + req.Metadata.OrderNumber
	g.initialized[ref] = req
	return usecase.PaymentInitResult{Reference: ref, AuthorizationURL: "https://checkout.example/" + ref}, nil
}

func (g *stubGateway) Verify(ctx context.Context, reference string) (usecase.GatewayVerification, error) {
	req := g.initialized[reference]
	return usecase.GatewayVerification{
		Reference:   reference,
		Success:     true,
		Status:      "success",
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Metadata:    req.Metadata,
	}, nil
}

type testAPI struct {
	e     *echo.Echo
	store *memory.Store

	buyer, seller, rider, admin model.User
	product                     model.Product
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	s := memory.NewStore()
	api := &testAPI{store: s}
	api.buyer = s.SeedUser(model.User{Email: "buyer@example.com", Role: model.RoleBuyer, IsActive: true})
	api.seller = s.SeedUser(model.User{Email: "seller@example.com", Role: model.RoleSeller, IsActive: true})
	api.rider = s.SeedUser(model.User{Email: "rider@example.com", Role: model.RoleRider, IsActive: true})
	api.admin = s.SeedUser(model.User{Email: "admin@example.com", Role: model.RoleAdmin, IsActive: true})
	api.product = s.SeedProduct(model.Product{
		SellerID: api.seller.ID,
		Name:     "Shea butter",
		Price:    decimal.RequireFromString("25.00"),
		Stock:    20,
		IsActive: true,
	})

	gw := &stubGateway{initialized: make(map[string]usecase.PaymentInitRequest)}
	orders := usecase.NewOrderUsecase(s, usecase.NewOrderNumberGenerator("KM"), nil, usecase.OrderSettings{
		Currency:             "GHS",
		ProcessingFeePercent: decimal.RequireFromString("1.95"),
	})
	status := usecase.NewOrderStatusUsecase(s, s.AuditLogs(), nil, nil, false)
	reconciler := usecase.NewPaymentReconciler(s, gw, nil, s.AuditLogs(), nil, nil)

	e := echo.New()
	e.Validator = validator.New()
	cfg := config.Config{JWTSecret: testSecret}

	NewCartHandler(usecase.NewCartUsecase(s)).RegisterRoutes(e, cfg, s.Users())
	NewOrderHandler(orders, status).RegisterRoutes(e, cfg, s.Users())
	NewTrackingHandler(usecase.NewTrackingUsecase(s, nil, nil, nil, nil)).RegisterRoutes(e, cfg, s.Users())
	NewPaymentHandler(usecase.NewPaymentUsecase(s, gw, reconciler, nil, nil)).RegisterRoutes(e, cfg, s.Users())
	NewAdminOrderHandler(orders).RegisterRoutes(e, cfg, s.Users())
	NewAdminAuditHandler(usecase.NewAuditUsecase(s.AuditLogs())).RegisterRoutes(e, cfg, s.Users())

	api.e = e
	return api
}

func tokenFor(t *testing.T, u model.User) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  u.ID,
		"role": string(u.Role),
		"tv":   u.TokenVersion,
		"exp":  9999999999,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (a *testAPI) do(t *testing.T, as *model.User, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, *as))
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *testAPI) placeOrder(t *testing.T) usecase.OrderOutput {
	t.Helper()
	rec := a.do(t, &a.buyer, http.MethodPost, "/cart", AddCartRequest{ProductID: a.product.ID, Quantity: 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, &a.buyer, http.MethodPost, "/orders", OrderCreateRequest{SellerID: a.seller.ID, DeliveryMethod: "pickup"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[usecase.OrderOutput](t, rec)
}

func TestOrders_CreateAndRead(t *testing.T) {
	a := newTestAPI(t)
	o := a.placeOrder(t)

	assert.Equal(t, "50.00", o.Subtotal)
	assert.Equal(t, "pending", o.Status)

	rec := a.do(t, &a.buyer, http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[usecase.OrderListOutput](t, rec)
	assert.Equal(t, int64(1), list.Total)

	rec = a.do(t, &a.seller, http.MethodGet, "/orders/"+itoa(o.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, &a.rider, http.MethodGet, "/orders/"+itoa(o.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrders_RequestValidation(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, &a.buyer, http.MethodPost, "/orders", OrderCreateRequest{SellerID: a.seller.ID, DeliveryMethod: "drone"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Error, "delivery_method")

	rec = a.do(t, &a.buyer, http.MethodPost, "/cart", map[string]any{"product_id": a.product.ID, "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, &a.buyer, http.MethodGet, "/orders/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, nil, http.MethodGet, "/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrders_StatusRoutesByCapability(t *testing.T) {
	a := newTestAPI(t)
	o := a.placeOrder(t)
	path := "/orders/" + itoa(o.ID)

	rec := a.do(t, &a.buyer, http.MethodPut, path+"/status", OrderStatusUpdateRequest{Status: "processing"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, &a.seller, http.MethodPost, path+"/rider", AssignRiderRequest{RiderID: a.rider.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "processing", decode[usecase.OrderOutput](t, rec).Status)

	lat, lng := 5.56, -0.2
	rec = a.do(t, &a.rider, http.MethodPost, path+"/location", RecordLocationRequest{Latitude: &lat, Longitude: &lng})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, &a.buyer, http.MethodGet, path+"/location", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 5.56, decode[usecase.LocationOutput](t, rec).Latitude, 1e-9)

	rec = a.do(t, &a.rider, http.MethodPost, path+"/delivered", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "delivered", decode[usecase.OrderOutput](t, rec).Status)

	rec = a.do(t, &a.buyer, http.MethodPost, path+"/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayments_InitializeThenVerifyTwice(t *testing.T) {
	a := newTestAPI(t)
	o := a.placeOrder(t)

	rec := a.do(t, &a.buyer, http.MethodPost, "/payments/initialize", InitializePaymentRequest{OrderID: o.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	started := decode[usecase.PaymentInitOutput](t, rec)
	assert.Equal(t, o.Total, started.Amount)
	assert.Equal(t, pricing.ToMinorUnits(decimal.RequireFromString(o.Total)), int64(5098))

	rec = a.do(t, &a.buyer, http.MethodGet, "/payments/verify/"+started.Reference, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode[usecase.PaymentVerdict](t, rec)
	assert.True(t, first.Verified)

	rec = a.do(t, &a.buyer, http.MethodGet, "/payments/verify/"+started.Reference, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first, decode[usecase.PaymentVerdict](t, rec))
	assert.Equal(t, 1, a.store.TransactionCount())

	rec = a.do(t, &a.seller, http.MethodPost, "/payments/initialize", InitializePaymentRequest{OrderID: o.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminOrders(t *testing.T) {
	a := newTestAPI(t)
	a.placeOrder(t)

	rec := a.do(t, &a.admin, http.MethodGet, "/admin/orders?status=pending&seller_id="+itoa(a.seller.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(1), decode[usecase.OrderListOutput](t, rec).Total)

	rec = a.do(t, &a.admin, http.MethodGet, "/admin/orders?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, &a.seller, http.MethodGet, "/admin/orders", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminAuditLogs(t *testing.T) {
	a := newTestAPI(t)
	o := a.placeOrder(t)
	path := "/orders/" + itoa(o.ID)

	rec := a.do(t, &a.seller, http.MethodPost, path+"/rider", AssignRiderRequest{RiderID: a.rider.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = a.do(t, &a.rider, http.MethodPost, path+"/delivered", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, &a.admin, http.MethodGet, "/admin/audit-logs?resource_type=order&resource_id="+itoa(o.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[usecase.AuditTrailOutput](t, rec)
	require.Len(t, out.Items, 2)
	//新しい順
	assert.Equal(t, "CONFIRM_DELIVERY", out.Items[0].Action)
	assert.Equal(t, a.rider.ID, out.Items[0].ActorUserID)
	assert.Equal(t, "ASSIGN_RIDER", out.Items[1].Action)

	rec = a.do(t, &a.admin, http.MethodGet, "/admin/audit-logs?action=assign_rider&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out = decode[usecase.AuditTrailOutput](t, rec)
	require.Len(t, out.Items, 1)
	assert.Equal(t, a.seller.ID, out.Items[0].ActorUserID)

	rec = a.do(t, &a.admin, http.MethodGet, "/admin/audit-logs?action=DROP_TABLE", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, &a.admin, http.MethodGet, "/admin/audit-logs?to=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, &a.seller, http.MethodGet, "/admin/audit-logs", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
