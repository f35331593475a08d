package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
	repo "github.com/Smart3990/Kiyumart-sub000/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, f)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

func auditActions(t *testing.T, f *fixture) []model.AuditAction {
	t.Helper()
	logs, err := f.store.AuditLogs().List(context.Background(), repo.AuditLogFilter{})
	require.NoError(t, err)
	out := make([]model.AuditAction, 0, len(logs))
	for _, l := range logs {
		out = append(out, l.Action)
	}
	return out
}

func TestUpdateStatus_SellerMovesOwnOrder(t *testing.T) {
	f := newFixture(t)
	o := f.placePickupOrder(t)

	out, err := f.status.UpdateStatus(context.Background(), f.actor(f.seller), o.ID, UpdateOrderStatusInput{Status: "processing"})
	require.NoError(t, err)
	assert.Equal(t, "processing", out.Status)

	events := f.notifier.named(EventOrderStatusUpdated)
	require.Len(t, events, 1)
	assert.Equal(t, f.buyer.ID, events[0].UserID)
	assert.Equal(t, "processing", events[0].Payload.(OrderStatusUpdatedEvent).Status)
	assert.Equal(t, []model.AuditAction{model.AuditActionUpdateOrderStatus}, auditActions(t, f))
}

func TestUpdateStatus_SameStatusIsNoop(t *testing.T) {
	f := newFixture(t)
	o := f.placePickupOrder(t)

	out, err := f.status.UpdateStatus(context.Background(), f.actor(f.seller), o.ID, UpdateOrderStatusInput{Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, "pending", out.Status)
	assert.Equal(t, 0, f.notifier.count())
	assert.Empty(t, auditActions(t, f))
}

func TestUpdateStatus_LaxAndStrictModes(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)
	o := f.placePickupOrder(t)
	_, err := f.status.UpdateStatus(ctx, f.actor(f.admin), o.ID, UpdateOrderStatusInput{Status: "delivered"})
	require.NoError(t, err)
	// 既定は遷移表を見ない
	out, err := f.status.UpdateStatus(ctx, f.actor(f.admin), o.ID, UpdateOrderStatusInput{Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, "pending", out.Status)

	strict := NewOrderStatusUsecase(f.store, f.store.AuditLogs(), f.notifier, f.clock, true)
	_, err = strict.UpdateStatus(ctx, f.actor(f.admin), o.ID, UpdateOrderStatusInput{Status: "delivered"})
	requireHTTPStatus(t, err, http.StatusBadRequest)
	_, err = strict.UpdateStatus(ctx, f.actor(f.admin), o.ID, UpdateOrderStatusInput{Status: "processing"})
	require.NoError(t, err)
}

func TestUpdateStatus_Authorization(t *testing.T) {
	f := newFixture(t)
	o := f.placePickupOrder(t)
	ctx := context.Background()
	otherSeller := f.store.SeedUser(model.User{Email: "s2@example.com", Role: model.RoleSeller, IsActive: true})

	_, err := f.status.UpdateStatus(ctx, f.actor(otherSeller), o.ID, UpdateOrderStatusInput{Status: "processing"})
	requireHTTPStatus(t, err, http.StatusNotFound)

	_, err = f.status.UpdateStatus(ctx, f.actor(f.buyer), o.ID, UpdateOrderStatusInput{Status: "processing"})
	requireHTTPStatus(t, err, http.StatusForbidden)

	_, err = f.status.UpdateStatus(ctx, f.actor(f.seller), o.ID, UpdateOrderStatusInput{Status: "shipped"})
	requireHTTPStatus(t, err, http.StatusBadRequest)

	_, err = f.status.UpdateStatus(ctx, f.actor(f.seller), 9999, UpdateOrderStatusInput{Status: "processing"})
	requireHTTPStatus(t, err, http.StatusNotFound)

	assert.Equal(t, model.OrderStatusPending, f.loadOrder(t, o.ID).Status)
}

func TestUpdateStatus_AuditFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	o := f.placePickupOrder(t)

	audit := &AuditRepoMock{}
	audit.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	u := NewOrderStatusUsecase(f.store, audit, f.notifier, f.clock, false)

	_, err := u.UpdateStatus(context.Background(), f.actor(f.seller), o.ID, UpdateOrderStatusInput{Status: "processing"})
	requireHTTPStatus(t, err, http.StatusInternalServerError)
	assert.Equal(t, model.OrderStatusPending, f.loadOrder(t, o.ID).Status)
	assert.Equal(t, 0, f.notifier.count())
}

func TestAssignRider_ForcesProcessingAndReassigns(t *testing.T) {
	f := newFixture(t)
	o := f.placePickupOrder(t)
	ctx := context.Background()

	out, err := f.status.AssignRider(ctx, f.actor(f.seller), o.ID, AssignRiderInput{RiderID: f.rider.ID})
	require.NoError(t, err)
	assert.Equal(t, "processing", out.Status)
	require.NotNil(t, out.RiderID)
	assert.Equal(t, f.rider.ID, *out.RiderID)

	second := f.store.SeedUser(model.User{Email: "rider2@example.com", Role: model.RoleRider, IsActive: true})
	out, err = f.status.AssignRider(ctx, f.actor(f.admin), o.ID, AssignRiderInput{RiderID: second.ID})
	require.NoError(t, err)
	assert.Equal(t, "processing", out.Status)
	assert.Equal(t, second.ID, *out.RiderID)

	// 担当を外れたライダーは見えない
	_, err = f.status.ConfirmDelivery(ctx, f.actor(f.rider), o.ID)
	requireHTTPStatus(t, err, http.StatusNotFound)

	assert.Equal(t, []model.AuditAction{model.AuditActionAssignRider, model.AuditActionAssignRider}, auditActions(t, f))
}

func TestAssignRider_Rejections(t *testing.T) {
	f := newFixture(t)
	o := f.placePickupOrder(t)
	ctx := context.Background()
	inactive := f.store.SeedUser(model.User{Email: "gone@example.com", Role: model.RoleRider, IsActive: false})

	for _, id := range []int64{f.buyer.ID, inactive.ID, 9999} {
		_, err := f.status.AssignRider(ctx, f.actor(f.seller), o.ID, AssignRiderInput{RiderID: id})
		requireHTTPStatus(t, err, http.StatusBadRequest)
	}

	_, err := f.status.AssignRider(ctx, f.actor(f.buyer), o.ID, AssignRiderInput{RiderID: f.rider.ID})
	requireHTTPStatus(t, err, http.StatusForbidden)

	_, err = f.status.Cancel(ctx, f.actor(f.seller), o.ID)
	require.NoError(t, err)
	_, err = f.status.AssignRider(ctx, f.actor(f.seller), o.ID, AssignRiderInput{RiderID: f.rider.ID})
	requireHTTPStatus(t, err, http.StatusBadRequest)
}

func TestConfirmDelivery_ByAssignedRider(t *testing.T) {
	f := newFixture(t)
	o := f.placePickupOrder(t)
	ctx := context.Background()

	_, err := f.status.AssignRider(ctx, f.actor(f.seller), o.ID, AssignRiderInput{RiderID: f.rider.ID})
	require.NoError(t, err)

	out, err := f.status.ConfirmDelivery(ctx, f.actor(f.rider), o.ID)
	require.NoError(t, err)
	assert.Equal(t, "delivered", out.Status)
	require.NotNil(t, out.DeliveredAt)
	assert.Equal(t, testNow, *out.DeliveredAt)

	_, err = f.status.ConfirmDelivery(ctx, f.actor(f.rider), o.ID)
	requireHTTPStatus(t, err, http.StatusBadRequest)
}

func TestCancel_RestoresStock(t *testing.T) {
	ctx := context.Background()

	t.Run("buyer while pending", func(t *testing.T) {
		f := newFixture(t)
		o := f.placePickupOrder(t)
		require.Equal(t, int64(9), f.loadProduct(t, f.product.ID).Stock)

		out, err := f.status.Cancel(ctx, f.actor(f.buyer), o.ID)
		require.NoError(t, err)
		assert.Equal(t, "cancelled", out.Status)
		assert.Equal(t, int64(10), f.loadProduct(t, f.product.ID).Stock)

		// 二重に戻さない
		_, err = f.status.Cancel(ctx, f.actor(f.buyer), o.ID)
		requireHTTPStatus(t, err, http.StatusBadRequest)
		assert.Equal(t, int64(10), f.loadProduct(t, f.product.ID).Stock)
	})

	t.Run("buyer cannot cancel processing", func(t *testing.T) {
		f := newFixture(t)
		o := f.placePickupOrder(t)
		_, err := f.status.UpdateStatus(ctx, f.actor(f.seller), o.ID, UpdateOrderStatusInput{Status: "processing"})
		require.NoError(t, err)

		_, err = f.status.Cancel(ctx, f.actor(f.buyer), o.ID)
		requireHTTPStatus(t, err, http.StatusBadRequest)

		out, err := f.status.Cancel(ctx, f.actor(f.seller), o.ID)
		require.NoError(t, err)
		assert.Equal(t, "cancelled", out.Status)
		assert.Equal(t, int64(10), f.loadProduct(t, f.product.ID).Stock)
	})

	t.Run("status update to cancelled restocks too", func(t *testing.T) {
		f := newFixture(t)
		o := f.placePickupOrder(t)
		_, err := f.status.UpdateStatus(ctx, f.actor(f.admin), o.ID, UpdateOrderStatusInput{Status: "cancelled"})
		require.NoError(t, err)
		assert.Equal(t, int64(10), f.loadProduct(t, f.product.ID).Stock)
	})

	t.Run("reopen takes stock again so a second cancel is balanced", func(t *testing.T) {
		f := newFixture(t)
		o := f.placePickupOrder(t)

		_, err := f.status.Cancel(ctx, f.actor(f.seller), o.ID)
		require.NoError(t, err)
		require.Equal(t, int64(10), f.loadProduct(t, f.product.ID).Stock)

		_, err = f.status.UpdateStatus(ctx, f.actor(f.admin), o.ID, UpdateOrderStatusInput{Status: "pending"})
		require.NoError(t, err)
		assert.Equal(t, int64(9), f.loadProduct(t, f.product.ID).Stock)

		_, err = f.status.Cancel(ctx, f.actor(f.seller), o.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(10), f.loadProduct(t, f.product.ID).Stock)
	})

	t.Run("delivered goods are not restocked", func(t *testing.T) {
		f := newFixture(t)
		o := f.placePickupOrder(t)

		_, err := f.status.UpdateStatus(ctx, f.actor(f.admin), o.ID, UpdateOrderStatusInput{Status: "delivered"})
		require.NoError(t, err)
		_, err = f.status.UpdateStatus(ctx, f.actor(f.admin), o.ID, UpdateOrderStatusInput{Status: "cancelled"})
		require.NoError(t, err)
		assert.Equal(t, int64(9), f.loadProduct(t, f.product.ID).Stock)
	})

	t.Run("reopen through disputed after delivery stays balanced", func(t *testing.T) {
		f := newFixture(t)
		o := f.placePickupOrder(t)

		for _, st := range []string{"delivered", "disputed", "pending"} {
			_, err := f.status.UpdateStatus(ctx, f.actor(f.admin), o.ID, UpdateOrderStatusInput{Status: st})
			require.NoError(t, err, st)
		}
		// 配達済みで消費、pendingで押さえ直し
		assert.Equal(t, int64(8), f.loadProduct(t, f.product.ID).Stock)
		assert.True(t, f.loadOrder(t, o.ID).StockHeld)

		_, err := f.status.Cancel(ctx, f.actor(f.seller), o.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(9), f.loadProduct(t, f.product.ID).Stock)
		assert.False(t, f.loadOrder(t, o.ID).StockHeld)
	})

	t.Run("reopen without stock is rejected and rolled back", func(t *testing.T) {
		f := newFixture(t)
		o := f.placePickupOrder(t)
		_, err := f.status.Cancel(ctx, f.actor(f.buyer), o.ID)
		require.NoError(t, err)

		p := f.loadProduct(t, f.product.ID)
		p.Stock = 0
		f.store.SeedProduct(p)

		_, err = f.status.UpdateStatus(ctx, f.actor(f.admin), o.ID, UpdateOrderStatusInput{Status: "processing"})
		requireHTTPStatus(t, err, http.StatusConflict)
		assert.Equal(t, model.OrderStatusCancelled, f.loadOrder(t, o.ID).Status)
	})
}
