package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
	repo "github.com/Smart3990/Kiyumart-sub000/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditTrail_ListsNewestFirstWithFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uc := NewAuditUsecase(f.store.AuditLogs())

	o := f.placePickupOrder(t)
	_, err := f.status.UpdateStatus(ctx, f.actor(f.seller), o.ID, UpdateOrderStatusInput{Status: "processing"})
	require.NoError(t, err)
	_, err = f.status.Cancel(ctx, f.actor(f.admin), o.ID)
	require.NoError(t, err)

	out, err := uc.ListTrail(ctx, f.actor(f.admin), AuditTrailQuery{ResourceID: &o.ID})
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	assert.Equal(t, string(model.AuditActionCancelOrder), out.Items[0].Action)
	assert.Equal(t, f.admin.ID, out.Items[0].ActorUserID)
	assert.JSONEq(t, `"processing"`, string(mustField(t, out.Items[0].Before, "status")))
	assert.Equal(t, string(model.AuditActionUpdateOrderStatus), out.Items[1].Action)
	assert.Equal(t, 1, out.Page)
	assert.Equal(t, 50, out.Limit)

	t.Run("action filter is case insensitive", func(t *testing.T) {
		out, err := uc.ListTrail(ctx, f.actor(f.admin), AuditTrailQuery{Action: "update_order_status"})
		require.NoError(t, err)
		require.Len(t, out.Items, 1)
		assert.Equal(t, f.seller.ID, out.Items[0].ActorUserID)
	})

	t.Run("paging", func(t *testing.T) {
		out, err := uc.ListTrail(ctx, f.actor(f.admin), AuditTrailQuery{Page: 2, Limit: 1})
		require.NoError(t, err)
		require.Len(t, out.Items, 1)
		assert.Equal(t, string(model.AuditActionUpdateOrderStatus), out.Items[0].Action)
	})

	t.Run("payment resource has no entries", func(t *testing.T) {
		out, err := uc.ListTrail(ctx, f.actor(f.admin), AuditTrailQuery{ResourceType: "payment"})
		require.NoError(t, err)
		assert.Empty(t, out.Items)
	})
}

func TestAuditTrail_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uc := NewAuditUsecase(f.store.AuditLogs())

	_, err := uc.ListTrail(ctx, f.actor(f.seller), AuditTrailQuery{})
	requireHTTPStatus(t, err, http.StatusForbidden)

	_, err = uc.ListTrail(ctx, f.actor(f.admin), AuditTrailQuery{Action: "DELETE_EVERYTHING"})
	requireHTTPStatus(t, err, http.StatusBadRequest)

	_, err = uc.ListTrail(ctx, f.actor(f.admin), AuditTrailQuery{ResourceType: "cart"})
	requireHTTPStatus(t, err, http.StatusBadRequest)

	later := testNow.Add(1)
	_, err = uc.ListTrail(ctx, f.actor(f.admin), AuditTrailQuery{From: &later, To: &testNow})
	requireHTTPStatus(t, err, http.StatusBadRequest)
}

func mustField(t *testing.T, raw json.RawMessage, key string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	return m[key]
}

func TestRawAuditJSON(t *testing.T) {
	assert.Equal(t, "null", string(rawAuditJSON("")))
	assert.Equal(t, "null", string(rawAuditJSON("{broken")))
	assert.Equal(t, `{"a":1}`, string(rawAuditJSON(`{"a":1}`)))
}

func TestAuditWithin(t *testing.T) {
	f := newFixture(t)
	external := &AuditRepoMock{}

	require.NoError(t, f.store.WithinTx(context.Background(), func(r repo.TxRepos) error {
		assert.Equal(t, r.AuditLogs(), auditWithin(r, f.store.AuditLogs()))
		assert.Same(t, external, auditWithin(r, external))
		assert.Nil(t, auditWithin(r, nil))
		return nil
	}))
}
