package policy

import (
	"testing"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
	"github.com/stretchr/testify/assert"
)

func TestCan(t *testing.T) {
	assert.True(t, Can(model.RoleBuyer, CapPlaceOrder))
	assert.False(t, Can(model.RoleBuyer, CapUpdateOrderStatus))
	assert.True(t, Can(model.RoleRider, CapReportLocation))
	assert.False(t, Can(model.RoleSeller, CapReportLocation))
	assert.True(t, Can(model.RoleAdmin, CapViewAllOrders))
	assert.True(t, Can(model.RoleAdmin, CapViewAuditTrail))
	assert.False(t, Can(model.RoleSeller, CapViewAuditTrail))
	assert.False(t, Can(model.Role("guest"), CapPlaceOrder))
}

func TestCanActOnOrder(t *testing.T) {
	rider := int64(30)
	o := model.Order{ID: 1, BuyerID: 10, SellerID: 20, RiderID: &rider}

	assert.True(t, CanActOnOrder(Actor{UserID: 20, Role: model.RoleSeller}, CapUpdateOrderStatus, o))
	assert.False(t, CanActOnOrder(Actor{UserID: 21, Role: model.RoleSeller}, CapUpdateOrderStatus, o))
	assert.True(t, CanActOnOrder(Actor{UserID: 30, Role: model.RoleRider}, CapReportLocation, o))
	assert.False(t, CanActOnOrder(Actor{UserID: 31, Role: model.RoleRider}, CapReportLocation, o))
	assert.True(t, CanActOnOrder(Actor{UserID: 99, Role: model.RoleAdmin}, CapAssignRider, o))
	assert.False(t, CanActOnOrder(Actor{UserID: 10, Role: model.RoleBuyer}, CapAssignRider, o))
	assert.True(t, CanActOnOrder(Actor{UserID: 10, Role: model.RoleBuyer}, CapCancelOrder, o))
}

func TestCanViewOrder(t *testing.T) {
	o := model.Order{BuyerID: 10, SellerID: 20}

	assert.True(t, CanViewOrder(Actor{UserID: 10, Role: model.RoleBuyer}, o))
	assert.True(t, CanViewOrder(Actor{UserID: 20, Role: model.RoleSeller}, o))
	assert.True(t, CanViewOrder(Actor{UserID: 1, Role: model.RoleAdmin}, o))
	assert.False(t, CanViewOrder(Actor{UserID: 11, Role: model.RoleBuyer}, o))
	assert.False(t, CanViewOrder(Actor{UserID: 30, Role: model.RoleRider}, o))
}
