// Package policy はロールごとの権限を1か所にまとめる。
// ハンドラやusecaseはロール名で分岐せず、ここのCapabilityで判定する。
package policy

import "github.com/Smart3990/Kiyumart-sub000/internal/domain/model"

type Capability string

const (
	CapPlaceOrder        Capability = "place_order"
	CapUpdateOrderStatus Capability = "update_order_status"
	CapAssignRider       Capability = "assign_rider"
	CapConfirmDelivery   Capability = "confirm_delivery"
	CapReportLocation    Capability = "report_location"
	CapCancelOrder       Capability = "cancel_order"
	CapViewAllOrders     Capability = "view_all_orders"
	CapViewAuditTrail    Capability = "view_audit_trail"
)

var capabilities = map[model.Role]map[Capability]bool{
	model.RoleBuyer: {
		CapPlaceOrder:  true,
		CapCancelOrder: true,
	},
	model.RoleSeller: {
		CapUpdateOrderStatus: true,
		CapAssignRider:       true,
		CapConfirmDelivery:   true,
		CapCancelOrder:       true,
	},
	model.RoleRider: {
		CapConfirmDelivery: true,
		CapReportLocation:  true,
	},
	// エージェントは代理注文と配車を行う
	model.RoleAgent: {
		CapPlaceOrder:  true,
		CapAssignRider: true,
	},
	model.RoleAdmin: {
		CapUpdateOrderStatus: true,
		CapAssignRider:       true,
		CapConfirmDelivery:   true,
		CapCancelOrder:       true,
		CapViewAllOrders:     true,
		CapViewAuditTrail:    true,
	},
}

// 認証済みの操作者
type Actor struct {
	UserID int64
	Role   model.Role
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// Can はロールがその操作を持っているか。
func Can(role model.Role, c Capability) bool {
	return capabilities[role][c]
}

// CanViewOrder は注文詳細を見られるか（当事者か管理者）。
func CanViewOrder(a Actor, o model.Order) bool {
	if a.IsAdmin() {
		return true
	}
	return o.IsParty(a.UserID)
}

// CanActOnOrder は操作権限＋注文との関係をまとめて見る。
// 販売者は自分の注文だけ、ライダーは担当注文だけ。
func CanActOnOrder(a Actor, c Capability, o model.Order) bool {
	if !Can(a.Role, c) {
		return false
	}
	switch a.Role {
	case model.RoleAdmin, model.RoleAgent:
		return true
	case model.RoleSeller:
		return o.SellerID == a.UserID
	case model.RoleRider:
		return o.RiderID != nil && *o.RiderID == a.UserID
	case model.RoleBuyer:
		return o.BuyerID == a.UserID
	}
	return false
}
