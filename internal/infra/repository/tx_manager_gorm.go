package repository

import (
	"context"

	repo "github.com/Smart3990/Kiyumart-sub000/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders        repo.OrderRepository
	orderItems    repo.OrderItemRepository
	transactions  repo.TransactionRepository
	coupons       repo.CouponRepository
	carts         repo.CartRepository
	cartItems     repo.CartItemRepository
	inventory     repo.InventoryRepository
	products      repo.ProductRepository
	deliveryZones repo.DeliveryZoneRepository
	tracking      repo.TrackingRepository
	users         repo.UserRepository
	auditLogs     repo.AuditLogRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository               { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository       { return r.orderItems }
func (r *txReposGorm) Transactions() repo.TransactionRepository   { return r.transactions }
func (r *txReposGorm) Coupons() repo.CouponRepository             { return r.coupons }
func (r *txReposGorm) Carts() repo.CartRepository                 { return r.carts }
func (r *txReposGorm) CartItems() repo.CartItemRepository         { return r.cartItems }
func (r *txReposGorm) Inventory() repo.InventoryRepository        { return r.inventory }
func (r *txReposGorm) Products() repo.ProductRepository           { return r.products }
func (r *txReposGorm) DeliveryZones() repo.DeliveryZoneRepository { return r.deliveryZones }
func (r *txReposGorm) Tracking() repo.TrackingRepository          { return r.tracking }
func (r *txReposGorm) Users() repo.UserRepository                 { return r.users }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository         { return r.auditLogs }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		cart := NewCartGormRepository(tx)
		r := &txReposGorm{
			orders:        NewOrderGormRepository(tx),
			orderItems:    NewOrderItemGormRepository(tx),
			transactions:  NewTransactionGormRepository(tx),
			coupons:       NewCouponGormRepository(tx),
			carts:         cart,
			cartItems:     cart,
			inventory:     NewInventoryGormRepository(tx),
			products:      NewProductGormRepository(tx),
			deliveryZones: NewDeliveryZoneGormRepository(tx),
			tracking:      NewTrackingGormRepository(tx),
			users:         NewUserGormRepository(tx),
			auditLogs:     NewAuditLogGormRepository(tx),
		}
		return fn(r)
	})
}
