package main

import (
	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
	"github.com/Smart3990/Kiyumart-sub000/internal/infra/memory"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// STORE_DRIVER=memory 用のデモデータ。ユーザー作成APIはないのでここで入れる
func seedDemo(s *memory.Store, log *zap.Logger) {
	admin := s.SeedUser(model.User{Email: "admin@kiyumart.local", Name: "Admin", Role: model.RoleAdmin, IsActive: true})
	seller := s.SeedUser(model.User{Email: "seller@kiyumart.local", Name: "Demo Seller", Role: model.RoleSeller, IsActive: true})
	buyer := s.SeedUser(model.User{Email: "buyer@kiyumart.local", Name: "Demo Buyer", Role: model.RoleBuyer, IsActive: true})
	rider := s.SeedUser(model.User{Email: "rider@kiyumart.local", Name: "Demo Rider", Role: model.RoleRider, IsActive: true})

	s.SeedProduct(model.Product{
		SellerID: seller.ID,
		Name:     "Kente scarf",
		Price:    decimal.RequireFromString("120.00"),
		Stock:    25,
		IsActive: true,
	})
	s.SeedProduct(model.Product{
		SellerID: seller.ID,
		Name:     "Shea butter 250g",
		Price:    decimal.RequireFromString("35.50"),
		Stock:    100,
		IsActive: true,
	})
	s.SeedZone(model.DeliveryZone{Name: "Accra Central", Fee: decimal.RequireFromString("15.00"), IsActive: true})

	log.Info("memory store seeded",
		zap.Int64("admin_id", admin.ID),
		zap.Int64("seller_id", seller.ID),
		zap.Int64("buyer_id", buyer.ID),
		zap.Int64("rider_id", rider.ID),
	)
}
