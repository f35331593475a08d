package repository

import (
	"context"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// 論理削除済みはgormが除外する
func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return model.Product{}, translate(err)
	}
	return p, nil
}

type DeliveryZoneGormRepository struct {
	db *gorm.DB
}

func NewDeliveryZoneGormRepository(db *gorm.DB) *DeliveryZoneGormRepository {
	return &DeliveryZoneGormRepository{db: db}
}

func (r *DeliveryZoneGormRepository) FindByID(ctx context.Context, id int64) (model.DeliveryZone, error) {
	var z model.DeliveryZone
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&z).Error; err != nil {
		return model.DeliveryZone{}, translate(err)
	}
	return z, nil
}
