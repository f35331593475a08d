package repository

import (
	"context"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"

	"gorm.io/gorm"
)

type TransactionGormRepository struct {
	db *gorm.DB
}

func NewTransactionGormRepository(db *gorm.DB) *TransactionGormRepository {
	return &TransactionGormRepository{db: db}
}

func (r *TransactionGormRepository) FindByReference(ctx context.Context, reference string) (model.Transaction, error) {
	var t model.Transaction
	err := r.db.WithContext(ctx).Where("payment_reference = ?", reference).First(&t).Error
	if err != nil {
		return model.Transaction{}, translate(err)
	}
	return t, nil
}

// payment_referenceの一意制約で二重記録を防ぐ
func (r *TransactionGormRepository) Create(ctx context.Context, t *model.Transaction) error {
	return translate(r.db.WithContext(ctx).Create(t).Error)
}
