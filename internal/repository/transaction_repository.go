package repository

import (
	"context"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
)

// 決済確認の記録。payment_referenceが冪等キー
type TransactionRepository interface {
	FindByReference(ctx context.Context, reference string) (model.Transaction, error)
	// 同じreferenceが既にあれば ErrDuplicate
	Create(ctx context.Context, tx *model.Transaction) error
}
