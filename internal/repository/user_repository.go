package repository

import (
	"context"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
)

// ユーザーは認証サービスが作る。ここでは参照だけ
type UserRepository interface {
	FindByID(ctx context.Context, userID int64) (model.User, error)
}
