package repository

import (
	"context"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
	repo "github.com/Smart3990/Kiyumart-sub000/internal/repository"

	"gorm.io/gorm"
)

// AUDIT_SINK=database のときの監査ログ。
// txを持ったDBで作れば注文の更新と同じトランザクションに乗る
type auditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) repo.TxScopedAuditLog {
	return &auditLogGormRepository{db: db}
}

func (r *auditLogGormRepository) SameStoreAsTx() {}

func (r *auditLogGormRepository) Create(ctx context.Context, log model.AuditLog) error {
	return r.db.WithContext(ctx).Create(&log).Error
}

func (r *auditLogGormRepository) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	limit, offset := f.Window()

	logs := make([]model.AuditLog, 0)
	err := r.db.WithContext(ctx).
		Scopes(auditLogConditions(f)).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// nilの条件は付けない
func auditLogConditions(f repo.AuditLogFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		cond := map[string]any{}
		if f.ActorUserID != nil {
			cond["actor_user_id"] = *f.ActorUserID
		}
		if f.Action != nil {
			cond["action"] = string(*f.Action)
		}
		if f.ResourceType != nil {
			cond["resource_type"] = string(*f.ResourceType)
		}
		if f.ResourceID != nil {
			cond["resource_id"] = *f.ResourceID
		}
		if len(cond) > 0 {
			q = q.Where(cond)
		}
		if f.CreatedFrom != nil {
			q = q.Where("created_at >= ?", *f.CreatedFrom)
		}
		if f.CreatedTo != nil {
			q = q.Where("created_at <= ?", *f.CreatedTo)
		}
		return q
	}
}
