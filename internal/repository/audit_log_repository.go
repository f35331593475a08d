package repository

import (
	"context"
	"time"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// 監査ログの絞り込み条件。並びは常に新しい順
type AuditLogFilter struct {
	ActorUserID  *int64
	Action       *model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   *int64
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// 実装共通のlimit/offset（範囲外は既定値に寄せる）
func (f AuditLogFilter) Window() (limit, offset int) {
	limit, offset = f.Limit, f.Offset
	if limit <= 0 || limit > maxAuditLimit {
		limit = defaultAuditLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// 監査ログの保存・一覧取得の約束。DBでもMongoでもよい
type AuditLogRepository interface {
	//監査ログを1件保存
	Create(ctx context.Context, log model.AuditLog) error

	//監査ログを条件で一覧取得。
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}

// 業務データと同じストアに書く実装（database / memory）。
// WithinTx内ではTxRepos.AuditLogs()に書き、commitと一緒に確定させる。
// Mongoは満たさないのでトランザクション外で書く
type TxScopedAuditLog interface {
	AuditLogRepository
	SameStoreAsTx()
}
