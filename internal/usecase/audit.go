package usecase

import (
	"encoding/json"

	repo "github.com/Smart3990/Kiyumart-sub000/internal/repository"
)

// 同じストアの監査ログはトランザクション側に書く
func auditWithin(r repo.TxRepos, sink repo.AuditLogRepository) repo.AuditLogRepository {
	if _, ok := sink.(repo.TxScopedAuditLog); ok {
		return r.AuditLogs()
	}
	return sink
}

// 監査ログのbefore/after用。失敗しても空オブジェクトにする
func auditJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
