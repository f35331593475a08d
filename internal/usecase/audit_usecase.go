package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
	"github.com/Smart3990/Kiyumart-sub000/internal/domain/policy"
	repo "github.com/Smart3990/Kiyumart-sub000/internal/repository"
)

// 監査ログの閲覧（管理者）。保存先がDBでもMongoでも同じ
type AuditUsecase struct {
	audit repo.AuditLogRepository
}

func NewAuditUsecase(audit repo.AuditLogRepository) *AuditUsecase {
	return &AuditUsecase{audit: audit}
}

type AuditTrailQuery struct {
	Page         int
	Limit        int
	ActorUserID  *int64
	Action       string
	ResourceType string
	ResourceID   *int64
	From         *time.Time
	To           *time.Time
}

type AuditLogOutput struct {
	ID           int64           `json:"id"`
	ActorUserID  int64           `json:"actor_user_id"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   int64           `json:"resource_id"`
	Before       json.RawMessage `json:"before"`
	After        json.RawMessage `json:"after"`
	CreatedAt    time.Time       `json:"created_at"`
}

type AuditTrailOutput struct {
	Items []AuditLogOutput `json:"items"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

var knownAuditActions = map[model.AuditAction]bool{
	model.AuditActionUpdateOrderStatus: true,
	model.AuditActionAssignRider:       true,
	model.AuditActionConfirmDelivery:   true,
	model.AuditActionCancelOrder:       true,
	model.AuditActionRejectPayment:     true,
}

// ListTrail は条件に合う監査ログを新しい順に返す
func (u *AuditUsecase) ListTrail(ctx context.Context, actor policy.Actor, q AuditTrailQuery) (AuditTrailOutput, error) {
	if actor.UserID <= 0 {
		return AuditTrailOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if !policy.Can(actor.Role, policy.CapViewAuditTrail) {
		return AuditTrailOutput{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	page, limit := q.Page, q.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	f := repo.AuditLogFilter{
		ActorUserID: q.ActorUserID,
		ResourceID:  q.ResourceID,
		CreatedFrom: q.From,
		CreatedTo:   q.To,
		Limit:       limit,
		Offset:      (page - 1) * limit,
	}
	if v := strings.ToUpper(strings.TrimSpace(q.Action)); v != "" {
		a := model.AuditAction(v)
		if !knownAuditActions[a] {
			return AuditTrailOutput{}, NewHTTPError(http.StatusBadRequest, "invalid action")
		}
		f.Action = &a
	}
	switch rt := model.AuditResourceType(strings.ToLower(strings.TrimSpace(q.ResourceType))); rt {
	case "":
	case model.AuditResourceOrder, model.AuditResourcePayment:
		f.ResourceType = &rt
	default:
		return AuditTrailOutput{}, NewHTTPError(http.StatusBadRequest, "invalid resource_type")
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return AuditTrailOutput{}, NewHTTPError(http.StatusBadRequest, "from must be before to")
	}

	logs, err := u.audit.List(ctx, f)
	if err != nil {
		return AuditTrailOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items := make([]AuditLogOutput, 0, len(logs))
	for _, l := range logs {
		items = append(items, AuditLogOutput{
			ID:           l.ID,
			ActorUserID:  l.ActorUserID,
			Action:       string(l.Action),
			ResourceType: string(l.ResourceType),
			ResourceID:   l.ResourceID,
			Before:       rawAuditJSON(l.BeforeJSON),
			After:        rawAuditJSON(l.AfterJSON),
			CreatedAt:    l.CreatedAt,
		})
	}
	return AuditTrailOutput{Items: items, Page: page, Limit: limit}, nil
}

// 壊れた値はnullで返す
func rawAuditJSON(s string) json.RawMessage {
	if s == "" || !json.Valid([]byte(s)) {
		return json.RawMessage("null")
	}
	return json.RawMessage(s)
}
