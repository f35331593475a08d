package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Smart3990/Kiyumart-sub000/internal/config"
	"github.com/Smart3990/Kiyumart-sub000/internal/domain/policy"
	"github.com/Smart3990/Kiyumart-sub000/internal/middleware"
	"github.com/Smart3990/Kiyumart-sub000/internal/repository"
	"github.com/Smart3990/Kiyumart-sub000/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminAuditHandler struct {
	uc *usecase.AuditUsecase
}

func NewAdminAuditHandler(uc *usecase.AuditUsecase) *AdminAuditHandler {
	return &AdminAuditHandler{uc: uc}
}

func (h *AdminAuditHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/admin/audit-logs")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))
	g.Use(middleware.RequireCapability(policy.CapViewAuditTrail))

	g.GET("", h.list)
}

func (h *AdminAuditHandler) list(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	page, limit, err := parsePaging(c)
	if err != nil {
		return writeError(c, err)
	}

	q := usecase.AuditTrailQuery{
		Page:         page,
		Limit:        limit,
		Action:       c.QueryParam("action"),
		ResourceType: c.QueryParam("resource_type"),
	}

	for name, dst := range map[string]**int64{
		"actor_user_id": &q.ActorUserID,
		"resource_id":   &q.ResourceID,
	} {
		v := c.QueryParam(name)
		if v == "" {
			continue
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name})
		}
		*dst = &id
	}

	for name, dst := range map[string]**time.Time{
		"from": &q.From,
		"to":   &q.To,
	} {
		v := c.QueryParam(name)
		if v == "" {
			continue
		}
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name})
		}
		*dst = &tm
	}

	out, err := h.uc.ListTrail(c.Request().Context(), actor, q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
