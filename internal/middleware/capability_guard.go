package middleware

import (
	"net/http"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/policy"

	"github.com/labstack/echo/v4"
)

// contextのroleがcapを持っているか確認します。
// 注文との関係（自分の注文か等）はusecase側で見る
func RequireCapability(cap policy.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFromContext(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			if !policy.Can(actor.Role, cap) {
				return c.JSON(http.StatusForbidden, errorJSON("forbidden"))
			}

			return next(c)
		}
	}
}
