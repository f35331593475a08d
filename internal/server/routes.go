package server

import (
	"net/http"

	"github.com/Smart3990/Kiyumart-sub000/internal/config"
	"github.com/Smart3990/Kiyumart-sub000/internal/repository"

	"github.com/labstack/echo/v4"
)

// 各ハンドラは自分のグループと認証を登録する
type RouteRegistrar interface {
	RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository)
}

type healthResponse struct {
	Status string `json:"status"`
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, handlers ...RouteRegistrar) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
	})

	for _, h := range handlers {
		h.RegisterRoutes(e, cfg, userRepo)
	}
}
