package handler

import (
	"net/http"

	"github.com/Smart3990/Kiyumart-sub000/internal/config"
	"github.com/Smart3990/Kiyumart-sub000/internal/middleware"
	"github.com/Smart3990/Kiyumart-sub000/internal/realtime"
	"github.com/Smart3990/Kiyumart-sub000/internal/repository"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// /ws: 認証済みユーザーを自分のチャネルに登録する
type WSHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWSHandler(hub *realtime.Hub, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			//認証はトークンで行う
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.Named("ws"),
	}
}

func (h *WSHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	e.GET("/ws", h.serve, middleware.AuthJWT(cfg), middleware.TokenVersionGuard(userRepo))
}

func (h *WSHandler) serve(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		//Upgradeがエラーレスポンスを書いている
		h.logger.Debug("upgrade failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil
	}

	h.hub.Serve(ws, userID)
	return nil
}
