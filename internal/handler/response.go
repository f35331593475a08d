package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/policy"
	"github.com/Smart3990/Kiyumart-sub000/internal/middleware"
	"github.com/Smart3990/Kiyumart-sub000/internal/usecase"
	"github.com/Smart3990/Kiyumart-sub000/internal/validator"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}
	var fe *validator.FieldError
	if errors.As(err, &fe) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: fe.Error()})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// bodyを読んでvalidateタグを検証する
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(req); err != nil {
		var fe *validator.FieldError
		if errors.As(err, &fe) {
			return usecase.NewHTTPError(http.StatusBadRequest, fe.Error())
		}
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return nil
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return 0, false
	}
	return actor.UserID, true
}

func getActorFromContext(c echo.Context) (policy.Actor, bool) {
	return middleware.ActorFromContext(c)
}

func parseIDParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// page / limit（未指定は0でusecase側の既定）
func parsePaging(c echo.Context) (int, int, error) {
	page, limit := 0, 0
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 {
			return 0, 0, usecase.NewHTTPError(http.StatusBadRequest, "invalid page")
		}
		page = p
	}
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			return 0, 0, usecase.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = l
	}
	return page, limit, nil
}
