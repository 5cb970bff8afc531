package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/role-auth/internal/service"
)

// StatusFor maps a service error kind to its HTTP status.
func StatusFor(k service.Kind) int {
	switch k {
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	case service.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err as {"error": message}.  Internal causes are
// logged and replaced by a generic message.
func WriteError(c echo.Context, err error) error {
	kind := service.KindOf(err)
	msg := "internal error"
	var e *service.Error
	if errors.As(err, &e) && kind != service.KindInternal {
		msg = e.Message
	}
	if kind == service.KindInternal {
		slog.Default().Error("request failed",
			"method", c.Request().Method, "path", c.Path(), "user_id", userID(c), "err", err)
	}
	if kind == service.KindUnauthorized {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	}
	return c.JSON(StatusFor(kind), echo.Map{"error": msg})
}
