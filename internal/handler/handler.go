// Package handler adapts the services to HTTP.  Handlers bind and
// validate input, call one service operation and render its result;
// errors go through middleware.WriteError.
package handler

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/role-auth/internal/middleware"
	"github.com/iliyamo/role-auth/internal/model"
	"github.com/iliyamo/role-auth/internal/service"
)

const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

var (
	errInvalidBody  = service.Validation("invalid body")
	errUnauthorized = service.Unauthorized("authentication required")
	errNothingToDo  = service.Validation("nothing to update")
	errRoleRequired = service.Validation("role is required")
)

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return errInvalidBody
	}
	return nil
}

// caller returns the authenticated user; routes without BearerAuth get
// Unauthorized.
func caller(c echo.Context) (model.User, error) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return model.User{}, errUnauthorized
	}
	return u, nil
}
