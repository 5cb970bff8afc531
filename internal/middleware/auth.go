package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/role-auth/internal/model"
	"github.com/iliyamo/role-auth/internal/service"
)

// Resolver maps a bearer token to its owning user.
type Resolver interface {
	Resolve(ctx context.Context, token string) (model.User, error)
}

// BearerAuth resolves the "Authorization: Bearer <token>" header on every
// request and stores the user and the raw token in the echo context.
// Requests without a resolvable token are rejected with 401.
func BearerAuth(r Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return WriteError(c, service.Unauthorized("missing bearer token"))
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			u, err := r.Resolve(ctx, raw)
			if err != nil {
				return WriteError(c, err)
			}
			c.Set(userKey, u)
			c.Set(tokenKey, raw)
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
