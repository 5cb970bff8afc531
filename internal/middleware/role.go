package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/role-auth/internal/service"
)

// RequirePolicy rejects with 403 any request whose resolved user does
// not satisfy p.  It must run after BearerAuth.
func RequirePolicy(gate *service.RoleGate, p service.Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok {
				return WriteError(c, service.Unauthorized("missing bearer token"))
			}
			if _, err := gate.Require(u, p); err != nil {
				return WriteError(c, err)
			}
			return next(c)
		}
	}
}
