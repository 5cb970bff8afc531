package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/role-auth/internal/model"
)

const (
	userKey  = "auth.user"
	tokenKey = "auth.token"
)

// CurrentUser returns the user resolved by BearerAuth.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(userKey).(model.User)
	return u, ok
}

// PresentedToken returns the raw bearer token of the request.
func PresentedToken(c echo.Context) string {
	t, _ := c.Get(tokenKey).(string)
	return t
}

// userID is used for request logs; "guest" when unauthenticated.
func userID(c echo.Context) string {
	if u, ok := CurrentUser(c); ok {
		return u.ID
	}
	return "guest"
}
