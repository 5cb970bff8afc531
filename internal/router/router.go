// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/role-auth/internal/handler"
	"github.com/iliyamo/role-auth/internal/metrics"
	"github.com/iliyamo/role-auth/internal/middleware"
	"github.com/iliyamo/role-auth/internal/service"
)

// Handlers bundles the HTTP handlers served under /v1.
type Handlers struct {
	Accounts *handler.AccountHandler
	Users    *handler.UserHandler
	Roles    *handler.RoleHandler
}

// Guards carries what the authenticated routes need to authorise a
// request.
type Guards struct {
	Resolver middleware.Resolver
	Gate     *service.RoleGate
}

// RegisterRoutes registers the routes that do not require
// authentication: health check and, when m is set, /metrics.
func RegisterRoutes(e *echo.Echo, m *metrics.Metrics) {
	e.GET("/healthz", handler.Health)
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}

// RegisterAPI registers the /v1 API.  Registration and login are
// public; /current and /logout need a valid token; /users and /roles
// additionally require admin-or-above, with role assignment and
// catalogue changes restricted to superadmins.
func RegisterAPI(e *echo.Echo, h Handlers, g Guards) {
	v1 := e.Group("/v1")
	v1.POST("/register", h.Accounts.Register)
	v1.POST("/login", h.Accounts.Login)

	auth := v1.Group("", middleware.BearerAuth(g.Resolver))
	auth.GET("/current", h.Accounts.Current)
	auth.PUT("/current", h.Accounts.UpdateCurrent)
	auth.DELETE("/current", h.Accounts.DeleteCurrent)
	auth.PUT("/current/password", h.Accounts.ChangePassword)
	auth.PUT("/current/email/confirm", h.Accounts.ConfirmEmail)
	auth.PUT("/current/password/recover", h.Accounts.RecoverPassword)
	auth.DELETE("/logout", h.Accounts.Logout)

	admin := middleware.RequirePolicy(g.Gate, service.AdminOrAbove)
	super := middleware.RequirePolicy(g.Gate, service.SuperadminOnly)

	users := auth.Group("/users")
	users.GET("", h.Users.List, admin)
	users.POST("", h.Users.Create, admin)
	users.GET("/:id", h.Users.Get, admin)
	users.PUT("/:id", h.Users.Update, admin)
	users.DELETE("/:id", h.Users.Delete, admin)
	users.POST("/:id/role", h.Users.GrantRole, super)
	users.DELETE("/:id/role", h.Users.RevokeRole, super)
	users.POST("/:id/roles", h.Users.GrantRoles, super)
	users.DELETE("/:id/roles", h.Users.RevokeRoles, super)

	roles := auth.Group("/roles")
	roles.GET("", h.Roles.List, admin)
	roles.GET("/:name", h.Roles.Get, admin)
	roles.POST("", h.Roles.Create, super)
	roles.DELETE("", h.Roles.DeleteAll, super)
	roles.PUT("/:name", h.Roles.Update, super)
	roles.DELETE("/:name", h.Roles.Delete, super)
}
