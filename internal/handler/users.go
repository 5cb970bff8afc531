package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/role-auth/internal/middleware"
	"github.com/iliyamo/role-auth/internal/model"
	"github.com/iliyamo/role-auth/internal/service"
)

// UserHandler serves /v1/users.  Routing applies the access policies:
// admin-or-above for user management, superadmin-only for role
// assignment.
type UserHandler struct {
	Admin *service.UserAdminService
}

func NewUserHandler(a *service.UserAdminService) *UserHandler {
	return &UserHandler{Admin: a}
}

type roleReq struct {
	Role string `json:"role" query:"role"`
}

type rolesReq struct {
	Roles []string `json:"roles" query:"roles"`
}

// List returns all users, or the single match of ?email= or ?name=.
func (h *UserHandler) List(c echo.Context) error {
	f := service.UserFilter{Email: c.QueryParam("email"), Name: c.QueryParam("name")}
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.Admin.List(ctx, f)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

func (h *UserHandler) Create(c echo.Context) error {
	actor, err := caller(c)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	var req service.NewUser
	if err := bind(c, &req); err != nil {
		return middleware.WriteError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Admin.Create(ctx, actor, req)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": u})
}

func (h *UserHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Admin.Get(ctx, c.Param("id"))
	if err != nil {
		return middleware.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

func (h *UserHandler) Update(c echo.Context) error {
	actor, err := caller(c)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	var patch model.UserPatch
	if err := bind(c, &patch); err != nil {
		return middleware.WriteError(c, err)
	}
	if patch.Empty() {
		return middleware.WriteError(c, errNothingToDo)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Admin.Update(ctx, actor, c.Param("id"), patch)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

func (h *UserHandler) Delete(c echo.Context) error {
	actor, err := caller(c)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Admin.Delete(ctx, actor, c.Param("id")); err != nil {
		return middleware.WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *UserHandler) GrantRole(c echo.Context) error {
	return h.singleRole(c, h.Admin.GrantRole)
}

func (h *UserHandler) RevokeRole(c echo.Context) error {
	return h.singleRole(c, h.Admin.RevokeRole)
}

func (h *UserHandler) GrantRoles(c echo.Context) error {
	return h.roleList(c, h.Admin.GrantRoles)
}

func (h *UserHandler) RevokeRoles(c echo.Context) error {
	return h.roleList(c, h.Admin.RevokeRoles)
}

type singleRoleOp func(ctx context.Context, actor model.User, id, role string) (model.User, error)

type roleListOp func(ctx context.Context, actor model.User, id string, roles []string) (service.RoleChange, error)

func (h *UserHandler) singleRole(c echo.Context, op singleRoleOp) error {
	actor, err := caller(c)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	var req roleReq
	if err := bind(c, &req); err != nil {
		return middleware.WriteError(c, err)
	}
	if req.Role == "" {
		return middleware.WriteError(c, errRoleRequired)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := op(ctx, actor, c.Param("id"), req.Role)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

func (h *UserHandler) roleList(c echo.Context, op roleListOp) error {
	actor, err := caller(c)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	var req rolesReq
	if err := bind(c, &req); err != nil {
		return middleware.WriteError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := op(ctx, actor, c.Param("id"), req.Roles)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
